package toolserver

import (
	"context"
	"errors"

	"github.com/localmcp/codesearch/internal/mcperrors"
)

// jsonRPCCode maps a mcperrors.Code to a JSON-RPC-ish error code: a
// small custom range (-32001..) plus the standard range (-32600..).
func jsonRPCCode(c mcperrors.Code) int {
	switch c {
	case mcperrors.CodeIndexNotFound:
		return -32001
	case mcperrors.CodeDocsIndexNotFound:
		return -32011
	case mcperrors.CodeIndexExists:
		return -32012
	case mcperrors.CodeIndexCorrupt:
		return -32013
	case mcperrors.CodeIndexingInProgress:
		return -32014
	case mcperrors.CodeInvalidQuery, mcperrors.CodeInvalidPattern:
		return -32602
	case mcperrors.CodeFileNotFound:
		return -32004
	case mcperrors.CodeFileExcluded:
		return -32015
	case mcperrors.CodePathTraversal:
		return -32016
	case mcperrors.CodeModelLoadFailed:
		return -32017
	case mcperrors.CodeDiskFull:
		return -32018
	case mcperrors.CodeDimensionMismatch:
		return -32019
	case mcperrors.CodeTimeout:
		return -32003
	case mcperrors.CodeReadError:
		return -32020
	default:
		return -32603
	}
}

// toolError is the envelope returned to an MCP client for a failed
// call, keyed off the mcperrors.Code taxonomy.
type toolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *toolError) Error() string { return e.Message }

// invalidQuery builds a CodeInvalidQuery error for handler-side input
// validation that happens before the request ever reaches internal/project.
func invalidQuery(message string) error {
	return mcperrors.New(mcperrors.CodeInvalidQuery, message)
}

// mapError converts err into the client-facing envelope. A nil err yields
// a nil envelope so handlers can write "return nil, nil, mapError(err)".
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return &toolError{Code: jsonRPCCode(mcperrors.CodeTimeout), Message: "request was canceled or timed out"}
	}
	code := mcperrors.CodeOf(err)
	return &toolError{Code: jsonRPCCode(code), Message: err.Error()}
}
