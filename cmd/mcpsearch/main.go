// Package main provides the entry point for the mcpsearch CLI.
package main

import (
	"os"

	"github.com/localmcp/codesearch/cmd/mcpsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
