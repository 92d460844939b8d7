package cliui

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/localmcp/codesearch/internal/project"
)

// RenderStatus writes a human-readable report of a project.StatusReport.
func RenderStatus(w io.Writer, report project.StatusReport, noColor bool) error {
	s := GetStyles(noColor)

	fmt.Fprintln(w, s.Header.Render("Index status"))
	fmt.Fprintf(w, "  %s %s\n", s.Label.Render("project type:"), report.ProjectType)
	fmt.Fprintf(w, "  %s %s\n", s.Label.Render("indexing state:"), report.Metadata.IndexingState)
	fmt.Fprintf(w, "  %s %d files / %d chunks\n", s.Label.Render("code:"), report.CodeFiles, report.CodeChunks)
	fmt.Fprintf(w, "  %s %d files / %d chunks\n", s.Label.Render("docs:"), report.DocsFiles, report.DocsChunks)
	fmt.Fprintf(w, "  %s %d bytes\n", s.Label.Render("storage:"), report.StorageBytes)

	if report.Strategy.Active {
		fmt.Fprintf(w, "  %s %s\n", s.Success.Render("watch strategy:"), report.Strategy.Name)
	} else {
		fmt.Fprintf(w, "  %s none active\n", s.Warning.Render("watch strategy:"))
	}
	return nil
}

// RenderStatusJSON writes report as indented JSON.
func RenderStatusJSON(w io.Writer, report project.StatusReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
