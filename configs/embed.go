// Package configs provides the configuration templates embedded into the
// mcpsearch binary. The templates are written out by `mcpsearch init`
// (project config) and `mcpsearch init --user` (user config); embedding
// them keeps source builds and binary releases identical.
//
// The layering the templates feed into is documented in
// internal/config.Load: defaults, then the user config at
// ~/.mcp/search/config.yaml, then the project's .mcpsearch.yaml, then
// MCPSEARCH_* environment variables.
package configs

import _ "embed"

// ProjectConfigTemplate is written to .mcpsearch.yaml in the project
// root. It carries the settings worth version-controlling with the
// project: include/exclude globs, size limits, docs patterns, and the
// indexing strategy.
//
//go:embed project-config.example.yaml
var ProjectConfigTemplate string

// UserConfigTemplate is written to ~/.mcp/search/config.yaml. It carries
// machine-wide settings (embedding model identity, server transport and
// log level) that apply to every project on this machine.
//
//go:embed user-config.example.yaml
var UserConfigTemplate string
