// Package config loads and persists the index's configuration record:
// include/exclude globs, size limits, docs handling, and the active
// indexing strategy name. Layering follows defaults -> user config ->
// project config -> environment variables, in increasing precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ProjectType is a best-effort, purely informational classification of
// a project's primary language/ecosystem, surfaced by get_index_status.
type ProjectType string

const (
	ProjectTypeGo      ProjectType = "go"
	ProjectTypeNode    ProjectType = "node"
	ProjectTypePython  ProjectType = "python"
	ProjectTypeRust    ProjectType = "rust"
	ProjectTypeUnknown ProjectType = "unknown"
)

// Config is the Configuration record from the data model: glob lists,
// size limits, docs handling, and the indexing strategy name.
type Config struct {
	Version int      `yaml:"version"`
	Include []string `yaml:"include"`
	Exclude []string `yaml:"exclude"`

	RespectGitignore bool   `yaml:"respect_gitignore"`
	MaxFileSize      string `yaml:"max_file_size"`
	MaxFiles         int    `yaml:"max_files"`

	DocPatterns []string `yaml:"doc_patterns"`
	IndexDocs   bool     `yaml:"index_docs"`

	Strategy          string `yaml:"strategy"`
	LazyIdleThreshold int    `yaml:"lazy_idle_threshold_seconds"`

	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Server     ServerConfig     `yaml:"server"`
}

// EmbeddingsConfig identifies the embedding models used for each table,
// surfaced in metadata records and the status/doctor diagnostics.
type EmbeddingsConfig struct {
	CodeModel      string `yaml:"code_model"`
	CodeDimensions int    `yaml:"code_dimensions"`
	DocsModel      string `yaml:"docs_model"`
	DocsDimensions int    `yaml:"docs_dimensions"`
	BatchSize      int    `yaml:"batch_size"`
}

// ServerConfig configures the MCP transport and ambient logging.
type ServerConfig struct {
	Transport string `yaml:"transport"`
	LogLevel  string `yaml:"log_level"`
}

// defaultExcludePatterns seed Config.Exclude, so projects that never
// touch the config still skip the usual noise. They are ordinary user
// excludes; the always-rejected hard deny list lives in the policy
// package.
var defaultExcludePatterns = []string{
	"**/node_modules/**",
	"**/.git/**",
	"**/vendor/**",
	"**/venv/**",
	"**/__pycache__/**",
	"**/dist/**",
	"**/build/**",
	"**/target/**",
	"**/*.min.js",
	"**/*.min.css",
	"**/package-lock.json",
	"**/yarn.lock",
	"**/pnpm-lock.yaml",
	"**/go.sum",
}

var defaultDocPatterns = []string{
	"**/*.md",
	"**/*.mdx",
	"**/*.rst",
	"**/*.txt",
	"README*",
	"CHANGELOG*",
}

// New returns a Config populated with sensible defaults.
func New() *Config {
	return &Config{
		Version:           1,
		Include:           []string{},
		Exclude:           append([]string{}, defaultExcludePatterns...),
		RespectGitignore:  true,
		MaxFileSize:       "1MB",
		MaxFiles:          100000,
		DocPatterns:       append([]string{}, defaultDocPatterns...),
		IndexDocs:         true,
		Strategy:          "realtime",
		LazyIdleThreshold: 30,
		Embeddings: EmbeddingsConfig{
			CodeModel:      "code-embedding-small",
			CodeDimensions: 384,
			DocsModel:      "docs-embedding-base",
			DocsDimensions: 768,
			BatchSize:      32,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
	}
}

// UserConfigPath returns ~/.mcp/search/config.yaml, following the XDG
// override when set.
func UserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "mcp", "search", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".mcp", "search", "config.yaml")
	}
	return filepath.Join(home, ".mcp", "search", "config.yaml")
}

// ProjectConfigPath returns the project-local override path, .mcpsearch.yaml
// under projectRoot.
func ProjectConfigPath(projectRoot string) string {
	return filepath.Join(projectRoot, ".mcpsearch.yaml")
}

// Load builds a Config for projectRoot by layering defaults, the user
// config, the project config, and environment overrides, in that order
// of increasing precedence.
func Load(projectRoot string) (*Config, error) {
	cfg := New()

	if userCfg, err := loadFile(UserConfigPath()); err != nil {
		return nil, fmt.Errorf("config: load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if projectCfg, err := loadFile(ProjectConfigPath(projectRoot)); err != nil {
		return nil, fmt.Errorf("config: load project config: %w", err)
	} else if projectCfg != nil {
		cfg.mergeWith(projectCfg)
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &parsed, nil
}

// mergeWith overlays non-zero fields of other onto c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if len(other.Include) > 0 {
		c.Include = other.Include
	}
	if len(other.Exclude) > 0 {
		c.Exclude = append(c.Exclude, other.Exclude...)
	}
	if other.MaxFileSize != "" {
		c.MaxFileSize = other.MaxFileSize
	}
	if other.MaxFiles != 0 {
		c.MaxFiles = other.MaxFiles
	}
	if len(other.DocPatterns) > 0 {
		c.DocPatterns = other.DocPatterns
	}
	if other.Strategy != "" {
		c.Strategy = other.Strategy
	}
	if other.LazyIdleThreshold != 0 {
		c.LazyIdleThreshold = other.LazyIdleThreshold
	}
	if other.Embeddings.CodeModel != "" {
		c.Embeddings.CodeModel = other.Embeddings.CodeModel
	}
	if other.Embeddings.CodeDimensions != 0 {
		c.Embeddings.CodeDimensions = other.Embeddings.CodeDimensions
	}
	if other.Embeddings.DocsModel != "" {
		c.Embeddings.DocsModel = other.Embeddings.DocsModel
	}
	if other.Embeddings.DocsDimensions != 0 {
		c.Embeddings.DocsDimensions = other.Embeddings.DocsDimensions
	}
	if other.Embeddings.BatchSize != 0 {
		c.Embeddings.BatchSize = other.Embeddings.BatchSize
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	// Booleans can't be distinguished from "unset" via zero-value alone,
	// so respect_gitignore / index_docs always take the override's value.
	c.RespectGitignore = other.RespectGitignore
	c.IndexDocs = other.IndexDocs
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("MCPSEARCH_STRATEGY"); v != "" {
		c.Strategy = v
	}
	if v := os.Getenv("MCPSEARCH_MAX_FILE_SIZE"); v != "" {
		c.MaxFileSize = v
	}
	if v := os.Getenv("MCPSEARCH_MAX_FILES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxFiles = n
		}
	}
	if v := os.Getenv("MCPSEARCH_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
	}
	if v := os.Getenv("MCPSEARCH_RESPECT_GITIGNORE"); v != "" {
		c.RespectGitignore = v == "true" || v == "1"
	}
}

// Validate rejects configurations that would make indexing policy or
// the strategy orchestrator behave ambiguously.
func (c *Config) Validate() error {
	if c.MaxFiles < 0 {
		return fmt.Errorf("max_files must be non-negative, got %d", c.MaxFiles)
	}
	if c.LazyIdleThreshold < 0 {
		return fmt.Errorf("lazy_idle_threshold_seconds must be non-negative, got %d", c.LazyIdleThreshold)
	}
	validStrategies := map[string]bool{"realtime": true, "lazy": true, "git": true}
	if !validStrategies[strings.ToLower(c.Strategy)] {
		return fmt.Errorf("strategy must be 'realtime', 'lazy', or 'git', got %q", c.Strategy)
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return fmt.Errorf("server.log_level must be 'debug', 'info', 'warn', or 'error', got %q", c.Server.LogLevel)
	}
	if c.Embeddings.BatchSize <= 0 {
		return fmt.Errorf("embeddings.batch_size must be positive, got %d", c.Embeddings.BatchSize)
	}
	return nil
}

// WriteYAML marshals c and writes it to path. Callers that are
// overwriting the user config should call BackupUserConfig first.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("config: write %s: %w", path, err)
	}
	return nil
}

// DetectProjectType inspects projectRoot for well-known marker files.
// It is purely informational and never affects indexing behavior.
func DetectProjectType(projectRoot string) ProjectType {
	markers := []struct {
		file string
		typ  ProjectType
	}{
		{"go.mod", ProjectTypeGo},
		{"package.json", ProjectTypeNode},
		{"pyproject.toml", ProjectTypePython},
		{"requirements.txt", ProjectTypePython},
		{"Cargo.toml", ProjectTypeRust},
	}
	for _, m := range markers {
		if _, err := os.Stat(filepath.Join(projectRoot, m.file)); err == nil {
			return m.typ
		}
	}
	return ProjectTypeUnknown
}
