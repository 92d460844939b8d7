package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_HasValidDefaults(t *testing.T) {
	cfg := New()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "realtime", cfg.Strategy)
	assert.True(t, cfg.RespectGitignore)
	assert.True(t, cfg.IndexDocs)
	assert.Contains(t, cfg.Exclude, "**/node_modules/**")
}

func TestLoad_AppliesProjectOverride(t *testing.T) {
	dir := t.TempDir()
	yamlContent := "strategy: lazy\nlazy_idle_threshold_seconds: 60\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcpsearch.yaml"), []byte(yamlContent), 0o644))

	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "lazy", cfg.Strategy)
	assert.Equal(t, 60, cfg.LazyIdleThreshold)
}

func TestLoad_EnvOverridesProjectConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".mcpsearch.yaml"), []byte("strategy: lazy\n"), 0o644))
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("MCPSEARCH_STRATEGY", "git")

	cfg, err := Load(dir)

	require.NoError(t, err)
	assert.Equal(t, "git", cfg.Strategy)
}

func TestValidate_RejectsUnknownStrategy(t *testing.T) {
	cfg := New()
	cfg.Strategy = "bogus"

	err := cfg.Validate()

	assert.Error(t, err)
}

func TestValidate_RejectsNonPositiveBatchSize(t *testing.T) {
	cfg := New()
	cfg.Embeddings.BatchSize = 0

	assert.Error(t, cfg.Validate())
}

func TestWriteYAML_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := New()
	cfg.Strategy = "lazy"

	require.NoError(t, cfg.WriteYAML(path))

	loaded, err := loadFile(path)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "lazy", loaded.Strategy)
}

func TestDetectProjectType_RecognizesGoModule(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte("module x\n"), 0o644))

	assert.Equal(t, ProjectTypeGo, DetectProjectType(dir))
}

func TestDetectProjectType_UnknownWhenNoMarkers(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, ProjectTypeUnknown, DetectProjectType(dir))
}
