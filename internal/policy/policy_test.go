package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmcp/codesearch/internal/config"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	p := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

func TestPolicyHardDenyList(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "node_modules/foo/index.js", "console.log(1)")
	writeFile(t, root, "main.go", "package main")

	cfg := config.New()
	cfg.RespectGitignore = false
	p, err := New(root, cfg)
	require.NoError(t, err)

	assert.False(t, p.ShouldIndexCode("node_modules/foo/index.js").Allow)
	assert.True(t, p.ShouldIndexCode("main.go").Allow)
}

func TestPolicySecretsAlwaysDenied(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".env", "SECRET=1")
	cfg := config.New()
	cfg.Exclude = nil
	cfg.RespectGitignore = false
	p, err := New(root, cfg)
	require.NoError(t, err)

	assert.False(t, p.ShouldIndexCode(".env").Allow)
}

func TestPolicySizeCap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "small.go", "package main")
	writeFile(t, root, "big.go", string(make([]byte, 2000)))

	cfg := config.New()
	cfg.RespectGitignore = false
	cfg.MaxFileSize = "1KB"
	cfg.Exclude = nil
	p, err := New(root, cfg)
	require.NoError(t, err)

	assert.True(t, p.ShouldIndexCode("small.go").Allow)
	assert.False(t, p.ShouldIndexCode("big.go").Allow)
}

func TestPolicyBinaryDetection(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "image.png", "\x89PNG\x00\x00\x00")
	writeFile(t, root, "text.go", "package main\n")

	cfg := config.New()
	cfg.RespectGitignore = false
	cfg.Exclude = nil
	p, err := New(root, cfg)
	require.NoError(t, err)

	assert.False(t, p.ShouldIndexCode("image.png").Allow)
	assert.True(t, p.ShouldIndexCode("text.go").Allow)
}

func TestPolicyDocsRequiresDocPattern(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "README.md", "# Title")
	writeFile(t, root, "main.go", "package main")

	cfg := config.New()
	cfg.RespectGitignore = false
	p, err := New(root, cfg)
	require.NoError(t, err)

	assert.True(t, p.ShouldIndexDocs("README.md").Allow)
	assert.False(t, p.ShouldIndexDocs("main.go").Allow)
}

func TestPolicyGitignore(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".git"), 0o755))
	writeFile(t, root, ".gitignore", "*.log\nbuild/\n")
	writeFile(t, root, "app.log", "log line")
	writeFile(t, root, "main.go", "package main")

	cfg := config.New()
	cfg.RespectGitignore = true
	p, err := New(root, cfg)
	require.NoError(t, err)

	assert.False(t, p.ShouldIndexCode("app.log").Allow)
	assert.True(t, p.ShouldIndexCode("main.go").Allow)
}

func TestParseSize(t *testing.T) {
	cases := map[string]int64{
		"1MB":   1 << 20,
		"512KB": 512 << 10,
		"1GB":   1 << 30,
		"":      1 << 20,
	}
	for in, want := range cases {
		got, err := ParseSize(in)
		require.NoError(t, err)
		assert.Equal(t, want, got, in)
	}
}
