package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localmcp/codesearch/internal/integrity"
)

type fakeDriftEngine struct {
	drift        integrity.Drift
	detectErr    error
	reconcileErr error
	reconciled   bool
}

func (f *fakeDriftEngine) DetectDrift(ctx context.Context) (integrity.Drift, error) {
	return f.drift, f.detectErr
}

func (f *fakeDriftEngine) Reconcile(ctx context.Context, drift integrity.Drift) error {
	f.reconciled = true
	return f.reconcileErr
}

func TestGit_FlushSkipsEmptyDrift(t *testing.T) {
	eng := &fakeDriftEngine{drift: integrity.Drift{}}
	g := NewGit(GitConfig{Root: t.TempDir(), Engines: []DriftEngine{eng}})

	require.NoError(t, g.Flush(context.Background()))
	assert.False(t, eng.reconciled)
}

func TestGit_FlushReconcilesNonEmptyDrift(t *testing.T) {
	eng := &fakeDriftEngine{drift: integrity.Drift{Added: []string{"a.go"}}}
	g := NewGit(GitConfig{Root: t.TempDir(), Engines: []DriftEngine{eng}})

	require.NoError(t, g.Flush(context.Background()))
	assert.True(t, eng.reconciled)
	assert.Equal(t, 1, g.Stats().ProcessedFiles)
}

func TestGit_FlushRunsAllEnginesDespiteOneError(t *testing.T) {
	failing := &fakeDriftEngine{detectErr: assert.AnError}
	ok := &fakeDriftEngine{drift: integrity.Drift{Modified: []string{"b.md"}}}
	g := NewGit(GitConfig{Root: t.TempDir(), Engines: []DriftEngine{failing, ok}})

	err := g.Flush(context.Background())
	assert.Error(t, err)
	assert.True(t, ok.reconciled)
}

func TestValidateRepo_RejectsNonGitDirectory(t *testing.T) {
	err := ValidateRepo(t.TempDir())
	assert.Error(t, err)
}
