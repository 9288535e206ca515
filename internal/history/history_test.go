package history

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"modelmap/internal/ir"
)

type fakeProvider struct {
	logs map[string][]CommitRecord
}

func (f *fakeProvider) Log(path string) ([]CommitRecord, error) {
	records, ok := f.logs[path]
	if !ok {
		return nil, errors.New("unknown path")
	}
	return records, nil
}

func TestOpen_NoRepository(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.ErrorIs(t, err, ErrNoRepository)
}

func TestCorrelate(t *testing.T) {
	t0 := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	provider := &fakeProvider{logs: map[string][]CommitRecord{
		"models.py": {
			{Hash: "c3", Author: "ada", When: t0.Add(48 * time.Hour)},
			{Hash: "c2", Author: "grace", When: t0.Add(24 * time.Hour)},
			{Hash: "c1", Author: "ada", When: t0},
		},
		"empty.py": {},
	}}

	got, diags := Correlate(context.Background(), provider, []string{"models.py", "empty.py", "missing.py"}, 0)

	assert.Empty(t, diags)
	require.Len(t, got, 1, "files without history stay unknown")
	info := got["models.py"]
	require.NotNil(t, info)
	assert.Equal(t, 3, info.Commits)
	assert.Equal(t, t0.Add(48*time.Hour), info.LastModified)
	assert.Equal(t, []string{"ada", "grace"}, info.Authors)
}

func TestGitLog_RealRepository(t *testing.T) {
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	write := func(name, body string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0644))
		_, err := wt.Add(name)
		require.NoError(t, err)
	}
	commit := func(msg, author string) {
		_, err := wt.Commit(msg, &gogit.CommitOptions{
			Author: &object.Signature{Name: author, Email: author + "@example.com", When: time.Now()},
		})
		require.NoError(t, err)
	}

	write("models.py", "class A: pass\n")
	commit("add models", "ada")
	write("models.py", "class A: pass\nclass B: pass\n")
	commit("extend models", "grace")

	g, err := Open(dir)
	require.NoError(t, err)

	t.Run("Log", func(t *testing.T) {
		records, err := g.Log("models.py")
		require.NoError(t, err)
		require.Len(t, records, 2)
		assert.Equal(t, "grace", records[0].Author)
		assert.Equal(t, "ada", records[1].Author)
	})

	t.Run("Info", func(t *testing.T) {
		info, err := g.Info()
		require.NoError(t, err)
		assert.NotEmpty(t, info.CommitHash)
		assert.NotEmpty(t, info.Branch)
	})

	t.Run("Correlate over real log", func(t *testing.T) {
		got, diags := Correlate(context.Background(), g, []string{"models.py"}, time.Minute)
		assert.Empty(t, diags)
		require.NotNil(t, got["models.py"])
		assert.Equal(t, 2, got["models.py"].Commits)
		assert.Equal(t, []string{"ada", "grace"}, got["models.py"].Authors)
	})
}

// slowProvider blocks until its release channel closes.
type slowProvider struct {
	release chan struct{}
}

func (s *slowProvider) Log(path string) ([]CommitRecord, error) {
	<-s.release
	return nil, nil
}

func TestCorrelate_SlowLogBecomesTimeoutDiagnostic(t *testing.T) {
	provider := &slowProvider{release: make(chan struct{})}
	defer close(provider.release)

	done := make(chan struct{})
	var got map[string]*ir.HistoryInfo
	var diags []ir.Diagnostic
	go func() {
		got, diags = Correlate(context.Background(), provider, []string{"models.py"}, 20*time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Correlate did not return despite the per-file timeout")
	}

	assert.Empty(t, got)
	require.Len(t, diags, 1)
	assert.Equal(t, ir.DiagFileTimeout, diags[0].Kind)
	assert.Equal(t, "models.py", diags[0].Path)
}

func TestCorrelate_CancelledStopsBetweenFiles(t *testing.T) {
	calls := 0
	provider := &countingProvider{onLog: func() { calls++ }}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, diags := Correlate(ctx, provider, []string{"a.py", "b.py", "c.py"}, 0)
	assert.Empty(t, got)
	assert.Empty(t, diags)
	assert.Zero(t, calls, "no log calls after cancellation")
}

type countingProvider struct {
	onLog func()
}

func (c *countingProvider) Log(path string) ([]CommitRecord, error) {
	c.onLog()
	return nil, nil
}
