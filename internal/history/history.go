// Package history attaches version-control provenance to analyzed files.
package history

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"modelmap/internal/ir"
)

// ErrNoRepository is returned when the analysis root is not inside a git
// repository. Callers must degrade gracefully: history is omitted, never
// zeroed, and the run continues.
var ErrNoRepository = errors.New("not a git repository")

// CommitRecord is one commit touching a file.
type CommitRecord struct {
	Hash   string
	Author string
	When   time.Time
}

// LogProvider yields the commit log for a repo-relative file path, newest
// first. Implementations other than git (or test fakes) only need this
// interface.
type LogProvider interface {
	Log(path string) ([]CommitRecord, error)
}

// GitLog is the go-git backed LogProvider.
type GitLog struct {
	repo *gogit.Repository
}

// Open opens the repository containing root. Returns ErrNoRepository when
// there is none.
func Open(root string) (*GitLog, error) {
	repo, err := gogit.PlainOpenWithOptions(root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoRepository, err)
	}
	return &GitLog{repo: repo}, nil
}

// Log returns the commits that touched path, newest first.
func (g *GitLog) Log(path string) ([]CommitRecord, error) {
	iter, err := g.repo.Log(&gogit.LogOptions{FileName: &path})
	if err != nil {
		return nil, fmt.Errorf("reading log for %s: %w", path, err)
	}

	var records []CommitRecord
	err = iter.ForEach(func(c *object.Commit) error {
		records = append(records, CommitRecord{
			Hash:   c.Hash.String(),
			Author: c.Author.Name,
			When:   c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating log for %s: %w", path, err)
	}
	return records, nil
}

// Info returns repository state for the run metadata.
func (g *GitLog) Info() (ir.RepoInfo, error) {
	head, err := g.repo.Head()
	if err != nil {
		return ir.RepoInfo{}, fmt.Errorf("reading HEAD: %w", err)
	}

	info := ir.RepoInfo{
		CommitHash: head.Hash().String(),
		Branch:     head.Name().Short(),
	}

	wt, err := g.repo.Worktree()
	if err != nil {
		return info, nil
	}
	status, err := wt.Status()
	if err != nil {
		return info, nil
	}
	info.Dirty = !status.IsClean()
	return info, nil
}

// Correlate aggregates per-file history for every analyzed file: commit
// count, newest timestamp, sorted unique author names. Files the provider
// cannot answer for are left out of the map rather than failing the run;
// a file whose log call exceeds timeout becomes a file_timeout
// diagnostic. Cancellation stops the walk and returns what was gathered.
func Correlate(ctx context.Context, provider LogProvider, files []string, timeout time.Duration) (map[string]*ir.HistoryInfo, []ir.Diagnostic) {
	out := make(map[string]*ir.HistoryInfo, len(files))
	var diags []ir.Diagnostic
	for _, file := range files {
		if ctx.Err() != nil {
			return out, diags
		}

		records, err := boundedLog(ctx, provider, file, timeout)
		if errors.Is(err, context.DeadlineExceeded) {
			diags = append(diags, ir.Diagnostic{
				Kind:   ir.DiagFileTimeout,
				Path:   file,
				Detail: fmt.Sprintf("history log exceeded %s", timeout),
			})
			continue
		}
		if err != nil || len(records) == 0 {
			continue
		}

		info := &ir.HistoryInfo{Commits: len(records)}
		authors := make(map[string]struct{})
		for _, rec := range records {
			authors[rec.Author] = struct{}{}
			if rec.When.After(info.LastModified) {
				info.LastModified = rec.When
			}
		}
		for a := range authors {
			info.Authors = append(info.Authors, a)
		}
		sort.Strings(info.Authors)
		out[file] = info
	}
	return out, diags
}

// boundedLog runs one provider call under the per-file timeout. go-git's
// log iteration has no context hook, so the call runs in its own
// goroutine and is abandoned when the deadline passes; the buffered
// channel lets a late finisher exit cleanly.
func boundedLog(ctx context.Context, provider LogProvider, path string, timeout time.Duration) ([]CommitRecord, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type logResult struct {
		records []CommitRecord
		err     error
	}
	ch := make(chan logResult, 1)
	go func() {
		records, err := provider.Log(path)
		ch <- logResult{records: records, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.records, r.err
	}
}
