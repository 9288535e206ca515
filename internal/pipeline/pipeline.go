// Package pipeline orchestrates one analysis run: walk, extract, resolve,
// correlate history, assemble the result, and render it.
package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"path/filepath"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"modelmap/internal/config"
	"modelmap/internal/extractor"
	"modelmap/internal/history"
	"modelmap/internal/ir"
	"modelmap/internal/render"
	"modelmap/internal/report"
	"modelmap/internal/resolver"
	"modelmap/internal/walker"
)

// ErrNoFiles is returned when the walk finds no candidate files; an
// empty analysis artifact would be misleading, so none is produced.
var ErrNoFiles = errors.New("no python files matched under root")

// Pipeline runs the full analysis for one configuration.
type Pipeline struct {
	cfg     *config.Config
	version string
}

func New(cfg *config.Config, version string) *Pipeline {
	return &Pipeline{cfg: cfg, version: version}
}

// Run analyzes the tree and renders every configured output format.
// Cancellation aborts before rendering, so a cancelled run never leaves
// a fresh artifact behind.
func (p *Pipeline) Run(ctx context.Context) (*ir.AnalysisResult, error) {
	res, err := p.Analyze(ctx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	renderers, err := render.ForFormats(p.cfg.Output.Formats)
	if err != nil {
		return nil, err
	}
	if err := render.All(ctx, res, p.cfg.Output.Dir, renderers); err != nil {
		return nil, err
	}
	return res, nil
}

// Analyze produces the analysis result without writing any output.
func (p *Pipeline) Analyze(ctx context.Context) (*ir.AnalysisResult, error) {
	root, err := filepath.Abs(p.cfg.Root)
	if err != nil {
		return nil, err
	}

	files, diags, err := walker.Walk(root, walker.Options{
		Include:  p.cfg.Walker.Include,
		Exclude:  p.cfg.Walker.Exclude,
		MaxDepth: p.cfg.Walker.MaxDepth,
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoFiles
	}
	log.Printf("scanning %d files under %s", len(files), root)

	results, extractDiags, err := p.extractAll(ctx, root, files)
	if err != nil {
		return nil, err
	}
	diags = append(diags, extractDiags...)

	// Results keep the walker's file order; entities within a file are
	// already in source order, so the merged set is ordered by
	// (file, line) without a second sort.
	var extractions []extractor.Extraction
	for _, fr := range results {
		if fr == nil {
			continue
		}
		diags = append(diags, fr.Warnings...)
		extractions = append(extractions, fr.Extractions...)
	}

	refs, refDiags := resolver.New(resolver.Options{
		IDSuffix: p.cfg.Resolver.IDSuffix,
		IDTypes:  p.cfg.Resolver.IDTypes,
	}).Resolve(extractions)
	diags = append(diags, refDiags...)

	var repo ir.RepoInfo
	var hist map[string]*ir.HistoryInfo
	if p.cfg.History.Enabled {
		repo, hist, diags = p.correlate(ctx, root, files, diags)
	}

	entities := make([]*ir.Entity, 0, len(extractions))
	for _, ex := range extractions {
		entities = append(entities, ex.Entity)
	}

	return report.Build(report.Input{
		Root:        root,
		ToolVersion: p.version,
		GeneratedAt: time.Now().UTC(),
		Repo:        repo,
		Entities:    entities,
		References:  refs,
		History:     hist,
		Diagnostics: diags,
	}), nil
}

// extractAll fans file extraction out over a bounded worker pool. A file
// that fails becomes a diagnostic, never a run failure; only parent
// cancellation aborts the pool. Results and failures land in per-index
// slots and are flattened in walk order, so worker scheduling never
// shows up in the output.
func (p *Pipeline) extractAll(ctx context.Context, root string, files []string) ([]*extractor.FileResult, []ir.Diagnostic, error) {
	workers := p.cfg.Pipeline.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ext := extractor.New()
	results := make([]*extractor.FileResult, len(files))
	failures := make([]*ir.Diagnostic, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, rel := range files {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			fctx := gctx
			if p.cfg.Pipeline.FileTimeout > 0 {
				var cancel context.CancelFunc
				fctx, cancel = context.WithTimeout(gctx, p.cfg.Pipeline.FileTimeout)
				defer cancel()
			}

			fr, err := ext.ExtractFile(fctx, root, rel)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				d := classifyExtractError(rel, err)
				failures[i] = &d
				return nil
			}
			results[i] = fr
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	var diags []ir.Diagnostic
	for _, d := range failures {
		if d != nil {
			diags = append(diags, *d)
		}
	}
	return results, diags, nil
}

func classifyExtractError(rel string, err error) ir.Diagnostic {
	kind := ir.DiagFileParseError
	var pathErr *fs.PathError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		kind = ir.DiagFileTimeout
	case errors.As(err, &pathErr):
		kind = ir.DiagAccessError
	}
	return ir.Diagnostic{Kind: kind, Path: rel, Detail: err.Error()}
}

// correlate attaches git provenance when the root is a repository. A
// missing repository is one history_unavailable diagnostic, not an
// error. Log calls share the extraction file timeout and honor
// cancellation between files.
func (p *Pipeline) correlate(ctx context.Context, root string, files []string, diags []ir.Diagnostic) (ir.RepoInfo, map[string]*ir.HistoryInfo, []ir.Diagnostic) {
	gitLog, err := history.Open(root)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, history.ErrNoRepository) {
			detail = "root is not inside a git repository"
		}
		return ir.RepoInfo{}, nil, append(diags, ir.Diagnostic{
			Kind:   ir.DiagHistoryUnavailable,
			Path:   root,
			Detail: detail,
		})
	}

	repo, err := gitLog.Info()
	if err != nil {
		diags = append(diags, ir.Diagnostic{
			Kind:   ir.DiagHistoryUnavailable,
			Path:   root,
			Detail: err.Error(),
		})
	}
	hist, histDiags := history.Correlate(ctx, gitLog, files, p.cfg.Pipeline.FileTimeout)
	return repo, hist, append(diags, histDiags...)
}
