// Package render writes one analysis result to its output surfaces. Every
// renderer reads the same shared result and owns its own files, so the
// renderers can run concurrently without coordination.
package render

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"modelmap/internal/ir"
)

// Renderer turns an analysis result into files under outDir.
type Renderer interface {
	Name() string
	Render(res *ir.AnalysisResult, outDir string) error
}

// Format names accepted by configuration.
const (
	FormatStructured = "structured"
	FormatHTML       = "html"
	FormatExcel      = "excel"
)

// ForFormats maps configured format names to renderers. Unknown names
// return an error; configuration validates them first, so hitting one
// here means a wiring bug.
func ForFormats(formats []string) ([]Renderer, error) {
	var out []Renderer
	for _, f := range formats {
		switch f {
		case FormatStructured:
			out = append(out, &StructuredRenderer{})
		case FormatHTML:
			out = append(out, &HTMLRenderer{})
		case FormatExcel:
			out = append(out, &ExcelRenderer{})
		default:
			return nil, fmt.Errorf("unknown output format %q", f)
		}
	}
	return out, nil
}

// All fans the renderers out over the shared result. The first failure
// cancels the rest; partial files from a failed renderer are left on
// disk for inspection.
func All(ctx context.Context, res *ir.AnalysisResult, outDir string, renderers []Renderer) error {
	// Cancellation must not leave even an empty directory behind.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, r := range renderers {
		r := r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := r.Render(res, outDir); err != nil {
				return fmt.Errorf("render %s: %w", r.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
