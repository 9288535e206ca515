// Package walker enumerates candidate Python source files under a root.
package walker

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"modelmap/internal/ir"
)

var skipDirs = map[string]struct{}{
	".git":          {},
	".hg":           {},
	".svn":          {},
	"__pycache__":   {},
	"node_modules":  {},
	"venv":          {},
	".venv":         {},
	"env":           {},
	".tox":          {},
	".mypy_cache":   {},
	".ruff_cache":   {},
	".pytest_cache": {},
	"build":         {},
	"dist":          {},
}

// Options controls which files the walker yields.
type Options struct {
	Include  []string // path.Match globs on the relative path; empty means all
	Exclude  []string // path.Match globs on the relative path
	MaxDepth int      // directory depth below root; 0 means unlimited
}

// Walk returns the repo-relative paths of all candidate .py files under
// root, sorted lexicographically so downstream output is reproducible.
// Unreadable paths are recorded as access_error diagnostics and skipped;
// the walk itself only fails when the root cannot be read at all.
func Walk(root string, opts Options) ([]string, []ir.Diagnostic, error) {
	if _, err := os.Stat(root); err != nil {
		return nil, nil, fmt.Errorf("walking root %s: %w", root, err)
	}

	gi := loadGitignore(root)

	var files []string
	var diags []ir.Diagnostic

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			diags = append(diags, ir.Diagnostic{
				Kind:   ir.DiagAccessError,
				Path:   relOrSelf(root, p),
				Detail: err.Error(),
			})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		rel, relErr := filepath.Rel(root, p)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if p == root {
				return nil
			}
			name := d.Name()
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if opts.MaxDepth > 0 && depth(rel) >= opts.MaxDepth {
				return filepath.SkipDir
			}
			return nil
		}

		// Symlinks are not followed.
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".py") {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if !matchesAny(opts.Include, rel, true) {
			return nil
		}
		if matchesAny(opts.Exclude, rel, false) {
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("walking root %s: %w", root, err)
	}

	sort.Strings(files)
	return files, diags, nil
}

func depth(rel string) int {
	return strings.Count(rel, "/") + 1
}

// matchesAny checks globs against both the full relative path and the
// base name, so "test_*.py" excludes nested test files too.
func matchesAny(globs []string, rel string, emptyMeans bool) bool {
	if len(globs) == 0 {
		return emptyMeans
	}
	base := path.Base(rel)
	for _, g := range globs {
		if ok, _ := path.Match(g, rel); ok {
			return true
		}
		if ok, _ := path.Match(g, base); ok {
			return true
		}
	}
	return false
}

func relOrSelf(root, p string) string {
	if rel, err := filepath.Rel(root, p); err == nil {
		return filepath.ToSlash(rel)
	}
	return p
}

func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}
