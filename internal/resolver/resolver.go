// Package resolver cross-references extracted entities into a reference
// graph. Resolution is heuristic and textual: names are matched against
// the extracted inventory without import-scope awareness. Ambiguous
// matches are kept (linked to every candidate) and surfaced as
// diagnostics, never silently dropped.
package resolver

import (
	"fmt"
	"path"
	"regexp"
	"strings"

	"modelmap/internal/extractor"
	"modelmap/internal/ir"
)

var identRe = regexp.MustCompile(`[A-Za-z_][A-Za-z0-9_]*`)

// Options tunes the references-by-id convention.
type Options struct {
	IDSuffix string   // field suffix marking a foreign-key style field, e.g. "_id"
	IDTypes  []string // declared types accepted for such fields
}

// DefaultOptions matches the common FastAPI/SQL convention.
func DefaultOptions() Options {
	return Options{
		IDSuffix: "_id",
		IDTypes:  []string{"int", "str", "UUID", "uuid.UUID"},
	}
}

// Resolver links entities by name over a complete extraction set.
type Resolver struct {
	opts    Options
	idTypes map[string]struct{}

	models    map[string][]*ir.Entity // simple name -> candidates
	callables map[string][]*ir.Entity // qualified and simple name -> candidates
}

// New creates a resolver.
func New(opts Options) *Resolver {
	if opts.IDSuffix == "" {
		opts = DefaultOptions()
	}
	idTypes := make(map[string]struct{}, len(opts.IDTypes))
	for _, t := range opts.IDTypes {
		idTypes[t] = struct{}{}
	}
	return &Resolver{opts: opts, idTypes: idTypes}
}

// Resolve computes all references over the merged, sorted extraction set.
// It must run after extraction has finished: candidates are looked up in
// the complete inventory, so a partial view would produce different
// edges.
func (r *Resolver) Resolve(extractions []extractor.Extraction) ([]ir.Reference, []ir.Diagnostic) {
	r.index(extractions)

	var refs []ir.Reference
	var diags []ir.Diagnostic
	seen := make(map[string]struct{})
	flagged := make(map[string]struct{})

	emit := func(from *ir.Entity, kind ir.ReferenceKind, name string, candidates []*ir.Entity) {
		targets, ambiguous := r.narrow(from, candidates)
		if ambiguous {
			key := from.ID + "|" + name
			if _, dup := flagged[key]; !dup {
				flagged[key] = struct{}{}
				diags = append(diags, ir.Diagnostic{
					Kind:   ir.DiagAmbiguousReference,
					Path:   from.File,
					Detail: fmt.Sprintf("%s: %q matches %d candidates", from.Name, name, len(targets)),
				})
			}
		}
		for _, target := range targets {
			if target.ID == from.ID {
				continue
			}
			key := from.ID + "|" + target.ID + "|" + string(kind)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			refs = append(refs, ir.Reference{
				From:       from.ID,
				To:         target.ID,
				Kind:       kind,
				Ambiguous:  ambiguous,
				Confidence: calibrate(kind, ambiguous),
			})
		}
	}

	for _, ex := range extractions {
		e := ex.Entity
		switch e.Kind {
		case ir.KindModel:
			r.resolveModel(e, emit)
		case ir.KindFunction, ir.KindEndpoint:
			r.resolveCallable(e, ex.Calls, emit)
		}
	}

	return refs, diags
}

type emitFunc func(from *ir.Entity, kind ir.ReferenceKind, name string, candidates []*ir.Entity)

func (r *Resolver) resolveModel(e *ir.Entity, emit emitFunc) {
	for _, f := range e.Fields {
		// references-by-id takes precedence over embeds: a customer_id
		// field documents a by-reference composition, not a nested model.
		if stem, ok := r.idReference(f); ok {
			if candidates := r.models[stem]; len(candidates) > 0 {
				emit(e, ir.RefReferencesByID, stem, candidates)
				continue
			}
		}
		for _, token := range typeTokens(f.Type) {
			if candidates := r.models[token]; len(candidates) > 0 {
				emit(e, ir.RefEmbeds, token, candidates)
			}
		}
	}
}

func (r *Resolver) resolveCallable(e *ir.Entity, calls []string, emit emitFunc) {
	// Return-type hints against model names.
	for _, token := range typeTokens(e.Returns) {
		if candidates := r.models[token]; len(candidates) > 0 {
			emit(e, ir.RefReturns, token, candidates)
		}
	}

	// Parameter annotations that name a model count as consumption.
	for _, p := range e.Params {
		for _, token := range typeTokens(p.Type) {
			if candidates := r.models[token]; len(candidates) > 0 {
				emit(e, ir.RefCalls, token, candidates)
			}
		}
	}

	// Body call targets against known functions and models.
	for _, call := range calls {
		name := call
		if candidates := r.lookupCallable(name); len(candidates) > 0 {
			emit(e, ir.RefCalls, name, candidates)
			continue
		}
		if candidates := r.models[simpleName(name)]; len(candidates) > 0 {
			emit(e, ir.RefCalls, name, candidates)
		}
	}
}

// idReference reports whether a field follows the id convention
// (name ends in the configured suffix, declared type is an id type) and
// returns the referenced model name.
func (r *Resolver) idReference(f ir.Field) (string, bool) {
	if !strings.HasSuffix(f.Name, r.opts.IDSuffix) || len(f.Name) <= len(r.opts.IDSuffix) {
		return "", false
	}
	baseType := strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(f.Type, "Optional["), "]"))
	if _, ok := r.idTypes[f.Type]; !ok {
		if _, ok := r.idTypes[baseType]; !ok {
			return "", false
		}
	}
	stem := strings.TrimSuffix(f.Name, r.opts.IDSuffix)
	return snakeToPascal(stem), true
}

// narrow applies the ambiguity policy: several same-name candidates are
// first filtered to the source file's directory; when that does not
// reduce the set to one, every candidate is linked and the reference is
// marked ambiguous.
func (r *Resolver) narrow(from *ir.Entity, candidates []*ir.Entity) ([]*ir.Entity, bool) {
	if len(candidates) <= 1 {
		return candidates, false
	}

	dir := path.Dir(from.File)
	var local []*ir.Entity
	for _, c := range candidates {
		if path.Dir(c.File) == dir {
			local = append(local, c)
		}
	}
	if len(local) == 1 {
		return local, false
	}
	return candidates, true
}

func (r *Resolver) index(extractions []extractor.Extraction) {
	r.models = make(map[string][]*ir.Entity)
	r.callables = make(map[string][]*ir.Entity)

	for _, ex := range extractions {
		e := ex.Entity
		switch e.Kind {
		case ir.KindModel:
			r.models[e.Name] = append(r.models[e.Name], e)
		case ir.KindFunction, ir.KindEndpoint:
			r.callables[e.Name] = append(r.callables[e.Name], e)
			if simple := simpleName(e.Name); simple != e.Name {
				r.callables[simple] = append(r.callables[simple], e)
			}
		}
	}
}

func (r *Resolver) lookupCallable(name string) []*ir.Entity {
	if c := r.callables[name]; len(c) > 0 {
		return c
	}
	if simple := simpleName(name); simple != name {
		return r.callables[simple]
	}
	return nil
}

func simpleName(name string) string {
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		return name[idx+1:]
	}
	return name
}

// typeTokens splits a type annotation into identifier tokens:
// "Optional[list[Customer]]" -> Optional, list, Customer.
func typeTokens(t string) []string {
	if t == "" {
		return nil
	}
	return identRe.FindAllString(t, -1)
}

func snakeToPascal(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}
