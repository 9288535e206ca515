// Package report assembles the canonical analysis result. Building is a
// pure aggregation: nothing here re-parses, re-resolves, or mutates its
// inputs after assembly.
package report

import (
	"fmt"
	"time"

	"modelmap/internal/ir"
)

// Input carries everything one run produced, pre-merged and pre-sorted.
type Input struct {
	Root        string
	ToolVersion string
	GeneratedAt time.Time
	Repo        ir.RepoInfo
	Entities    []*ir.Entity
	References  []ir.Reference
	History     map[string]*ir.HistoryInfo
	Diagnostics []ir.Diagnostic
}

// Build assembles the AnalysisResult.
//
// Duplicate entity IDs are never last-write-wins: every occurrence is
// retained with a collision flag plus one duplicate_entity diagnostic per
// colliding ID, so renderers surface the conflict instead of hiding it.
// References with an endpoint missing from the entity set are dropped and
// counted as dangling_reference diagnostics.
func Build(in Input) *ir.AnalysisResult {
	diags := append([]ir.Diagnostic(nil), in.Diagnostics...)

	counts := make(map[string]int, len(in.Entities))
	for _, e := range in.Entities {
		counts[e.ID]++
	}
	flagged := make(map[string]struct{})
	for _, e := range in.Entities {
		if counts[e.ID] <= 1 {
			continue
		}
		e.Collision = true
		if _, done := flagged[e.ID]; done {
			continue
		}
		flagged[e.ID] = struct{}{}
		diags = append(diags, ir.Diagnostic{
			Kind:   ir.DiagDuplicateEntity,
			Path:   e.File,
			Detail: fmt.Sprintf("entity %s declared %d times", e.ID, counts[e.ID]),
		})
	}

	exists := make(map[string]struct{}, len(in.Entities))
	for _, e := range in.Entities {
		exists[e.ID] = struct{}{}
	}

	refs := make([]ir.Reference, 0, len(in.References))
	for _, r := range in.References {
		if _, ok := exists[r.From]; !ok {
			diags = append(diags, danglingDiag(r, r.From))
			continue
		}
		if _, ok := exists[r.To]; !ok {
			diags = append(diags, danglingDiag(r, r.To))
			continue
		}
		refs = append(refs, r)
	}

	res := &ir.AnalysisResult{
		Root:        in.Root,
		GeneratedAt: in.GeneratedAt,
		ToolVersion: in.ToolVersion,
		Repo:        in.Repo,
		Entities:    in.Entities,
		References:  refs,
		History:     in.History,
		Diagnostics: diags,
	}
	res.Summary = summarize(res)
	return res
}

func danglingDiag(r ir.Reference, missing string) ir.Diagnostic {
	return ir.Diagnostic{
		Kind:   ir.DiagDanglingReference,
		Detail: fmt.Sprintf("%s reference %s -> %s: %s not in entity set", r.Kind, r.From, r.To, missing),
	}
}

// summarize derives per-kind counts from the sets themselves so the
// summary can never drift from what it summarizes.
func summarize(res *ir.AnalysisResult) ir.Summary {
	s := ir.Summary{
		References:  make(map[ir.ReferenceKind]int),
		Diagnostics: make(map[ir.DiagnosticKind]int),
	}
	for _, e := range res.Entities {
		switch e.Kind {
		case ir.KindModel:
			s.Models++
		case ir.KindFunction:
			s.Functions++
		case ir.KindEndpoint:
			s.Endpoints++
		}
	}
	for _, r := range res.References {
		s.References[r.Kind]++
	}
	for _, d := range res.Diagnostics {
		s.Diagnostics[d.Kind]++
	}
	return s
}
