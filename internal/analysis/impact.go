// Package analysis computes usage and impact statistics over a finished
// analysis result. Renderers embed these figures in their summary views.
package analysis

import (
	"modelmap/internal/ir"
)

// RiskLevel grades how widely a model is depended upon.
type RiskLevel string

const (
	RiskNone   RiskLevel = "none"
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// ModelImpact describes what breaks when one model changes.
type ModelImpact struct {
	ID                string
	Name              string
	File              string
	AffectedEndpoints []string // endpoint IDs referencing the model
	AffectedModels    []string // model IDs embedding or id-referencing it
	UsageCount        int
	Risk              RiskLevel
	Depth             int // nesting depth along embeds edges
}

// Report is the aggregate impact view.
type Report struct {
	Impacts          []ModelImpact // result order
	Orphans          []ModelImpact // models with zero usage
	HighRisk         []ModelImpact
	MostReusedModel  string
	MostReusedCount  int
	EndpointCoverage float64 // % of endpoints referencing at least one model
	AvgModelReuse    float64 // average endpoint references per model
}

// Analyze walks the reference graph once and derives per-model impact.
// The input is read-only; Analyze never mutates the result.
func Analyze(res *ir.AnalysisResult) *Report {
	byID := make(map[string]*ir.Entity, len(res.Entities))
	for _, e := range res.Entities {
		byID[e.ID] = e
	}

	inbound := make(map[string][]ir.Reference)
	embeds := make(map[string][]string) // model -> embedded models
	for _, r := range res.References {
		inbound[r.To] = append(inbound[r.To], r)
		if r.Kind == ir.RefEmbeds {
			embeds[r.From] = append(embeds[r.From], r.To)
		}
	}

	report := &Report{}
	endpointTotal := 0
	endpointsCovered := make(map[string]struct{})
	totalEndpointRefs := 0
	modelTotal := 0

	for _, e := range res.Entities {
		if e.Kind == ir.KindEndpoint {
			endpointTotal++
		}
	}

	for _, e := range res.Entities {
		if e.Kind != ir.KindModel {
			continue
		}
		modelTotal++

		impact := ModelImpact{
			ID:    e.ID,
			Name:  e.Name,
			File:  e.File,
			Depth: nestingDepth(e.ID, embeds, make(map[string]struct{})),
		}
		for _, r := range inbound[e.ID] {
			from, ok := byID[r.From]
			if !ok {
				continue
			}
			switch from.Kind {
			case ir.KindEndpoint:
				impact.AffectedEndpoints = append(impact.AffectedEndpoints, from.ID)
				endpointsCovered[from.ID] = struct{}{}
			case ir.KindModel:
				impact.AffectedModels = append(impact.AffectedModels, from.ID)
			}
		}
		impact.UsageCount = len(impact.AffectedEndpoints) + len(impact.AffectedModels)
		impact.Risk = riskFor(impact.UsageCount)
		totalEndpointRefs += len(impact.AffectedEndpoints)

		report.Impacts = append(report.Impacts, impact)
		if impact.UsageCount == 0 {
			report.Orphans = append(report.Orphans, impact)
		}
		if impact.Risk == RiskHigh {
			report.HighRisk = append(report.HighRisk, impact)
		}
		if impact.UsageCount > report.MostReusedCount {
			report.MostReusedCount = impact.UsageCount
			report.MostReusedModel = impact.Name
		}
	}

	if endpointTotal > 0 {
		report.EndpointCoverage = float64(len(endpointsCovered)) / float64(endpointTotal) * 100
	}
	if modelTotal > 0 {
		report.AvgModelReuse = float64(totalEndpointRefs) / float64(modelTotal)
	}
	return report
}

func riskFor(usage int) RiskLevel {
	switch {
	case usage == 0:
		return RiskNone
	case usage <= 2:
		return RiskLow
	case usage <= 5:
		return RiskMedium
	default:
		return RiskHigh
	}
}

// nestingDepth follows embeds edges downward; cycles contribute zero
// instead of recursing forever.
func nestingDepth(id string, embeds map[string][]string, visited map[string]struct{}) int {
	if _, seen := visited[id]; seen {
		return 0
	}
	visited[id] = struct{}{}

	max := 0
	for _, child := range embeds[id] {
		if d := 1 + nestingDepth(child, embeds, visited); d > max {
			max = d
		}
	}
	delete(visited, id)
	return max
}
