package render

import (
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"

	"modelmap/internal/analysis"
	"modelmap/internal/ir"
)

// HTMLRenderer writes a self-contained interactive dashboard: summary
// cards, a navigable reference graph, and model impact tables. The graph
// widget is vis-network, loaded from its CDN; everything else is inline.
type HTMLRenderer struct{}

func (r *HTMLRenderer) Name() string { return FormatHTML }

type graphNode struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Group string `json:"group"`
	Title string `json:"title"`
}

type graphEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Label  string `json:"label"`
	Dashes bool   `json:"dashes"`
	Title  string `json:"title"`
}

type htmlView struct {
	Root        string
	GeneratedAt string
	ToolVersion string
	Repo        ir.RepoInfo
	Summary     ir.Summary
	RefTotal    int
	DiagTotal   int
	NodesJSON   template.JS
	EdgesJSON   template.JS
	Impact      *analysis.Report
	Diagnostics []ir.Diagnostic
}

func (r *HTMLRenderer) Render(res *ir.AnalysisResult, outDir string) error {
	nodes := make([]graphNode, 0, len(res.Entities))
	for _, e := range res.Entities {
		nodes = append(nodes, graphNode{
			ID:    e.ID,
			Label: e.Name,
			Group: string(e.Kind),
			Title: fmt.Sprintf("%s (%s:%d)", e.ID, e.File, e.StartLine),
		})
	}
	edges := make([]graphEdge, 0, len(res.References))
	for _, ref := range res.References {
		edges = append(edges, graphEdge{
			From:   ref.From,
			To:     ref.To,
			Label:  string(ref.Kind),
			Dashes: ref.Ambiguous,
			Title:  fmt.Sprintf("%s (confidence %.2f)", ref.Kind, ref.Confidence),
		})
	}

	nodesJSON, err := json.Marshal(nodes)
	if err != nil {
		return fmt.Errorf("marshal nodes: %w", err)
	}
	edgesJSON, err := json.Marshal(edges)
	if err != nil {
		return fmt.Errorf("marshal edges: %w", err)
	}

	refTotal := 0
	for _, n := range res.Summary.References {
		refTotal += n
	}

	view := htmlView{
		Root:        res.Root,
		GeneratedAt: res.GeneratedAt.UTC().Format("2006-01-02 15:04 UTC"),
		ToolVersion: res.ToolVersion,
		Repo:        res.Repo,
		Summary:     res.Summary,
		RefTotal:    refTotal,
		DiagTotal:   len(res.Diagnostics),
		NodesJSON:   template.JS(nodesJSON),
		EdgesJSON:   template.JS(edgesJSON),
		Impact:      analysis.Analyze(res),
		Diagnostics: res.Diagnostics,
	}

	dir := filepath.Join(outDir, "mappings")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.Create(filepath.Join(dir, "index.html"))
	if err != nil {
		return err
	}
	defer f.Close()
	if err := dashboardTmpl.Execute(f, view); err != nil {
		return fmt.Errorf("execute template: %w", err)
	}
	return f.Close()
}

var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>modelmap &middot; {{.Root}}</title>
<script src="https://unpkg.com/vis-network/standalone/umd/vis-network.min.js"></script>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; margin: 0; background: #f5f6fa; color: #2c3e50; }
  header { background: #2c3e50; color: #fff; padding: 18px 28px; }
  header h1 { margin: 0 0 4px; font-size: 20px; }
  header .meta { font-size: 12px; opacity: .8; }
  .cards { display: flex; gap: 14px; padding: 18px 28px; flex-wrap: wrap; }
  .card { background: #fff; border-radius: 8px; padding: 14px 22px; box-shadow: 0 1px 3px rgba(0,0,0,.1); min-width: 110px; }
  .card .num { font-size: 26px; font-weight: 700; }
  .card .lbl { font-size: 12px; color: #7f8c8d; text-transform: uppercase; }
  section { margin: 0 28px 24px; background: #fff; border-radius: 8px; padding: 18px 22px; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
  section h2 { margin-top: 0; font-size: 16px; }
  #graph { height: 560px; border: 1px solid #ecf0f1; border-radius: 6px; }
  table { border-collapse: collapse; width: 100%; font-size: 13px; }
  th, td { text-align: left; padding: 6px 10px; border-bottom: 1px solid #ecf0f1; }
  th { background: #34495e; color: #fff; }
  .risk-high { color: #c0392b; font-weight: 700; }
  .risk-medium { color: #e67e22; }
  .risk-low { color: #27ae60; }
  .risk-none { color: #95a5a6; }
</style>
</head>
<body>
<header>
  <h1>Model Mapping Report</h1>
  <div class="meta">{{.Root}} &middot; generated {{.GeneratedAt}} &middot; modelmap {{.ToolVersion}}{{if .Repo.CommitHash}} &middot; {{.Repo.Branch}}@{{printf "%.8s" .Repo.CommitHash}}{{if .Repo.Dirty}} (dirty){{end}}{{end}}</div>
</header>

<div class="cards">
  <div class="card"><div class="num">{{.Summary.Models}}</div><div class="lbl">Models</div></div>
  <div class="card"><div class="num">{{.Summary.Functions}}</div><div class="lbl">Functions</div></div>
  <div class="card"><div class="num">{{.Summary.Endpoints}}</div><div class="lbl">Endpoints</div></div>
  <div class="card"><div class="num">{{.RefTotal}}</div><div class="lbl">References</div></div>
  <div class="card"><div class="num">{{.DiagTotal}}</div><div class="lbl">Diagnostics</div></div>
  <div class="card"><div class="num">{{printf "%.0f%%" .Impact.EndpointCoverage}}</div><div class="lbl">Endpoint coverage</div></div>
</div>

<section>
  <h2>Reference Graph</h2>
  <div id="graph"></div>
</section>

<section>
  <h2>Model Impact</h2>
  <table>
    <tr><th>Model</th><th>File</th><th>Endpoints</th><th>Models</th><th>Usage</th><th>Depth</th><th>Risk</th></tr>
    {{range .Impact.Impacts}}
    <tr>
      <td>{{.Name}}</td><td>{{.File}}</td>
      <td>{{len .AffectedEndpoints}}</td><td>{{len .AffectedModels}}</td>
      <td>{{.UsageCount}}</td><td>{{.Depth}}</td>
      <td class="risk-{{.Risk}}">{{.Risk}}</td>
    </tr>
    {{end}}
  </table>
  {{if .Impact.Orphans}}
  <p><strong>Orphaned models:</strong>
    {{range $i, $o := .Impact.Orphans}}{{if $i}}, {{end}}{{$o.Name}}{{end}}
  </p>
  {{end}}
  {{if .Impact.MostReusedModel}}
  <p><strong>Most reused:</strong> {{.Impact.MostReusedModel}} ({{.Impact.MostReusedCount}} usages)</p>
  {{end}}
</section>

{{if .Diagnostics}}
<section>
  <h2>Diagnostics</h2>
  <table>
    <tr><th>Kind</th><th>Path</th><th>Detail</th></tr>
    {{range .Diagnostics}}
    <tr><td>{{.Kind}}</td><td>{{.Path}}</td><td>{{.Detail}}</td></tr>
    {{end}}
  </table>
</section>
{{end}}

<script>
  const nodes = new vis.DataSet({{.NodesJSON}});
  const edges = new vis.DataSet({{.EdgesJSON}});
  new vis.Network(document.getElementById("graph"), { nodes, edges }, {
    groups: {
      model:    { color: { background: "#3498db", border: "#2980b9" }, shape: "box" },
      function: { color: { background: "#95a5a6", border: "#7f8c8d" }, shape: "ellipse" },
      endpoint: { color: { background: "#2ecc71", border: "#27ae60" }, shape: "box" }
    },
    edges: { arrows: "to", font: { size: 10, align: "middle" } },
    physics: { stabilization: { iterations: 200 } }
  });
</script>
</body>
</html>
`))
