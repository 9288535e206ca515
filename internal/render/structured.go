package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"modelmap/internal/ir"
)

// StructuredRenderer writes machine-readable artifacts: the full result
// as JSON and YAML, plus flat CSV projections for spreadsheet import.
type StructuredRenderer struct{}

func (r *StructuredRenderer) Name() string { return FormatStructured }

func (r *StructuredRenderer) Render(res *ir.AnalysisResult, outDir string) error {
	dir := filepath.Join(outDir, "analysis")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if err := r.writeJSON(res, filepath.Join(dir, "analysis.json")); err != nil {
		return err
	}
	if err := r.writeYAML(res, filepath.Join(dir, "analysis.yaml")); err != nil {
		return err
	}
	return r.writeCSVs(res, dir)
}

func (r *StructuredRenderer) writeJSON(res *ir.AnalysisResult, path string) error {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (r *StructuredRenderer) writeYAML(res *ir.AnalysisResult, path string) error {
	data, err := yaml.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// CSV column orders are part of the output contract; downstream sheets
// key on them by position.
var (
	modelHeader       = []string{"id", "name", "file", "start_line", "end_line", "fields", "bases", "structure_hash", "collision"}
	fieldHeader       = []string{"model_id", "model_name", "field", "type", "default", "optional"}
	functionHeader    = []string{"id", "name", "file", "start_line", "params", "returns", "async"}
	endpointHeader    = []string{"id", "name", "file", "http_method", "route", "async"}
	referenceHeader   = []string{"from", "to", "kind", "ambiguous", "confidence"}
	historyHeader     = []string{"file", "commits", "last_modified", "authors"}
	diagnosticsHeader = []string{"kind", "path", "detail"}
)

func (r *StructuredRenderer) writeCSVs(res *ir.AnalysisResult, outDir string) error {
	models := res.EntitiesOfKind(ir.KindModel)

	var modelRows, fieldRows [][]string
	for _, m := range models {
		modelRows = append(modelRows, []string{
			m.ID, m.Name, m.File,
			strconv.Itoa(m.StartLine), strconv.Itoa(m.EndLine),
			strconv.Itoa(len(m.Fields)),
			strings.Join(m.Bases, ";"),
			m.StructureHash,
			strconv.FormatBool(m.Collision),
		})
		for _, f := range m.Fields {
			fieldRows = append(fieldRows, []string{
				m.ID, m.Name, f.Name, f.Type, f.Default, strconv.FormatBool(f.Optional),
			})
		}
	}

	var functionRows [][]string
	for _, f := range res.EntitiesOfKind(ir.KindFunction) {
		functionRows = append(functionRows, []string{
			f.ID, f.Name, f.File,
			strconv.Itoa(f.StartLine),
			fieldNames(f.Params),
			f.Returns,
			strconv.FormatBool(f.Async),
		})
	}

	var endpointRows [][]string
	for _, e := range res.EntitiesOfKind(ir.KindEndpoint) {
		endpointRows = append(endpointRows, []string{
			e.ID, e.Name, e.File, e.HTTPMethod, e.Route, strconv.FormatBool(e.Async),
		})
	}

	var referenceRows [][]string
	for _, ref := range res.References {
		referenceRows = append(referenceRows, []string{
			ref.From, ref.To, string(ref.Kind),
			strconv.FormatBool(ref.Ambiguous),
			strconv.FormatFloat(ref.Confidence, 'f', 2, 64),
		})
	}

	var diagnosticRows [][]string
	for _, d := range res.Diagnostics {
		diagnosticRows = append(diagnosticRows, []string{string(d.Kind), d.Path, d.Detail})
	}

	files := []struct {
		name   string
		header []string
		rows   [][]string
	}{
		{"models.csv", modelHeader, modelRows},
		{"model_fields.csv", fieldHeader, fieldRows},
		{"functions.csv", functionHeader, functionRows},
		{"endpoints.csv", endpointHeader, endpointRows},
		{"references.csv", referenceHeader, referenceRows},
		{"diagnostics.csv", diagnosticsHeader, diagnosticRows},
	}
	for _, f := range files {
		if err := writeCSV(filepath.Join(outDir, f.name), f.header, f.rows); err != nil {
			return err
		}
	}

	if res.History != nil {
		var historyRows [][]string
		for _, file := range sortedKeys(res.History) {
			h := res.History[file]
			historyRows = append(historyRows, []string{
				file,
				strconv.Itoa(h.Commits),
				h.LastModified.UTC().Format("2006-01-02T15:04:05Z"),
				strings.Join(h.Authors, ";"),
			})
		}
		if err := writeCSV(filepath.Join(outDir, "history.csv"), historyHeader, historyRows); err != nil {
			return err
		}
	}
	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return f.Close()
}

func fieldNames(fields []ir.Field) string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return strings.Join(names, ";")
}

func sortedKeys(m map[string]*ir.HistoryInfo) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
