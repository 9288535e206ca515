package render

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"modelmap/internal/analysis"
	"modelmap/internal/ir"
)

// ExcelRenderer writes a multi-sheet workbook for non-developer review.
// Sheet counts reconcile exactly with the result summary.
type ExcelRenderer struct{}

func (r *ExcelRenderer) Name() string { return FormatExcel }

// Fill colors per HTTP method, matching the dashboard palette.
var methodFills = map[string]string{
	"GET":    "D5F5E3",
	"POST":   "D6EAF8",
	"PUT":    "FDEBD0",
	"PATCH":  "FCF3CF",
	"DELETE": "FADBD8",
}

func (r *ExcelRenderer) Render(res *ir.AnalysisResult, outDir string) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"34495E"}},
		Alignment: &excelize.Alignment{Horizontal: "left"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	if err := r.summarySheet(f, res, headerStyle); err != nil {
		return err
	}
	if err := r.modelSheets(f, res, headerStyle); err != nil {
		return err
	}
	if err := r.functionSheet(f, res, headerStyle); err != nil {
		return err
	}
	if err := r.endpointSheet(f, res, headerStyle); err != nil {
		return err
	}
	if err := r.referenceSheet(f, res, headerStyle); err != nil {
		return err
	}

	f.DeleteSheet("Sheet1")
	if idx, err := f.GetSheetIndex("Summary"); err == nil {
		f.SetActiveSheet(idx)
	}
	dir := filepath.Join(outDir, "excel")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return f.SaveAs(filepath.Join(dir, "analysis.xlsx"))
}

func (r *ExcelRenderer) summarySheet(f *excelize.File, res *ir.AnalysisResult, headerStyle int) error {
	const sheet = "Summary"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	refTotal := 0
	for _, n := range res.Summary.References {
		refTotal += n
	}
	impact := analysis.Analyze(res)

	rows := [][]interface{}{
		{"Metric", "Value"},
		{"Root", res.Root},
		{"Generated At", res.GeneratedAt.UTC().Format("2006-01-02 15:04:05 UTC")},
		{"Tool Version", res.ToolVersion},
		{"Models", res.Summary.Models},
		{"Functions", res.Summary.Functions},
		{"Endpoints", res.Summary.Endpoints},
		{"References", refTotal},
		{"Diagnostics", len(res.Diagnostics)},
		{"Endpoint Coverage %", fmt.Sprintf("%.1f", impact.EndpointCoverage)},
		{"Orphaned Models", len(impact.Orphans)},
	}
	if impact.MostReusedModel != "" {
		rows = append(rows, []interface{}{"Most Reused Model", impact.MostReusedModel})
	}
	if res.Repo.CommitHash != "" {
		rows = append(rows,
			[]interface{}{"Commit", res.Repo.CommitHash},
			[]interface{}{"Branch", res.Repo.Branch},
			[]interface{}{"Dirty", res.Repo.Dirty},
		)
	}
	if err := writeSheet(f, sheet, rows, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "B", 28)
}

func (r *ExcelRenderer) modelSheets(f *excelize.File, res *ir.AnalysisResult, headerStyle int) error {
	models := res.EntitiesOfKind(ir.KindModel)

	rows := [][]interface{}{{"ID", "Name", "File", "Lines", "Fields", "Bases", "Structure Hash", "Collision"}}
	fieldRows := [][]interface{}{{"Model", "Field", "Type", "Default", "Optional"}}
	for _, m := range models {
		rows = append(rows, []interface{}{
			m.ID, m.Name, m.File,
			fmt.Sprintf("%d-%d", m.StartLine, m.EndLine),
			len(m.Fields),
			strings.Join(m.Bases, ", "),
			m.StructureHash,
			m.Collision,
		})
		for _, fld := range m.Fields {
			fieldRows = append(fieldRows, []interface{}{m.Name, fld.Name, fld.Type, fld.Default, fld.Optional})
		}
	}

	if _, err := f.NewSheet("Models"); err != nil {
		return err
	}
	if err := writeSheet(f, "Models", rows, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth("Models", "A", "A", 40); err != nil {
		return err
	}

	if _, err := f.NewSheet("Model Fields"); err != nil {
		return err
	}
	return writeSheet(f, "Model Fields", fieldRows, headerStyle)
}

func (r *ExcelRenderer) functionSheet(f *excelize.File, res *ir.AnalysisResult, headerStyle int) error {
	const sheet = "Functions"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{{"ID", "Name", "File", "Line", "Params", "Returns", "Async"}}
	for _, fn := range res.EntitiesOfKind(ir.KindFunction) {
		rows = append(rows, []interface{}{
			fn.ID, fn.Name, fn.File, fn.StartLine,
			fieldNames(fn.Params), fn.Returns, fn.Async,
		})
	}
	if err := writeSheet(f, sheet, rows, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "A", 40)
}

func (r *ExcelRenderer) endpointSheet(f *excelize.File, res *ir.AnalysisResult, headerStyle int) error {
	const sheet = "Endpoints"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{{"ID", "Name", "File", "Method", "Route", "Async"}}
	endpoints := res.EntitiesOfKind(ir.KindEndpoint)
	for _, e := range endpoints {
		rows = append(rows, []interface{}{e.ID, e.Name, e.File, e.HTTPMethod, e.Route, e.Async})
	}
	if err := writeSheet(f, sheet, rows, headerStyle); err != nil {
		return err
	}

	for i, e := range endpoints {
		hex, ok := methodFills[e.HTTPMethod]
		if !ok {
			continue
		}
		style, err := f.NewStyle(&excelize.Style{
			Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex}},
		})
		if err != nil {
			return err
		}
		cell := fmt.Sprintf("D%d", i+2)
		if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 40)
}

func (r *ExcelRenderer) referenceSheet(f *excelize.File, res *ir.AnalysisResult, headerStyle int) error {
	const sheet = "References"
	if _, err := f.NewSheet(sheet); err != nil {
		return err
	}

	rows := [][]interface{}{{"From", "To", "Kind", "Ambiguous", "Confidence"}}
	for _, ref := range res.References {
		rows = append(rows, []interface{}{
			ref.From, ref.To, string(ref.Kind), ref.Ambiguous, ref.Confidence,
		})
	}
	if err := writeSheet(f, sheet, rows, headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", "B", 40)
}

func writeSheet(f *excelize.File, sheet string, rows [][]interface{}, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil
	}
	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, "A1", last, headerStyle)
}
