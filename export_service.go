package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"assetedge/export"
	"assetedge/market"
)

// exportColumnOrder fixes the column ordering for reformatted rows. Keys
// the model invents beyond these are appended in first-seen order.
var exportColumnOrder = []string{"Index", "ID", "MTD", "QTD", "YTD"}

// ExportService turns performance records into spreadsheet files. The rows
// are shaped by the language model when it cooperates and deterministically
// when it does not.
type ExportService struct {
	reformatter Reformatter
	primary     *export.GoExcelExportService
	fallback    *export.ExcelExportService
	logger      func(string)
}

func NewExportService(reformatter Reformatter, logger func(string)) *ExportService {
	return &ExportService{
		reformatter: reformatter,
		primary:     export.NewGoExcelExportService(),
		fallback:    export.NewExcelExportService(),
		logger:      logger,
	}
}

func (s *ExportService) log(msg string) {
	if s.logger != nil {
		s.logger(msg)
	}
}

// PrepareForExport shapes records into a table. The model reformat is
// attempted first; any failure there falls through to the deterministic
// layout so export never depends on the model being reachable.
func (s *ExportService) PrepareForExport(ctx context.Context, records []market.PerformanceRecord) (*export.TableData, error) {
	if len(records) == 0 {
		return nil, WrapError("export", "PrepareForExport", fmt.Errorf("no records to export"))
	}

	if s.reformatter != nil {
		if table := s.reformattedTable(ctx, records); table != nil {
			return table, nil
		}
	}
	return s.deterministicTable(records), nil
}

// reformattedTable asks the model to reshape the records and parses the
// first JSON array out of its response. Returns nil on any failure.
func (s *ExportService) reformattedTable(ctx context.Context, records []market.PerformanceRecord) *export.TableData {
	text, err := s.reformatter.ReformatForExport(ctx, records)
	if err != nil {
		s.log(fmt.Sprintf("[EXPORT] reformat failed, using deterministic layout: %v", err))
		return nil
	}

	raw := firstJSONArray(text)
	if raw == "" {
		s.log("[EXPORT] no JSON array in reformat response, using deterministic layout")
		return nil
	}

	var rows []map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &rows); err != nil {
		s.log(fmt.Sprintf("[EXPORT] reformat response unparseable: %v", err))
		return nil
	}
	if len(rows) == 0 {
		return nil
	}

	keys := collectKeys(rows)
	if len(keys) == 0 {
		return nil
	}

	data := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		out := make([]interface{}, len(keys))
		for i, k := range keys {
			out[i] = cellString(row[k])
		}
		data = append(data, out)
	}

	return buildTable(keys, data)
}

// deterministicTable lays records out without the model. When every record
// carries all three timeframes each gets its own column; otherwise the
// present values are joined into a single Performance column.
func (s *ExportService) deterministicTable(records []market.PerformanceRecord) *export.TableData {
	complete := true
	for _, rec := range records {
		if rec.MTD == "" || rec.QTD == "" || rec.YTD == "" {
			complete = false
			break
		}
	}

	if complete {
		data := make([][]interface{}, 0, len(records))
		for _, rec := range records {
			data = append(data, []interface{}{
				rec.IndexName,
				rec.MarketIndexID,
				market.FormatValue(rec.MTD),
				market.FormatValue(rec.QTD),
				market.FormatValue(rec.YTD),
			})
		}
		return buildTable([]string{"Index Name", "Market Index ID", "MTD", "QTD", "YTD"}, data)
	}

	data := make([][]interface{}, 0, len(records))
	for _, rec := range records {
		// Joined values stay raw; formatting belongs to the rendered views.
		var parts []string
		if rec.YTD != "" {
			parts = append(parts, "YTD: "+rec.YTD)
		}
		if rec.QTD != "" {
			parts = append(parts, "QTD: "+rec.QTD)
		}
		if rec.MTD != "" {
			parts = append(parts, "MTD: "+rec.MTD)
		}
		perf := strings.Join(parts, " | ")
		if perf == "" {
			perf = "N/A"
		}
		data = append(data, []interface{}{rec.IndexName, rec.MarketIndexID, perf})
	}
	return buildTable([]string{"Index Name", "Market Index ID", "Performance"}, data)
}

// ExportToExcel produces the spreadsheet bytes and a download filename.
// The pure Go writer is tried first with excelize as the fallback.
func (s *ExportService) ExportToExcel(ctx context.Context, records []market.PerformanceRecord, title string) (string, []byte, error) {
	table, err := s.PrepareForExport(ctx, records)
	if err != nil {
		return "", nil, err
	}

	if title == "" {
		title = "Market Performance"
	}
	sheetName := export.SanitizeSheetName(title)

	data, err := s.primary.ExportTableToExcel(table, sheetName)
	if err != nil {
		s.log(fmt.Sprintf("[EXPORT] primary writer failed, falling back: %v", err))
		data, err = s.fallback.ExportTableToExcel(table, sheetName)
		if err != nil {
			return "", nil, WrapError("export", "ExportToExcel", err)
		}
	}

	filename := fmt.Sprintf("%s_Performance_%s.xlsx",
		sanitizeExportName(title), time.Now().Format("2006-01-02"))
	return filename, data, nil
}

// buildTable computes column widths from content, with a floor so short
// columns stay readable.
func buildTable(titles []string, data [][]interface{}) *export.TableData {
	columns := make([]export.TableColumn, len(titles))
	for i, title := range titles {
		width := len(title)
		for _, row := range data {
			if i >= len(row) {
				continue
			}
			if n := len(fmt.Sprint(row[i])); n > width {
				width = n
			}
		}
		if width < 10 {
			width = 10
		}
		columns[i] = export.TableColumn{Title: title, Width: float64(width + 2)}
	}
	return &export.TableData{Columns: columns, Data: data}
}

// collectKeys orders row keys with the known columns first, then anything
// else in first-seen order.
func collectKeys(rows []map[string]interface{}) []string {
	seen := make(map[string]bool)
	var keys []string
	for _, k := range exportColumnOrder {
		for _, row := range rows {
			if _, ok := row[k]; ok && !seen[k] {
				seen[k] = true
				keys = append(keys, k)
				break
			}
		}
	}
	var extras []string
	for _, row := range rows {
		for k := range row {
			if !seen[k] {
				seen[k] = true
				extras = append(extras, k)
			}
		}
	}
	sort.Strings(extras)
	return append(keys, extras...)
}

// cellString flattens a decoded JSON value into a cell. Numbers keep their
// shortest representation, missing values become N/A.
func cellString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return "N/A"
	case string:
		if val == "" {
			return "N/A"
		}
		return val
	case float64:
		return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.4f", val), "0"), ".")
	default:
		return fmt.Sprint(val)
	}
}

// firstJSONArray returns the first balanced [...] span in text, tolerating
// strings with escaped quotes. Empty when no complete array exists.
func firstJSONArray(text string) string {
	start := strings.IndexByte(text, '[')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return text[start : i+1]
			}
		}
	}
	return ""
}

// sanitizeExportName keeps the title safe for use as a filename.
func sanitizeExportName(title string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "[", "_", "]", "_", ":", "_")
	name := replacer.Replace(strings.TrimSpace(title))
	if name == "" {
		name = "Market"
	}
	return name
}
