package export

import (
	"strings"
	"testing"
)

func TestSanitizeSheetName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Performance", "Performance"},
		{"forbidden chars", "YTD/All [Top]", "YTD_All _Top_"},
		{"empty", "", "Sheet1"},
		{"too long", strings.Repeat("x", 40), strings.Repeat("x", 31)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeSheetName(tt.in); got != tt.want {
				t.Errorf("SanitizeSheetName(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestExportTableToExcelEmpty(t *testing.T) {
	if _, err := NewGoExcelExportService().ExportTableToExcel(nil, "x"); err == nil {
		t.Error("goexcel writer accepted nil table")
	}
	if _, err := NewExcelExportService().ExportTableToExcel(&TableData{}, "x"); err == nil {
		t.Error("excelize writer accepted empty table")
	}
}

func TestExcelizeWriterProducesWorkbook(t *testing.T) {
	table := &TableData{
		Columns: []TableColumn{{Title: "Index Name", Width: 20}, {Title: "YTD"}},
		Data: [][]interface{}{
			{"Global Equity", "-3.21%"},
			{"Bond Index", "1.05%"},
		},
	}
	data, err := NewExcelExportService().ExportTableToExcel(table, "Performance")
	if err != nil {
		t.Fatalf("ExportTableToExcel: %v", err)
	}
	if len(data) < 4 || data[0] != 'P' || data[1] != 'K' {
		t.Errorf("output is not a zip container")
	}
}
