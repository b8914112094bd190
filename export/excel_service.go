package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExportService handles Excel file generation using excelize. It is
// the fallback writer when the pure Go one fails.
type ExcelExportService struct{}

// NewExcelExportService creates a new Excel export service
func NewExcelExportService() *ExcelExportService {
	return &ExcelExportService{}
}

// ExportTableToExcel exports table data to Excel format
func (s *ExcelExportService) ExportTableToExcel(tableData *TableData, sheetName string) ([]byte, error) {
	if tableData == nil || len(tableData.Columns) == 0 {
		return nil, fmt.Errorf("no table data to export")
	}

	f := excelize.NewFile()
	defer f.Close()

	if sheetName == "" {
		sheetName = "Performance"
	}
	sheetName = SanitizeSheetName(sheetName)
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"1A237E"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	dataStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Size: 10},
		Alignment: &excelize.Alignment{
			Horizontal: "left",
			Vertical:   "center",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create data style: %w", err)
	}

	// Write headers
	for i, col := range tableData.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, col.Title)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)

		width := col.Width
		if width == 0 {
			width = float64(len(col.Title)) + 4
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheetName, colName, colName, width)
	}
	f.SetRowHeight(sheetName, 1, 25)

	// Write data rows
	for rowIdx, rowData := range tableData.Data {
		excelRow := rowIdx + 2 // header is row 1
		for colIdx := 0; colIdx < len(tableData.Columns) && colIdx < len(rowData); colIdx++ {
			cell, _ := excelize.CoordinatesToCellName(colIdx+1, excelRow)
			f.SetCellValue(sheetName, cell, rowData[colIdx])
			f.SetCellStyle(sheetName, cell, cell, dataStyle)
		}
	}

	// Freeze header row
	f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})

	f.SetDocProps(&excelize.DocProperties{
		Created:  time.Now().Format(time.RFC3339),
		Creator:  "AssetEdge",
		Subject:  "Market index performance",
		Title:    sheetName,
		Language: "en-US",
	})

	// Drop the default sheet if it is not ours
	if sheetName != "Sheet1" {
		f.DeleteSheet("Sheet1")
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buffer.Bytes(), nil
}
