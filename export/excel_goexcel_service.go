package export

import (
	"bytes"
	"fmt"

	gospreadsheet "github.com/VantageDataChat/GoExcel"
)

// GoExcelExportService handles Excel file generation using GoExcel (pure Go)
type GoExcelExportService struct{}

// NewGoExcelExportService creates a new GoExcel export service
func NewGoExcelExportService() *GoExcelExportService {
	return &GoExcelExportService{}
}

// ExportTableToExcel exports table data to Excel format using GoExcel
func (s *GoExcelExportService) ExportTableToExcel(tableData *TableData, sheetName string) ([]byte, error) {
	if tableData == nil || len(tableData.Columns) == 0 {
		return nil, fmt.Errorf("no table data to export")
	}

	wb := gospreadsheet.New()
	ws := wb.GetActiveSheet()

	if sheetName == "" {
		sheetName = "Performance"
	}
	ws.SetTitle(SanitizeSheetName(sheetName))

	headerStyle := gospreadsheet.NewStyle().
		SetFont(&gospreadsheet.Font{
			Bold:  true,
			Size:  11,
			Color: "FFFFFF",
			Name:  "Calibri",
		}).
		SetFill(&gospreadsheet.Fill{
			Type:  "solid",
			Color: "1A237E",
		}).
		SetAlignment(&gospreadsheet.Alignment{
			Horizontal: gospreadsheet.AlignCenter,
			Vertical:   gospreadsheet.AlignMiddle,
		})

	dataStyle := gospreadsheet.NewStyle().
		SetFont(&gospreadsheet.Font{
			Size: 10,
			Name: "Calibri",
		}).
		SetAlignment(&gospreadsheet.Alignment{
			Horizontal: gospreadsheet.AlignLeft,
			Vertical:   gospreadsheet.AlignMiddle,
		})

	// Write headers
	for i, col := range tableData.Columns {
		cellName, _ := gospreadsheet.CellName(0, i)
		ws.SetCellValue(cellName, col.Title)
		ws.SetCellStyle(cellName, headerStyle)

		width := col.Width
		if width == 0 {
			width = float64(len([]rune(col.Title))) + 4
		}
		ws.SetColumnWidth(i, width)
	}
	ws.SetRowHeight(0, 25)

	// Write data rows
	for rowIdx, rowData := range tableData.Data {
		excelRow := rowIdx + 1
		for colIdx := 0; colIdx < len(tableData.Columns) && colIdx < len(rowData); colIdx++ {
			cellName, _ := gospreadsheet.CellName(excelRow, colIdx)
			ws.SetCellValue(cellName, rowData[colIdx])
			ws.SetCellStyle(cellName, dataStyle)
		}
	}

	// Freeze header row
	ws.FreezePane("A2")

	wb.Properties.Title = sheetName
	wb.Properties.Creator = "AssetEdge"
	wb.Properties.Subject = "Market index performance"

	var buf bytes.Buffer
	writer := gospreadsheet.NewXLSXWriter()
	if err := writer.Write(wb, &buf); err != nil {
		return nil, fmt.Errorf("failed to write Excel file: %w", err)
	}
	return buf.Bytes(), nil
}
