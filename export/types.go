package export

import "strings"

// TableColumn describes one sheet column. Width is in character units; zero
// means the writer picks a default from the title.
type TableColumn struct {
	Title string  `json:"title"`
	Width float64 `json:"width,omitempty"`
}

// TableData is a flat table ready for a spreadsheet writer. Every cell is
// written as-is; callers coerce values to strings beforehand.
type TableData struct {
	Columns []TableColumn   `json:"columns"`
	Data    [][]interface{} `json:"data"`
}

// SheetNameLimit is the hard cap Excel places on sheet names.
const SheetNameLimit = 31

// SanitizeSheetName replaces the characters Excel forbids in sheet names
// and clips to the legal length.
func SanitizeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if name == "" {
		name = "Sheet1"
	}
	if len(name) > SheetNameLimit {
		return name[:SheetNameLimit]
	}
	return name
}
