package importer

import (
	"strings"
	"unicode"
)

// DefaultMaxMarks applies to every subject when the file has no max-marks row.
const DefaultMaxMarks = 100.0

// RowLayout tells where student rows start and what each candidate subject is out of.
type RowLayout struct {
	HasMaxRow bool            `json:"has_max_row"`
	StartRow  int             `json:"start_row"`
	MaxMarks  map[int]float64 `json:"max_marks"` // {column index: max marks}
}

// DetectMaxMarksRow inspects the row right below the header. It is a max-marks row unless its
// roll/name/father cells hold identifier-like text and none of them mentions "max".
// In a max-marks row, a blank, "-" or non-positive cell gives a max of 0.
func DetectMaxMarksRow(grid Grid, cm ColumnMap) RowLayout {
	layout := RowLayout{StartRow: 1, MaxMarks: make(map[int]float64, len(cm.Candidates))}
	if len(grid) < 2 || !isMaxMarksRow(grid[1], cm) {
		for _, col := range cm.Candidates {
			layout.MaxMarks[col] = DefaultMaxMarks
		}
		return layout
	}

	layout.HasMaxRow, layout.StartRow = true, 2
	for _, col := range cm.Candidates {
		var max float64
		if col < len(grid[1]) {
			if v, ok := parseNumber(grid[1][col]); ok && v > 0 {
				max = v
			}
		}
		layout.MaxMarks[col] = max
	}
	return layout
}

func isMaxMarksRow(row []string, cm ColumnMap) bool {
	var hasIdentifier, mentionsMax bool
	for _, col := range []int{cm.Roll, cm.Name, cm.Father} {
		if col < 0 || col >= len(row) {
			continue
		}
		cell := strings.ToLower(row[col])
		if strings.IndexFunc(cell, isAlnum) >= 0 {
			hasIdentifier = true
		}
		if strings.Contains(cell, "max") {
			mentionsMax = true
		}
	}
	return !(hasIdentifier && !mentionsMax)
}

func isAlnum(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
