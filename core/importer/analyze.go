package importer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/resultportal/core"
	"github.com/trezcool/resultportal/core/result"
)

type (
	SubjectColumn struct {
		Name     string  `json:"name" validate:"notblank"`
		MaxMarks float64 `json:"max_marks" validate:"gte=0"`
	}

	// StudentRow is one editable student line. Marks are aligned with Sheet.Subjects.
	StudentRow struct {
		RollNumber string   `json:"roll_number"`
		ClassName  string   `json:"class_name"`
		FullName   string   `json:"full_name"`
		FatherName string   `json:"father_name"`
		Marks      []string `json:"marks"`
	}

	// Sheet is the review grid shown to the operator before committing an import.
	Sheet struct {
		Header   []string        `json:"header,omitempty"`
		Columns  *ColumnMap      `json:"columns,omitempty"`
		Layout   *RowLayout      `json:"layout,omitempty"`
		Subjects []SubjectColumn `json:"subjects" validate:"dive"`
		Rows     []StudentRow    `json:"rows" validate:"required,min=1"`
		Warnings []string        `json:"warnings"`
	}
)

// Analyze classifies a parsed grid into a review Sheet.
// A header missing the roll, class or name column aborts with a *MissingColumnError.
func Analyze(grid Grid) (Sheet, error) {
	var sheet Sheet
	if len(grid) == 0 {
		return sheet, newParseError("", errors.New("no header row"))
	}

	header := grid[0]
	cm, err := ClassifyColumns(header)
	if err != nil {
		return sheet, err
	}
	layout := DetectMaxMarksRow(grid, cm)

	var dataRows [][]string
	if layout.StartRow < len(grid) {
		dataRows = grid[layout.StartRow:]
	}
	cm = AcceptSubjects(cm, dataRows)

	sheet.Header, sheet.Columns, sheet.Layout = header, &cm, &layout
	sheet.Warnings = make([]string, 0)

	accepted := make(map[int]bool, len(cm.Subjects))
	for _, col := range cm.Subjects {
		accepted[col] = true
		max := layout.MaxMarks[col]
		if max <= 0 {
			sheet.Warnings = append(sheet.Warnings, fmt.Sprintf(
				"subject %q has no max marks in the max-marks row; it is saved with max marks 0 and does not count towards totals or percentages",
				header[col],
			))
		}
		sheet.Subjects = append(sheet.Subjects, SubjectColumn{Name: header[col], MaxMarks: max})
	}
	for _, col := range cm.Candidates {
		if !accepted[col] {
			sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("column %q has no marks and was skipped", header[col]))
		}
	}

	for i, row := range dataRows {
		if isBlankRow(row) {
			continue
		}
		sr := StudentRow{
			RollNumber: cell(row, cm.Roll),
			ClassName:  result.NormalizeClassToken(cell(row, cm.Class)),
			FullName:   cell(row, cm.Name),
			FatherName: cell(row, cm.Father),
			Marks:      make([]string, 0, len(cm.Subjects)),
		}
		for _, col := range cm.Subjects {
			sr.Marks = append(sr.Marks, cell(row, col))
		}
		if sr.RollNumber == "" || sr.FullName == "" {
			sheet.Warnings = append(sheet.Warnings, fmt.Sprintf("row %d has no roll number or name and will be skipped", layout.StartRow+i+1))
		}
		sheet.Rows = append(sheet.Rows, sr)
	}
	return sheet, nil
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return core.CleanString(row[col])
}
