package importer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectMaxMarksRow(t *testing.T) {
	header := []string{"Roll#", "Class", "Name", "Father", "Physics", "Chemistry"}
	cm := ColumnMap{Roll: 0, Class: 1, Name: 2, Father: 3, Total: -1, Percentage: -1, Candidates: []int{4, 5}}

	tests := []struct {
		name string
		grid Grid
		want RowLayout
	}{
		{
			name: "max marks label",
			grid: Grid{header, {"Max Marks", "-", "-", "-", "100", "75"}},
			want: RowLayout{HasMaxRow: true, StartRow: 2, MaxMarks: map[int]float64{4: 100, 5: 75}},
		},
		{
			name: "blank identifiers",
			grid: Grid{header, {"", "", "", "", "50", "-"}},
			want: RowLayout{HasMaxRow: true, StartRow: 2, MaxMarks: map[int]float64{4: 50, 5: 0}},
		},
		{
			name: "label in the name column",
			grid: Grid{header, {"0", "", "MAXIMUM", "", "100", ""}},
			want: RowLayout{HasMaxRow: true, StartRow: 2, MaxMarks: map[int]float64{4: 100, 5: 0}},
		},
		{
			name: "student row",
			grid: Grid{header, {"1", "9", "Ali", "Khan", "85", "90"}},
			want: RowLayout{StartRow: 1, MaxMarks: map[int]float64{4: 100, 5: 100}},
		},
		{
			name: "header only",
			grid: Grid{header},
			want: RowLayout{StartRow: 1, MaxMarks: map[int]float64{4: 100, 5: 100}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectMaxMarksRow(tt.grid, cm))
		})
	}
}

func TestAnalyze(t *testing.T) {
	grid := Grid{
		{"Roll#", "Class", "Name", "Father", "Physics", "Chemistry", "Urdu", "Total"},
		{"Max Marks", "-", "-", "-", "100", "", "50", ""},
		{"1", "9", "Ali", "Khan", "85", "90", "-", "175"},
		{"", "", "", "", "", "", "", ""},
		{"2", "9TH", "", "", "70", "A", "A", "70"},
	}

	sheet, err := Analyze(grid)
	assert.NoError(t, err)
	assert.Equal(t, []SubjectColumn{{Name: "Physics", MaxMarks: 100}, {Name: "Chemistry", MaxMarks: 0}}, sheet.Subjects)
	assert.Equal(t, []StudentRow{
		{RollNumber: "1", ClassName: "9th", FullName: "Ali", FatherName: "Khan", Marks: []string{"85", "90"}},
		{RollNumber: "2", ClassName: "9th", Marks: []string{"70", "A"}},
	}, sheet.Rows)
	assert.Len(t, sheet.Warnings, 3) // zero max, skipped Urdu, nameless row
	assert.Equal(t, []int{4, 5}, sheet.Columns.Subjects)

	_, err = Analyze(Grid{{"Physics"}})
	assert.IsType(t, &MissingColumnError{}, err)
}
