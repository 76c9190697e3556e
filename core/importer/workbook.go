package importer

import (
	"bytes"
	"encoding/csv"
	"io"
	"path/filepath"
	"strings"

	"github.com/extrame/xls"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Grid is the raw text of a sheet: rows of cells, padded to the same width.
type Grid [][]string

var (
	zipMagic = []byte("PK\x03\x04")
	cfbMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// xlsCharset is used for legacy .xls strings stored in 8-bit code pages.
const xlsCharset = "utf-8"

// ParseWorkbook decodes the first sheet of an .xlsx, .xls or .csv file.
// The format is sniffed from the content; filename is only used in error messages and as a CSV hint.
func ParseWorkbook(data []byte, filename string) (Grid, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, newParseError(filename, errors.New("empty file"))
	}

	var (
		rows [][]string
		err  error
	)
	switch {
	case bytes.HasPrefix(data, zipMagic):
		rows, err = readXLSX(data)
	case bytes.HasPrefix(data, cfbMagic):
		rows, err = readXLS(data)
	case isText(data, filename):
		rows, err = readCSV(data)
	default:
		err = errors.New("unsupported file format")
	}
	if err != nil {
		return nil, newParseError(filename, err)
	}

	grid := normalize(rows)
	if len(grid) == 0 {
		return nil, newParseError(filename, errors.New("the first sheet is empty"))
	}
	return grid, nil
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrap(err, "excelize.OpenReader")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets found")
	}
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	return rows, errors.Wrap(err, "excelize.GetRows")
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), xlsCharset)
	if err != nil {
		return nil, errors.Wrap(err, "xls.OpenReader")
	}
	if wb.NumSheets() == 0 {
		return nil, errors.New("no sheets found")
	}
	sheet := wb.GetSheet(0)
	if sheet == nil {
		return nil, errors.New("no sheets found")
	}

	rows := make([][]string, 0, int(sheet.MaxRow)+1)
	for r := 0; r <= int(sheet.MaxRow); r++ {
		row := sheet.Row(r)
		if row == nil {
			rows = append(rows, nil)
			continue
		}
		cells := make([]string, 0, row.LastCol())
		for c := 0; c < row.LastCol(); c++ {
			cells = append(cells, row.Col(c))
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func readCSV(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")) // BOM
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "csv.Read")
		}
		rows = append(rows, rec)
	}
	return rows, nil
}

func isText(data []byte, filename string) bool {
	if ext := strings.ToLower(filepath.Ext(filename)); ext == ".csv" || ext == ".txt" {
		return true
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	return !bytes.ContainsRune(head, 0) && (bytes.ContainsAny(head, ",;\t") || bytes.ContainsRune(head, '\n'))
}

// normalize drops trailing blank rows and pads every row to the widest one.
func normalize(rows [][]string) Grid {
	last := -1
	width := 0
	for i, row := range rows {
		if !isBlankRow(row) {
			last = i
		}
		for j := len(row); j > 0; j-- {
			if strings.TrimSpace(row[j-1]) != "" {
				if j > width {
					width = j
				}
				break
			}
		}
	}
	if last < 0 {
		return nil
	}

	grid := make(Grid, 0, last+1)
	for _, row := range rows[:last+1] {
		cells := make([]string, width)
		copy(cells, row)
		for j := range cells {
			cells[j] = strings.TrimSpace(cells[j])
		}
		grid = append(grid, cells)
	}
	return grid
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
