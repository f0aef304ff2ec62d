// Package tabular turns tabular files into the row shapes the validators
// consume: a header list plus data rows, column-type detection, and
// header-to-field mapping. It stands in for the spreadsheet-upload layer
// of the UI.
package tabular

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/arjunms/seatprep/internal/model"
)

// Table is one parsed sheet: a header row and its data rows. Rows may be
// ragged; readers pad or truncate as they project fields.
type Table struct {
	Headers []string
	Rows    [][]string
}

// ReadCSV parses a CSV file into a Table. The first record is the header
// row; rows with no non-blank cell are dropped, matching how spreadsheet
// exports pad trailing emptiness.
func ReadCSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	t, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return t, nil
}

// Read parses CSV data from a reader into a Table.
func Read(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("file appears to be empty")
	}

	t := &Table{Headers: records[0]}
	for _, row := range records[1:] {
		if rowBlank(row) {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

func rowBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// cell reads a column from a possibly short row.
func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

// StudentRows projects a table through a student header mapping into the
// pre-mapped row objects the validator takes. Subject cells come from
// every mapped subject column; blanks are kept out here so a row with no
// subject cells reads as an empty list, not a list of empties.
func StudentRows(t *Table, h model.StudentHeaders) []model.StudentRow {
	rows := make([]model.StudentRow, 0, len(t.Rows))
	for _, raw := range t.Rows {
		subjects := make([]any, 0, len(h.Subjects))
		for _, col := range h.Subjects {
			if v := cell(raw, col); v != "" {
				subjects = append(subjects, v)
			}
		}
		rows = append(rows, model.StudentRow{
			model.FieldRegNo:      cell(raw, h.RegNo),
			model.FieldDepartment: cell(raw, h.Department),
			model.FieldName:       cell(raw, h.Name),
			model.FieldSemester:   cell(raw, h.Semester),
			model.FieldSubject:    subjects,
		})
	}
	return rows
}

// TimetableRows converts table rows to the positional form the timetable
// validator reads through its header map.
func TimetableRows(t *Table) []model.TimetableRow {
	rows := make([]model.TimetableRow, 0, len(t.Rows))
	for _, raw := range t.Rows {
		row := make(model.TimetableRow, len(raw))
		for i, v := range raw {
			row[i] = v
		}
		rows = append(rows, row)
	}
	return rows
}
