package engine

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/arjunms/seatprep/internal/model"
)

// ErrHeaderMapRequired is returned when timetable validation is invoked
// without a header mapping. This is a configuration failure, not a
// row-level issue: the whole call aborts with no partial result.
var ErrHeaderMapRequired = errors.New("header mapping is required for timetable validation")

// headerRows is the offset between a 0-based row index and the row number
// shown to the user: spreadsheets are 1-based and carry a header row.
const headerRows = 2

// ValidateStudentRows validates raw student rows into clean records and a
// list of issues. Every input row yields exactly one record, no matter
// how many issues it raises.
func ValidateStudentRows(rows []model.StudentRow) ([]model.StudentRecord, []model.ValidationIssue) {
	records := make([]model.StudentRecord, 0, len(rows))
	issues := []model.ValidationIssue{}
	seen := make(map[string]struct{})

	for i, row := range rows {
		rec := model.StudentRecord{
			RegNo:      cellString(row[model.FieldRegNo]),
			Department: cellString(row[model.FieldDepartment]),
			Name:       cellString(row[model.FieldName]),
			Subjects:   subjectList(row[model.FieldSubject]),
		}

		if rec.RegNo == "" {
			issues = append(issues, newIssue(i, model.IssueMissingRegistration, "Registration number is required"))
		} else if _, dup := seen[rec.RegNo]; dup {
			// Only repeat occurrences are marked; the first row holding a
			// later-duplicated number stays unmarked.
			issues = append(issues, newIssue(i, model.IssueDuplicateRegistration, "Duplicate registration number"))
			rec.Duplicate = true
		} else {
			seen[rec.RegNo] = struct{}{}
		}

		if sem, ok := parseSemester(row[model.FieldSemester]); !ok || sem < 1 || sem > 8 {
			issues = append(issues, newIssue(i, model.IssueMissingSemester, "Invalid or missing semester"))
		} else {
			rec.Semester = sem
		}

		if rec.Department == "" {
			issues = append(issues, newWarning(i, model.IssueMissingDepartment, "Missing department"))
		}
		if len(rec.Subjects) == 0 {
			issues = append(issues, newWarning(i, model.IssueNoSubjects, "No subjects selected"))
		}

		records = append(records, rec)
	}

	return records, issues
}

// ValidateTimetableRows projects raw positional rows through the header
// map and validates the result. Required-field failures accumulate per
// row; a missing header map aborts the whole call.
func ValidateTimetableRows(rows []model.TimetableRow, headers model.HeaderMap) ([]model.TimetableEntry, []model.ValidationIssue, error) {
	if headers == nil {
		return nil, nil, ErrHeaderMapRequired
	}

	entries := make([]model.TimetableEntry, 0, len(rows))
	issues := []model.ValidationIssue{}

	for i, row := range rows {
		entry := model.TimetableEntry{
			ExamDate:    cellAt(row, headers, model.FieldExamDate),
			SubjectCode: cellAt(row, headers, model.FieldSubjectCode),
			SubjectName: cellAt(row, headers, model.FieldSubjectName),
			Semester:    cellAt(row, headers, model.FieldSemester),
		}

		if entry.ExamDate == "" {
			issues = append(issues, newIssue(i, model.IssueMissingDate, "Missing exam date"))
		}

		session := NormalizeSession(cellAt(row, headers, model.FieldSession))
		if session == "" {
			issues = append(issues, newIssue(i, model.IssueMissingSession, "Invalid session"))
		} else {
			entry.Session = session
		}

		if entry.SubjectCode == "" {
			issues = append(issues, newIssue(i, model.IssueMissingSubjectCode, "Missing subject code"))
		}

		// No duplicate detection for timetable rows. Repeated
		// (date, session, subject) rows collapse later during
		// normalization instead.
		entries = append(entries, entry)
	}

	return entries, issues, nil
}

// NormalizeSession maps the spellings accepted for an exam session to
// the two canonical values. Unrecognized input yields "".
func NormalizeSession(value string) model.Session {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "FN", "FORENOON", "MORNING", "AM":
		return model.SessionForenoon
	case "AN", "AFTERNOON", "EVENING", "PM":
		return model.SessionAfternoon
	default:
		return ""
	}
}

func newIssue(rowIndex int, typ model.IssueType, message string) model.ValidationIssue {
	return model.ValidationIssue{
		ID:       uuid.NewString(),
		Type:     typ,
		Message:  message,
		Severity: model.SeverityError,
		Row:      rowIndex + headerRows,
	}
}

func newWarning(rowIndex int, typ model.IssueType, message string) model.ValidationIssue {
	return model.ValidationIssue{
		ID:       uuid.NewString(),
		Type:     typ,
		Message:  message,
		Severity: model.SeverityWarning,
		Row:      rowIndex + headerRows,
	}
}

// subjectList accepts only a genuine list in the SUBJECT field; each
// entry is trimmed and uppercased, blanks dropped. Anything that is not
// a list quietly becomes an empty subject set, which surfaces to the
// user as a no_subjects warning rather than a type error.
func subjectList(v any) []string {
	var cells []any
	switch vv := v.(type) {
	case []any:
		cells = vv
	case []string:
		cells = make([]any, len(vv))
		for i, s := range vv {
			cells[i] = s
		}
	default:
		return []string{}
	}

	subjects := []string{}
	for _, c := range cells {
		s := strings.ToUpper(cellString(c))
		if s != "" {
			subjects = append(subjects, s)
		}
	}
	return subjects
}

// cellAt reads one projected field from a positional row. Unmapped
// fields, out-of-range indexes, and blank cells all read as "".
func cellAt(row model.TimetableRow, headers model.HeaderMap, field string) string {
	col, ok := headers[field]
	if !ok || col < 0 || col >= len(row) {
		return ""
	}
	return cellString(row[col])
}

// cellString renders an arbitrary cell value as a trimmed string.
// Numeric cells arrive as float64 after JSON decoding; whole numbers are
// rendered without a fractional part so "3" and 3.0 compare equal.
func cellString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		if s == math.Trunc(s) && !math.IsInf(s, 0) {
			return strconv.FormatInt(int64(s), 10)
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case int:
		return strconv.Itoa(s)
	default:
		return strings.TrimSpace(fmt.Sprint(v))
	}
}

func parseSemester(v any) (int, bool) {
	switch s := v.(type) {
	case float64:
		return int(s), true
	case int:
		return s, true
	default:
		n, err := strconv.Atoi(cellString(v))
		if err != nil {
			return 0, false
		}
		return n, true
	}
}
