package tabular

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/arjunms/seatprep/internal/model"
)

// sampleSize caps how many data rows feed column-type detection.
const sampleSize = 10

var (
	registrationPattern = regexp.MustCompile(`(?i)^[A-Z0-9]{6,12}$`)
	semesterPattern     = regexp.MustCompile(`^[1-8]$`)
	departmentPattern   = regexp.MustCompile(`(?i)^(CSE|ECE|ME|CE|EEE|IT|CS|EC|EE)$`)
	subjectCodePattern  = regexp.MustCompile(`(?i)^[A-Z]{2,3}\s?[0-9]{3}$`)
	namePattern         = regexp.MustCompile(`^[A-Z][a-z]+(\s+[A-Z][a-z]+)*$`)
)

// ColumnInfo is a content-based guess at what one column holds, built
// from a handful of sample values.
type ColumnInfo struct {
	Header         string
	Index          int
	IsRegistration bool
	IsSemester     bool
	IsDepartment   bool
	IsSubjectCode  bool
	IsName         bool
	Samples        []string
}

// DetectColumns analyzes each column's sample values against the known
// content patterns. A column can match several patterns; header-name
// matching takes precedence when mapping, this is the fallback.
func DetectColumns(t *Table) []ColumnInfo {
	infos := make([]ColumnInfo, 0, len(t.Headers))
	for idx, header := range t.Headers {
		info := ColumnInfo{Header: header, Index: idx}
		for _, row := range t.Rows {
			if len(info.Samples) >= sampleSize {
				break
			}
			if v := cell(row, idx); v != "" {
				info.Samples = append(info.Samples, v)
			}
		}
		for _, v := range info.Samples {
			info.IsRegistration = info.IsRegistration || registrationPattern.MatchString(v)
			info.IsSemester = info.IsSemester || semesterPattern.MatchString(v)
			info.IsDepartment = info.IsDepartment || departmentPattern.MatchString(v)
			info.IsSubjectCode = info.IsSubjectCode || subjectCodePattern.MatchString(v)
			info.IsName = info.IsName || namePattern.MatchString(v)
		}
		infos = append(infos, info)
	}
	return infos
}

// header synonym tables for name-based mapping, checked as normalized
// substrings of the uploaded header text.
var studentSynonyms = map[string][]string{
	model.FieldRegNo:      {"REG NO", "REGNO", "REGISTRATION", "ROLL"},
	model.FieldDepartment: {"DEPARTMENT", "DEPT", "BRANCH"},
	model.FieldName:       {"STUDENT NAME", "NAME"},
	model.FieldSemester:   {"SEMESTER", "SEM"},
}

var timetableSynonyms = map[string][]string{
	model.FieldExamDate:    {"EXAM DATE", "DATE"},
	model.FieldSession:     {"SESSION", "SHIFT", "SITTING"},
	model.FieldSubjectCode: {"SUBJECT CODE", "COURSE CODE", "CODE"},
	model.FieldSubjectName: {"SUBJECT NAME", "COURSE NAME", "SUBJECT TITLE"},
	model.FieldSemester:    {"SEMESTER", "SEM"},
}

func normalizeHeader(h string) string {
	h = strings.ToUpper(strings.TrimSpace(h))
	for _, ch := range []string{"_", "-", ".", "/"} {
		h = strings.ReplaceAll(h, ch, " ")
	}
	return strings.Join(strings.Fields(h), " ")
}

func matchHeader(headers []string, synonyms []string, claimed map[int]bool) int {
	for _, syn := range synonyms {
		for idx, h := range headers {
			if claimed[idx] {
				continue
			}
			if strings.Contains(normalizeHeader(h), syn) {
				return idx
			}
		}
	}
	return -1
}

// GuessStudentHeaders maps a student sheet's columns to the validator's
// fields, by header name first and detected content second. Subject
// columns are every header mentioning SUBJECT, falling back to columns
// whose samples look like subject codes. Registration and at least one
// subject column are required; the rest degrade to unmapped.
func GuessStudentHeaders(t *Table) (*model.StudentHeaders, error) {
	claimed := make(map[int]bool)
	h := &model.StudentHeaders{RegNo: -1, Department: -1, Name: -1, Semester: -1}

	// Subject columns first, so a header like "SUBJECT 1" is not
	// claimed by the NAME synonym pass.
	for idx, header := range t.Headers {
		if strings.Contains(normalizeHeader(header), "SUBJECT") {
			h.Subjects = append(h.Subjects, idx)
			claimed[idx] = true
		}
	}

	for _, field := range []string{model.FieldRegNo, model.FieldSemester, model.FieldDepartment, model.FieldName} {
		if idx := matchHeader(t.Headers, studentSynonyms[field], claimed); idx >= 0 {
			claimed[idx] = true
			switch field {
			case model.FieldRegNo:
				h.RegNo = idx
			case model.FieldSemester:
				h.Semester = idx
			case model.FieldDepartment:
				h.Department = idx
			case model.FieldName:
				h.Name = idx
			}
		}
	}

	// Content-based fallback for anything the headers did not name.
	infos := DetectColumns(t)
	for _, info := range infos {
		if claimed[info.Index] {
			continue
		}
		switch {
		case h.RegNo < 0 && info.IsRegistration:
			h.RegNo = info.Index
			claimed[info.Index] = true
		case h.Semester < 0 && info.IsSemester:
			h.Semester = info.Index
			claimed[info.Index] = true
		case h.Department < 0 && info.IsDepartment:
			h.Department = info.Index
			claimed[info.Index] = true
		case len(h.Subjects) == 0 && info.IsSubjectCode:
			h.Subjects = append(h.Subjects, info.Index)
			claimed[info.Index] = true
		case h.Name < 0 && info.IsName:
			h.Name = info.Index
			claimed[info.Index] = true
		}
	}

	if h.RegNo < 0 {
		return nil, fmt.Errorf("no registration number column found")
	}
	if len(h.Subjects) == 0 {
		return nil, fmt.Errorf("no subject columns found")
	}
	return h, nil
}

// GuessTimetableHeaders maps a timetable sheet's columns to field names.
// Date, session, and subject code are required.
func GuessTimetableHeaders(t *Table) (model.HeaderMap, error) {
	claimed := make(map[int]bool)
	headers := model.HeaderMap{}

	for _, field := range []string{
		model.FieldSession,
		model.FieldSubjectCode,
		model.FieldSubjectName,
		model.FieldExamDate,
		model.FieldSemester,
	} {
		if idx := matchHeader(t.Headers, timetableSynonyms[field], claimed); idx >= 0 {
			headers[field] = idx
			claimed[idx] = true
		}
	}

	for _, field := range []string{model.FieldExamDate, model.FieldSession, model.FieldSubjectCode} {
		if _, ok := headers[field]; !ok {
			return nil, fmt.Errorf("no %s column found", strings.ToLower(field))
		}
	}
	return headers, nil
}
