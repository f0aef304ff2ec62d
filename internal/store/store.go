// Package store persists per-exam datasets in SQLite and orchestrates the
// validation, reconciliation, and normalization engines over them. Each
// exam id owns an independent state bundle; accessors tolerate ids that
// were never written and hand back empty defaults.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arjunms/seatprep/internal/engine"
	"github.com/arjunms/seatprep/internal/model"
)

type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS exam_data (
		exam_id TEXT PRIMARY KEY,
		raw_students TEXT NOT NULL DEFAULT 'null',
		raw_timetable TEXT NOT NULL DEFAULT 'null',
		students TEXT NOT NULL DEFAULT '[]',
		timetable TEXT NOT NULL DEFAULT '[]',
		issues TEXT NOT NULL DEFAULT '[]',
		subject_mappings TEXT NOT NULL DEFAULT '{}',
		student_headers TEXT NOT NULL DEFAULT 'null',
		timetable_headers TEXT NOT NULL DEFAULT 'null',
		updated_at DATETIME NOT NULL
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// ExamState loads the full state bundle for an exam id. Unknown ids read
// as the empty state, never as an error.
func (s *Store) ExamState(examID string) (model.ExamState, error) {
	var cols [8][]byte
	err := s.db.QueryRow(
		`SELECT raw_students, raw_timetable, students, timetable, issues,
		        subject_mappings, student_headers, timetable_headers
		 FROM exam_data WHERE exam_id = ?`, examID,
	).Scan(&cols[0], &cols[1], &cols[2], &cols[3], &cols[4], &cols[5], &cols[6], &cols[7])

	var st model.ExamState
	if err == sql.ErrNoRows {
		st.Normalize()
		return st, nil
	}
	if err != nil {
		return st, fmt.Errorf("load exam %s: %w", examID, err)
	}

	for i, dst := range []any{
		&st.RawStudents, &st.RawTimetable, &st.Students, &st.Timetable,
		&st.Issues, &st.SubjectMappings, &st.StudentHeaders, &st.TimetableHeaders,
	} {
		if err := json.Unmarshal(cols[i], dst); err != nil {
			return st, fmt.Errorf("decode exam %s: %w", examID, err)
		}
	}
	st.Normalize()
	return st, nil
}

func (s *Store) saveExamState(examID string, st model.ExamState) error {
	var cols [8][]byte
	for i, src := range []any{
		st.RawStudents, st.RawTimetable, st.Students, st.Timetable,
		st.Issues, st.SubjectMappings, st.StudentHeaders, st.TimetableHeaders,
	} {
		b, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encode exam %s: %w", examID, err)
		}
		cols[i] = b
	}

	_, err := s.db.Exec(
		`INSERT INTO exam_data (exam_id, raw_students, raw_timetable, students, timetable,
		                        issues, subject_mappings, student_headers, timetable_headers, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(exam_id) DO UPDATE SET
		   raw_students = excluded.raw_students,
		   raw_timetable = excluded.raw_timetable,
		   students = excluded.students,
		   timetable = excluded.timetable,
		   issues = excluded.issues,
		   subject_mappings = excluded.subject_mappings,
		   student_headers = excluded.student_headers,
		   timetable_headers = excluded.timetable_headers,
		   updated_at = excluded.updated_at`,
		examID, cols[0], cols[1], cols[2], cols[3], cols[4], cols[5], cols[6], cols[7], time.Now(),
	)
	if err != nil {
		return fmt.Errorf("save exam %s: %w", examID, err)
	}
	return nil
}

// SetRawStudentData validates and stores a student upload. The clean
// record set is replaced wholesale; the issue list keeps accumulating
// across uploads. That asymmetry carries the re-upload-to-fix flow, at
// the cost of earlier issues surviving until the exam is cleared.
func (s *Store) SetRawStudentData(examID string, rows []model.StudentRow, headers *model.StudentHeaders) ([]model.ValidationIssue, error) {
	records, issues := engine.ValidateStudentRows(rows)

	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}
	st.RawStudents = rows
	st.StudentHeaders = headers
	st.Students = records
	st.Issues = append(st.Issues, issues...)

	if err := s.saveExamState(examID, st); err != nil {
		return nil, err
	}
	return issues, nil
}

// SetRawTimetableData validates and stores a timetable upload, with the
// same replace-records/append-issues behavior as the student path. A nil
// header map is a configuration failure: nothing is written.
func (s *Store) SetRawTimetableData(examID string, rows []model.TimetableRow, headers model.HeaderMap) ([]model.ValidationIssue, error) {
	entries, issues, err := engine.ValidateTimetableRows(rows, headers)
	if err != nil {
		return nil, err
	}

	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}
	st.RawTimetable = rows
	st.TimetableHeaders = headers
	st.Timetable = entries
	st.Issues = append(st.Issues, issues...)

	if err := s.saveExamState(examID, st); err != nil {
		return nil, err
	}
	return issues, nil
}

// StudentData returns the clean student records for an exam.
func (s *Store) StudentData(examID string) ([]model.StudentRecord, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}
	return st.Students, nil
}

// TimetableData returns the clean timetable entries for an exam.
func (s *Store) TimetableData(examID string) ([]model.TimetableEntry, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}
	return st.Timetable, nil
}

// ClearExamData resets every field for an exam id back to its empty
// default. Other exam ids are untouched.
func (s *Store) ClearExamData(examID string) error {
	var empty model.ExamState
	empty.Normalize()
	return s.saveExamState(examID, empty)
}

// ListExamIDs returns all exam ids with stored state, oldest write first.
func (s *Store) ListExamIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT exam_id FROM exam_data ORDER BY updated_at, exam_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
