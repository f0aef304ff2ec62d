package store

import (
	"errors"
	"reflect"
	"testing"

	"github.com/arjunms/seatprep/internal/engine"
	"github.com/arjunms/seatprep/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatalf("newTestStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func studentRow(regNo, dept, semester string, subjects ...string) model.StudentRow {
	cells := make([]any, len(subjects))
	for i, s := range subjects {
		cells[i] = s
	}
	return model.StudentRow{
		model.FieldRegNo:      regNo,
		model.FieldDepartment: dept,
		model.FieldSemester:   semester,
		model.FieldSubject:    cells,
	}
}

var testTimetableHeaders = model.HeaderMap{
	model.FieldExamDate:    0,
	model.FieldSession:     1,
	model.FieldSubjectCode: 2,
	model.FieldSubjectName: 3,
}

func TestExamStateUnknownID(t *testing.T) {
	s := newTestStore(t)

	st, err := s.ExamState("never-written")
	if err != nil {
		t.Fatalf("ExamState: %v", err)
	}
	if len(st.Students) != 0 || len(st.Timetable) != 0 || len(st.Issues) != 0 {
		t.Errorf("expected empty collections, got %+v", st)
	}
	if st.SubjectMappings == nil {
		t.Error("expected non-nil empty mapping table")
	}
	if st.Phase() != model.PhaseEmpty {
		t.Errorf("expected phase empty, got %q", st.Phase())
	}
}

func TestSetRawStudentData(t *testing.T) {
	s := newTestStore(t)

	rows := []model.StudentRow{
		studentRow("S1", "CSE", "3", "cs401"),
		studentRow("S1", "ECE", "4", "ec101"),
	}
	issues, err := s.SetRawStudentData("exam-1", rows, nil)
	if err != nil {
		t.Fatalf("SetRawStudentData: %v", err)
	}
	if len(issues) != 1 || issues[0].Type != model.IssueDuplicateRegistration {
		t.Fatalf("expected one duplicate_registration issue, got %v", issues)
	}
	if issues[0].Row != 3 {
		t.Errorf("expected issue at row 3, got %d", issues[0].Row)
	}

	students, err := s.StudentData("exam-1")
	if err != nil {
		t.Fatalf("StudentData: %v", err)
	}
	if len(students) != 2 {
		t.Fatalf("expected 2 records, got %d", len(students))
	}
	if students[0].Duplicate || !students[1].Duplicate {
		t.Error("only the second occurrence should be marked duplicate")
	}

	phase, _ := s.Phase("exam-1")
	if phase != model.PhaseStudentsOnly {
		t.Errorf("expected phase students_only, got %q", phase)
	}
}

func TestReuploadReplacesRecordsAccumulatesIssues(t *testing.T) {
	s := newTestStore(t)

	// First upload: one bad row.
	if _, err := s.SetRawStudentData("exam-1", []model.StudentRow{
		studentRow("", "CSE", "3", "cs401"),
	}, nil); err != nil {
		t.Fatalf("first upload: %v", err)
	}

	// Second upload fixes the data.
	if _, err := s.SetRawStudentData("exam-1", []model.StudentRow{
		studentRow("S1", "CSE", "3", "cs401"),
	}, nil); err != nil {
		t.Fatalf("second upload: %v", err)
	}

	students, _ := s.StudentData("exam-1")
	if len(students) != 1 || students[0].RegNo != "S1" {
		t.Fatalf("expected records replaced wholesale, got %v", students)
	}

	// The first upload's issue is still in the bin.
	bin, _ := s.IssueBin("exam-1")
	found := false
	for _, is := range bin {
		if is.Type == model.IssueMissingRegistration {
			found = true
		}
	}
	if !found {
		t.Error("expected issue list to accumulate across uploads")
	}
}

func TestSetRawTimetableData(t *testing.T) {
	s := newTestStore(t)

	rows := []model.TimetableRow{
		{"2026-04-01", "Morning", "CS401", "Data Structures"},
	}
	issues, err := s.SetRawTimetableData("exam-1", rows, testTimetableHeaders)
	if err != nil {
		t.Fatalf("SetRawTimetableData: %v", err)
	}
	if len(issues) != 0 {
		t.Fatalf("expected no issues, got %v", issues)
	}

	timetable, _ := s.TimetableData("exam-1")
	if len(timetable) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(timetable))
	}
	if timetable[0].Session != model.SessionForenoon {
		t.Errorf("expected normalized session FN, got %q", timetable[0].Session)
	}

	phase, _ := s.Phase("exam-1")
	if phase != model.PhaseTimetableOnly {
		t.Errorf("expected phase timetable_only, got %q", phase)
	}
}

func TestSetRawTimetableDataNilHeaders(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SetRawTimetableData("exam-1", []model.TimetableRow{{"2026-04-01"}}, nil)
	if !errors.Is(err, engine.ErrHeaderMapRequired) {
		t.Fatalf("expected ErrHeaderMapRequired, got %v", err)
	}

	// Nothing was written.
	st, _ := s.ExamState("exam-1")
	if len(st.Timetable) != 0 || st.RawTimetable != nil {
		t.Error("failed validation must not persist partial state")
	}
}

func TestIssueBinModifiers(t *testing.T) {
	s := newTestStore(t)

	if err := s.AddIssues("exam-1", []model.ValidationIssue{
		{ID: "a", Type: model.IssueMissingDate, Message: "Missing exam date", Severity: model.SeverityError, Row: 2},
		{ID: "b", Type: model.IssueMissingSession, Message: "Invalid session", Severity: model.SeverityError, Row: 2},
	}); err != nil {
		t.Fatalf("AddIssues: %v", err)
	}

	if err := s.RemoveIssue("exam-1", "a"); err != nil {
		t.Fatalf("RemoveIssue: %v", err)
	}
	bin, _ := s.IssueBin("exam-1")
	if len(bin) != 1 || bin[0].ID != "b" {
		t.Fatalf("expected only issue b, got %v", bin)
	}

	updated := bin[0]
	updated.Message = "Session could not be read"
	if err := s.UpdateIssue("exam-1", updated); err != nil {
		t.Fatalf("UpdateIssue: %v", err)
	}
	bin, _ = s.IssueBin("exam-1")
	if bin[0].Message != "Session could not be read" {
		t.Errorf("expected updated message, got %q", bin[0].Message)
	}

	// Removing an unknown id is a no-op.
	if err := s.RemoveIssue("exam-1", "ghost"); err != nil {
		t.Fatalf("RemoveIssue unknown: %v", err)
	}
}

func loadBothDatasets(t *testing.T, s *Store, examID string) {
	t.Helper()
	if _, err := s.SetRawStudentData(examID, []model.StudentRow{
		studentRow("S1", "CSE", "3", "DATA STRUCTURES", "EC101"),
		studentRow("S2", "CSE", "3", "DATA STRUCTURES"),
	}, nil); err != nil {
		t.Fatalf("load students: %v", err)
	}
	if _, err := s.SetRawTimetableData(examID, []model.TimetableRow{
		{"2026-04-01", "FN", "DATA STRUCTURE", "Data Structures"},
		{"2026-04-02", "AN", "EC101", "Electronics"},
	}, testTimetableHeaders); err != nil {
		t.Fatalf("load timetable: %v", err)
	}
}

func TestConflictLifecycle(t *testing.T) {
	s := newTestStore(t)
	loadBothDatasets(t, s, "exam-1")

	groups, err := s.ProcessSubjectConflicts("exam-1")
	if err != nil {
		t.Fatalf("ProcessSubjectConflicts: %v", err)
	}
	var dsGroup *model.SubjectConflictGroup
	for i := range groups {
		for _, subj := range groups[i].Subjects {
			if subj == "DATA STRUCTURES" {
				dsGroup = &groups[i]
			}
		}
	}
	if dsGroup == nil {
		t.Fatalf("expected a group containing DATA STRUCTURES, got %v", groups)
	}
	if dsGroup.Resolved {
		t.Error("group must start unresolved")
	}

	mappings, err := s.ResolveSubjectConflict("exam-1", dsGroup.ID, "DATA STRUCTURES", dsGroup.Subjects)
	if err != nil {
		t.Fatalf("ResolveSubjectConflict: %v", err)
	}
	if mappings["DATA STRUCTURE"] != "DATA STRUCTURES" {
		t.Errorf("expected alias mapped to canonical, got %v", mappings)
	}
	if mappings["DATA STRUCTURES"] != "DATA STRUCTURES" {
		t.Error("canonical must map to itself")
	}

	// Recomputing conflicts now reports the group resolved.
	groups, err = s.ProcessSubjectConflicts("exam-1")
	if err != nil {
		t.Fatalf("ProcessSubjectConflicts after resolve: %v", err)
	}
	for _, g := range groups {
		for _, subj := range g.Subjects {
			if subj == "DATA STRUCTURE" && !g.Resolved {
				t.Errorf("expected group %s resolved, got %+v", g.ID, g)
			}
		}
	}
}

func TestPrepareAtomicDataset(t *testing.T) {
	s := newTestStore(t)
	loadBothDatasets(t, s, "exam-1")

	if _, err := s.ResolveSubjectConflict("exam-1", "group-0", "DATA STRUCTURES",
		[]string{"DATA STRUCTURE", "DATA STRUCTURES"}); err != nil {
		t.Fatalf("ResolveSubjectConflict: %v", err)
	}

	ds, err := s.PrepareAtomicDataset("exam-1")
	if err != nil {
		t.Fatalf("PrepareAtomicDataset: %v", err)
	}
	if ds.StudentCount != 2 {
		t.Errorf("expected student count 2, got %d", ds.StudentCount)
	}
	if len(ds.Days) != 2 {
		t.Fatalf("expected 2 days, got %d", len(ds.Days))
	}

	day1 := ds.Days[0]
	if day1.Subjects[0].Code != "DATA STRUCTURES" {
		t.Errorf("expected remapped code, got %q", day1.Subjects[0].Code)
	}
	if !reflect.DeepEqual(day1.Students, []string{"S1", "S2"}) {
		t.Errorf("expected day 1 students [S1 S2], got %v", day1.Students)
	}
	if !reflect.DeepEqual(ds.Days[1].Students, []string{"S1"}) {
		t.Errorf("expected day 2 students [S1], got %v", ds.Days[1].Students)
	}
}

func TestValidationStatus(t *testing.T) {
	s := newTestStore(t)

	// Empty exam: nothing ready, synthetic issues present.
	status, err := s.ValidationStatus("exam-1")
	if err != nil {
		t.Fatalf("ValidationStatus: %v", err)
	}
	if status.Ready() {
		t.Error("empty exam must not be ready")
	}
	if status.Phase != model.PhaseEmpty {
		t.Errorf("expected phase empty, got %q", status.Phase)
	}
	ids := map[string]bool{}
	for _, is := range status.Issues {
		ids[is.ID] = true
	}
	if !ids["no-students"] || !ids["no-timetable"] {
		t.Errorf("expected synthetic issues, got %v", status.Issues)
	}

	loadBothDatasets(t, s, "exam-1")
	if _, err := s.ResolveSubjectConflict("exam-1", "group-0", "DATA STRUCTURES",
		[]string{"DATA STRUCTURE", "DATA STRUCTURES"}); err != nil {
		t.Fatalf("ResolveSubjectConflict: %v", err)
	}

	status, err = s.ValidationStatus("exam-1")
	if err != nil {
		t.Fatalf("ValidationStatus: %v", err)
	}
	if !status.StudentDataReady || !status.TimetableDataReady {
		t.Error("expected both datasets ready")
	}
	if !status.NoDuplicateReg {
		t.Error("expected no duplicates")
	}
	if !status.SubjectMatch || !status.ConflictFreeSubjectMap {
		t.Error("expected subject mapping checks to pass")
	}
	if !status.StudentDaySlicing || !status.SeatRequirementCount {
		t.Error("expected day slicing checks to pass")
	}
	if !status.Ready() {
		t.Errorf("expected ready checklist, got %+v", status)
	}
	if status.Phase != model.PhaseBothLoaded {
		t.Errorf("expected phase both_loaded, got %q", status.Phase)
	}
}

func TestValidationStatusIdempotent(t *testing.T) {
	s := newTestStore(t)
	loadBothDatasets(t, s, "exam-1")

	first, err := s.ValidationStatus("exam-1")
	if err != nil {
		t.Fatalf("ValidationStatus: %v", err)
	}
	second, err := s.ValidationStatus("exam-1")
	if err != nil {
		t.Fatalf("ValidationStatus: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated status calls without writes must agree")
	}
}

func TestValidationStatusDuplicateBlocks(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.SetRawStudentData("exam-1", []model.StudentRow{
		studentRow("S1", "CSE", "3", "CS401"),
		studentRow("S1", "CSE", "3", "CS401"),
	}, nil); err != nil {
		t.Fatalf("SetRawStudentData: %v", err)
	}

	status, _ := s.ValidationStatus("exam-1")
	if status.NoDuplicateReg {
		t.Error("duplicate registrations must fail the checklist")
	}
}

func TestClearExamData(t *testing.T) {
	s := newTestStore(t)
	loadBothDatasets(t, s, "exam-1")
	loadBothDatasets(t, s, "exam-2")

	if err := s.ClearExamData("exam-1"); err != nil {
		t.Fatalf("ClearExamData: %v", err)
	}

	st, _ := s.ExamState("exam-1")
	if len(st.Students) != 0 || len(st.Timetable) != 0 || len(st.Issues) != 0 || len(st.SubjectMappings) != 0 {
		t.Errorf("expected cleared state, got %+v", st)
	}
	if st.RawStudents != nil || st.RawTimetable != nil {
		t.Error("expected raw data reset")
	}
	if phase, _ := s.Phase("exam-1"); phase != model.PhaseEmpty {
		t.Errorf("expected phase empty after clear, got %q", phase)
	}

	// Other exams are untouched.
	other, _ := s.StudentData("exam-2")
	if len(other) != 2 {
		t.Errorf("clearing one exam must not touch another, got %d records", len(other))
	}
}

func TestListExamIDs(t *testing.T) {
	s := newTestStore(t)

	ids, err := s.ListExamIDs()
	if err != nil {
		t.Fatalf("ListExamIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no ids, got %v", ids)
	}

	loadBothDatasets(t, s, "exam-1")
	loadBothDatasets(t, s, "exam-2")
	ids, _ = s.ListExamIDs()
	if len(ids) != 2 {
		t.Errorf("expected 2 ids, got %v", ids)
	}
}

func TestExport(t *testing.T) {
	s := newTestStore(t)
	loadBothDatasets(t, s, "exam-1")

	exp, err := s.Export("exam-1", false)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if exp.ExamID != "exam-1" || exp.State != nil {
		t.Errorf("unexpected export: %+v", exp)
	}
	if len(exp.Dataset.Days) == 0 {
		t.Error("expected dataset in export")
	}

	full, err := s.Export("exam-1", true)
	if err != nil {
		t.Fatalf("Export full: %v", err)
	}
	if full.State == nil || len(full.State.Students) != 2 {
		t.Error("expected full state in export")
	}
}

func TestStatePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/seatprep.db"

	s, err := New(path)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	loadBothDatasets(t, s, "exam-1")
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	st, err := reopened.ExamState("exam-1")
	if err != nil {
		t.Fatalf("ExamState after reopen: %v", err)
	}
	if len(st.Students) != 2 || len(st.Timetable) != 2 {
		t.Errorf("expected rehydrated state, got %d students, %d timetable rows",
			len(st.Students), len(st.Timetable))
	}
	if st.Phase() != model.PhaseBothLoaded {
		t.Errorf("expected phase both_loaded, got %q", st.Phase())
	}
}
