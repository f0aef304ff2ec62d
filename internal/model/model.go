package model

// StudentRow is one raw uploaded student row after the caller has applied
// its column mapping: field names are the canonical uppercase keys
// (REG_NO, DEPARTMENT, NAME, SEMESTER) and SUBJECT holds a list of cell
// values gathered from the mapped subject columns.
type StudentRow map[string]any

// Canonical field keys for student rows.
const (
	FieldRegNo      = "REG_NO"
	FieldDepartment = "DEPARTMENT"
	FieldName       = "NAME"
	FieldSemester   = "SEMESTER"
	FieldSubject    = "SUBJECT"
)

// TimetableRow is one raw uploaded timetable row, still positional.
// Cells are read through a HeaderMap.
type TimetableRow []any

// HeaderMap maps a timetable field name to its column index in a
// TimetableRow. A negative index means the field is not mapped.
type HeaderMap map[string]int

// Timetable field names recognized by the validator.
const (
	FieldExamDate    = "EXAM_DATE"
	FieldSession     = "SESSION"
	FieldSubjectCode = "SUBJECT_CODE"
	FieldSubjectName = "SUBJECT_NAME"
)

// StudentHeaders records how student spreadsheet columns were mapped.
// Subjects may span several columns, so it carries a list of indexes.
type StudentHeaders struct {
	RegNo      int   `json:"reg_no"`
	Department int   `json:"department"`
	Name       int   `json:"name"`
	Semester   int   `json:"semester"`
	Subjects   []int `json:"subjects"`
}

// Session is an exam sitting within a day.
type Session string

const (
	SessionForenoon  Session = "FN"
	SessionAfternoon Session = "AN"
)

// StudentRecord is a validated student row. Records are immutable once
// stored; a re-upload replaces the whole collection for an exam.
type StudentRecord struct {
	RegNo      string   `json:"reg_no"`
	Department string   `json:"department,omitempty"`
	Name       string   `json:"name,omitempty"`
	Semester   int      `json:"semester,omitempty"`
	Subjects   []string `json:"subjects"`
	Duplicate  bool     `json:"duplicate,omitempty"`
}

// TimetableEntry is a validated timetable row. Fields that failed
// validation stay empty; the row itself is never dropped.
type TimetableEntry struct {
	ExamDate    string  `json:"exam_date,omitempty"`
	Session     Session `json:"session,omitempty"`
	SubjectCode string  `json:"subject_code,omitempty"`
	SubjectName string  `json:"subject_name,omitempty"`
	Semester    string  `json:"semester,omitempty"`
}

// Severity classifies a validation issue. Errors block readiness,
// warnings are informational.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// IssueType identifies a validation issue kind. Severities are fixed per
// type, not configurable.
type IssueType string

const (
	IssueMissingRegistration   IssueType = "missing_registration"
	IssueDuplicateRegistration IssueType = "duplicate_registration"
	IssueMissingSemester       IssueType = "missing_semester"
	IssueMissingDepartment     IssueType = "missing_department"
	IssueNoSubjects            IssueType = "no_subjects"
	IssueMissingDate           IssueType = "missing_date"
	IssueMissingSession        IssueType = "missing_session"
	IssueMissingSubjectCode    IssueType = "missing_subject_code"
)

// ValidationIssue is one row-level finding from a validation pass.
// Row is 1-based and accounts for the spreadsheet header row.
type ValidationIssue struct {
	ID       string    `json:"id"`
	Type     IssueType `json:"type,omitempty"`
	Message  string    `json:"message"`
	Severity Severity  `json:"severity,omitempty"`
	Row      int       `json:"row,omitempty"`
}

// SubjectConflictGroup is a connected component of near-duplicate subject
// names found across the student and timetable datasets.
type SubjectConflictGroup struct {
	ID        string   `json:"id"`
	Subjects  []string `json:"subjects"`
	Canonical string   `json:"canonical,omitempty"`
	Resolved  bool     `json:"resolved"`
}

// SubjectMapping maps a normalized subject name to its user-chosen
// canonical name. Every canonical name also maps to itself.
type SubjectMapping map[string]string

// DaySubject is one subject examined on a day, with its enrolled students.
type DaySubject struct {
	Code     string   `json:"code"`
	Name     string   `json:"name,omitempty"`
	Semester string   `json:"semester,omitempty"`
	Students []string `json:"students"`
	Count    int      `json:"count"`
}

// ExamDay is the derived occupancy view for one (date, session) pair.
// It is rebuilt in full on every normalization call and never persisted.
type ExamDay struct {
	Date     string       `json:"date"`
	Session  Session      `json:"session"`
	Subjects []DaySubject `json:"subjects"`
	Students []string     `json:"students"`
	Count    int          `json:"count"`
}

// Dataset is the full normalized view over one exam's data.
type Dataset struct {
	Days         []ExamDay `json:"days"`
	StudentCount int       `json:"student_count"`
}

// Phase is the per-exam loading state, derived from which collections
// hold data.
type Phase string

const (
	PhaseEmpty         Phase = "empty"
	PhaseStudentsOnly  Phase = "students_only"
	PhaseTimetableOnly Phase = "timetable_only"
	PhaseBothLoaded    Phase = "both_loaded"
)

// ExamState is the complete persisted bundle for one exam id. The zero
// value, after Normalize, is the valid empty state for an unknown exam.
type ExamState struct {
	RawStudents      []StudentRow      `json:"raw_students,omitempty"`
	RawTimetable     []TimetableRow    `json:"raw_timetable,omitempty"`
	Students         []StudentRecord   `json:"students"`
	Timetable        []TimetableEntry  `json:"timetable"`
	Issues           []ValidationIssue `json:"issues"`
	SubjectMappings  SubjectMapping    `json:"subject_mappings"`
	StudentHeaders   *StudentHeaders   `json:"student_headers,omitempty"`
	TimetableHeaders HeaderMap         `json:"timetable_headers,omitempty"`
}

// Normalize replaces nil collections with empty ones so accessors never
// hand out nil slices or maps.
func (st *ExamState) Normalize() {
	if st.Students == nil {
		st.Students = []StudentRecord{}
	}
	if st.Timetable == nil {
		st.Timetable = []TimetableEntry{}
	}
	if st.Issues == nil {
		st.Issues = []ValidationIssue{}
	}
	if st.SubjectMappings == nil {
		st.SubjectMappings = SubjectMapping{}
	}
}

// Phase reports the loading state implied by the collections.
func (st *ExamState) Phase() Phase {
	switch {
	case len(st.Students) > 0 && len(st.Timetable) > 0:
		return PhaseBothLoaded
	case len(st.Students) > 0:
		return PhaseStudentsOnly
	case len(st.Timetable) > 0:
		return PhaseTimetableOnly
	default:
		return PhaseEmpty
	}
}

// ValidationStatus is the fixed readiness checklist the allocation UI
// gates on. TimetableConsistency and ConflictFreeSubjectMap mirror other
// fields rather than running independent checks; downstream consumers
// rely on the shape of this struct, so the placeholder fields stay.
type ValidationStatus struct {
	Phase                  Phase             `json:"phase"`
	StudentDataReady       bool              `json:"student_data_ready"`
	TimetableDataReady     bool              `json:"timetable_data_ready"`
	NoDuplicateReg         bool              `json:"no_duplicate_reg"`
	SubjectMatch           bool              `json:"subject_match"`
	TimetableConsistency   bool              `json:"timetable_consistency"`
	StudentDaySlicing      bool              `json:"student_day_slicing"`
	SeatRequirementCount   bool              `json:"seat_requirement_count"`
	ConflictFreeSubjectMap bool              `json:"conflict_free_subject_map"`
	Issues                 []ValidationIssue `json:"issues"`
}

// Ready reports whether every checklist field passed.
func (v ValidationStatus) Ready() bool {
	return v.StudentDataReady &&
		v.TimetableDataReady &&
		v.NoDuplicateReg &&
		v.SubjectMatch &&
		v.TimetableConsistency &&
		v.StudentDaySlicing &&
		v.SeatRequirementCount &&
		v.ConflictFreeSubjectMap
}
