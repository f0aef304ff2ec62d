package store

import (
	"log/slog"
	"time"

	"github.com/arjunms/seatprep/internal/engine"
	"github.com/arjunms/seatprep/internal/model"
)

// ProcessSubjectConflicts runs the subject reconciler over the exam's
// current clean data. Store state is not mutated; the groups are
// recomputed on every call. A group whose members are all present in the
// persisted mapping table is reported as resolved, with its canonical
// name filled in when the members agree on one.
func (s *Store) ProcessSubjectConflicts(examID string) ([]model.SubjectConflictGroup, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}

	groups := engine.FindSubjectConflicts(st.Students, st.Timetable)
	for i := range groups {
		markResolved(&groups[i], st.SubjectMappings)
	}
	return groups, nil
}

func markResolved(g *model.SubjectConflictGroup, mappings model.SubjectMapping) {
	if len(mappings) == 0 || len(g.Subjects) == 0 {
		return
	}
	canonical := ""
	for _, subject := range g.Subjects {
		mapped, ok := mappings[subject]
		if !ok {
			return
		}
		if canonical == "" {
			canonical = mapped
		} else if canonical != mapped {
			// Members split across canonical names: treat as open.
			return
		}
	}
	g.Resolved = true
	g.Canonical = canonical
}

// ResolveSubjectConflict folds a user's resolution of one conflict group
// into the exam's persisted mapping table.
func (s *Store) ResolveSubjectConflict(examID, groupID, canonical string, aliases []string) (model.SubjectMapping, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}

	st.SubjectMappings = engine.ResolveSubjectGroup(canonical, aliases, st.SubjectMappings)
	if err := s.saveExamState(examID, st); err != nil {
		return nil, err
	}

	slog.Info("resolved subject conflict",
		"exam_id", examID,
		"group_id", groupID,
		"canonical", canonical,
		"aliases", len(aliases),
	)
	return st.SubjectMappings, nil
}

// PrepareAtomicDataset builds the normalized day-by-day occupancy view
// from current clean data and mappings. The view is derived, not
// persisted; callers get a fresh copy every time.
func (s *Store) PrepareAtomicDataset(examID string) (model.Dataset, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return model.Dataset{}, err
	}
	return engine.NormalizeDataset(st.Students, st.Timetable, st.SubjectMappings), nil
}

// Phase reports the loading state for an exam id.
func (s *Store) Phase(examID string) (model.Phase, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return "", err
	}
	return st.Phase(), nil
}

// ValidationStatus computes the readiness checklist gating the
// allocation workflow. Everything is recomputed from stored state on
// each call, so two calls without intervening writes agree.
func (s *Store) ValidationStatus(examID string) (model.ValidationStatus, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return model.ValidationStatus{}, err
	}

	normalized := engine.NormalizeDataset(st.Students, st.Timetable, st.SubjectMappings)

	noDuplicates := true
	for _, rec := range st.Students {
		if rec.Duplicate {
			noDuplicates = false
			break
		}
	}

	everyDayOccupied := true
	for _, day := range normalized.Days {
		if len(day.Students) == 0 {
			everyDayOccupied = false
			break
		}
	}

	status := model.ValidationStatus{
		Phase:              st.Phase(),
		StudentDataReady:   len(st.Students) > 0,
		TimetableDataReady: len(st.Timetable) > 0,
		NoDuplicateReg:     noDuplicates,
		SubjectMatch:       len(st.SubjectMappings) > 0,
		// Mirrors TimetableDataReady; no independent consistency check
		// exists yet.
		TimetableConsistency: len(st.Timetable) > 0,
		StudentDaySlicing:    len(normalized.Days) > 0,
		SeatRequirementCount: everyDayOccupied,
		// Mirrors SubjectMatch for the same reason.
		ConflictFreeSubjectMap: len(st.SubjectMappings) > 0,
		Issues:                 []model.ValidationIssue{},
	}

	for _, is := range st.Issues {
		if is.Severity == model.SeverityError {
			status.Issues = append(status.Issues, is)
		}
	}
	if len(st.Students) == 0 {
		status.Issues = append(status.Issues, model.ValidationIssue{
			ID:      "no-students",
			Message: "No student data uploaded",
		})
	}
	if len(st.Timetable) == 0 {
		status.Issues = append(status.Issues, model.ValidationIssue{
			ID:      "no-timetable",
			Message: "No timetable data uploaded",
		})
	}

	return status, nil
}

// Export assembles the exportable view of an exam: phase, normalized
// dataset, and optionally the full persisted bundle.
func (s *Store) Export(examID string, includeState bool) (model.ExamExport, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return model.ExamExport{}, err
	}
	exp := model.ExamExport{
		ExamID:     examID,
		ExportedAt: time.Now(),
		Phase:      st.Phase(),
		Dataset:    engine.NormalizeDataset(st.Students, st.Timetable, st.SubjectMappings),
	}
	if includeState {
		exp.State = &st
	}
	return exp, nil
}
