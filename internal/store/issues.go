package store

import "github.com/arjunms/seatprep/internal/model"

// IssueBin returns the accumulated issue list for an exam.
func (s *Store) IssueBin(examID string) ([]model.ValidationIssue, error) {
	st, err := s.ExamState(examID)
	if err != nil {
		return nil, err
	}
	return st.Issues, nil
}

// AddIssues appends issues to the exam's bin. Nothing is deduplicated.
func (s *Store) AddIssues(examID string, issues []model.ValidationIssue) error {
	if len(issues) == 0 {
		return nil
	}
	st, err := s.ExamState(examID)
	if err != nil {
		return err
	}
	st.Issues = append(st.Issues, issues...)
	return s.saveExamState(examID, st)
}

// RemoveIssue drops a single issue by id. Removing an unknown id is a
// no-op, matching how a user dismisses an already-gone entry.
func (s *Store) RemoveIssue(examID, issueID string) error {
	st, err := s.ExamState(examID)
	if err != nil {
		return err
	}
	kept := st.Issues[:0]
	for _, is := range st.Issues {
		if is.ID != issueID {
			kept = append(kept, is)
		}
	}
	st.Issues = kept
	return s.saveExamState(examID, st)
}

// UpdateIssue replaces the issue with a matching id in place.
func (s *Store) UpdateIssue(examID string, issue model.ValidationIssue) error {
	st, err := s.ExamState(examID)
	if err != nil {
		return err
	}
	for i, is := range st.Issues {
		if is.ID == issue.ID {
			st.Issues[i] = issue
			break
		}
	}
	return s.saveExamState(examID, st)
}
