package engine

import (
	"reflect"
	"testing"

	"github.com/arjunms/seatprep/internal/model"
)

func TestFindSubjectConflicts(t *testing.T) {
	students := []model.StudentRecord{
		{RegNo: "S1", Subjects: []string{"DATA STRUCTURES"}},
	}
	timetable := []model.TimetableEntry{
		{SubjectCode: "DATA STRUCTURE"},
	}

	groups := FindSubjectConflicts(students, timetable)
	if len(groups) != 1 {
		t.Fatalf("expected 1 conflict group, got %d", len(groups))
	}

	g := groups[0]
	if g.ID != "group-0" {
		t.Errorf("expected id group-0, got %q", g.ID)
	}
	if g.Resolved || g.Canonical != "" {
		t.Error("fresh group must be unresolved with no canonical name")
	}
	want := []string{"DATA STRUCTURES", "DATA STRUCTURE"}
	if !reflect.DeepEqual(g.Subjects, want) {
		t.Errorf("expected members %v, got %v", want, g.Subjects)
	}
}

func TestFindSubjectConflictsTransitiveGrouping(t *testing.T) {
	// CS401 pairs with both longer names; all three end up in one group.
	students := []model.StudentRecord{
		{RegNo: "S1", Subjects: []string{"CS401"}},
	}
	timetable := []model.TimetableEntry{
		{SubjectCode: "CS401 ALGORITHMS"},
		{SubjectCode: "CS401 ADVANCED ALGORITHMS"},
	}

	groups := FindSubjectConflicts(students, timetable)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d: %v", len(groups), groups)
	}
	if len(groups[0].Subjects) != 3 {
		t.Errorf("expected 3 members, got %v", groups[0].Subjects)
	}
}

func TestFindSubjectConflictsDistinctGroups(t *testing.T) {
	students := []model.StudentRecord{
		{RegNo: "S1", Subjects: []string{"DATA STRUCTURES", "ZOOLOGY"}},
	}
	timetable := []model.TimetableEntry{
		{SubjectCode: "DATA STRUCTURE"},
		{SubjectCode: "ZOOLOGY I"},
	}

	groups := FindSubjectConflicts(students, timetable)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d: %v", len(groups), groups)
	}
	if groups[0].ID != "group-0" || groups[1].ID != "group-1" {
		t.Errorf("unexpected ids: %q %q", groups[0].ID, groups[1].ID)
	}
}

func TestFindSubjectConflictsUnrelatedSubjects(t *testing.T) {
	students := []model.StudentRecord{
		{RegNo: "S1", Subjects: []string{"MATHS"}},
	}
	timetable := []model.TimetableEntry{
		{SubjectCode: "ZOOLOGY"},
	}
	if groups := FindSubjectConflicts(students, timetable); len(groups) != 0 {
		t.Errorf("expected no groups, got %v", groups)
	}
}

func TestFindSubjectConflictsSharedNameAcrossDatasets(t *testing.T) {
	// The union keeps both pools, so a name used in both datasets pairs
	// with itself and always surfaces as a group.
	students := []model.StudentRecord{
		{RegNo: "S1", Subjects: []string{"CS401"}},
	}
	timetable := []model.TimetableEntry{
		{SubjectCode: "cs401"},
	}
	groups := FindSubjectConflicts(students, timetable)
	if len(groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(groups))
	}
	if !reflect.DeepEqual(groups[0].Subjects, []string{"CS401"}) {
		t.Errorf("expected single normalized member, got %v", groups[0].Subjects)
	}
}

func TestFindSubjectConflictsEmptyInputs(t *testing.T) {
	if groups := FindSubjectConflicts(nil, nil); len(groups) != 0 {
		t.Errorf("expected no groups for empty inputs, got %v", groups)
	}
}

func TestResolveSubjectGroup(t *testing.T) {
	current := model.SubjectMapping{"OLD": "OLD"}

	got := ResolveSubjectGroup("CS401", []string{"CS401 ALGORITHMS", "cs 401"}, current)

	want := model.SubjectMapping{
		"OLD":              "OLD",
		"CS401 ALGORITHMS": "CS401",
		"CS 401":           "CS401",
		"CS401":            "CS401",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("mapping = %v, want %v", got, want)
	}

	// The input table is untouched.
	if len(current) != 1 {
		t.Errorf("input mapping mutated: %v", current)
	}
}

func TestResolveSubjectGroupPure(t *testing.T) {
	current := model.SubjectMapping{"A": "A"}
	first := ResolveSubjectGroup("C", []string{"A", "B"}, current)
	second := ResolveSubjectGroup("C", []string{"A", "B"}, current)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated calls differ: %v vs %v", first, second)
	}
	if first["C"] != "C" {
		t.Error("canonical name must map to itself")
	}
}
