package engine

import (
	"fmt"

	"github.com/arjunms/seatprep/internal/model"
)

// similarityThreshold is the score above which two subject names are
// considered the same subject spelled differently.
const similarityThreshold = 0.7

// FindSubjectConflicts scans the union of subject names referenced by the
// student and timetable datasets and groups near-duplicates. Student
// subjects come first in the union, then timetable codes and names, each
// pool deduplicated in first-encounter order.
//
// The scan is pairwise over all distinct names, O(n^2) by choice: subject
// catalogs run to tens, at most low hundreds, of entries. Grouping walks
// the conflict pairs in order and merges each pair into the first group
// either member already belongs to.
func FindSubjectConflicts(students []model.StudentRecord, timetable []model.TimetableEntry) []model.SubjectConflictGroup {
	studentSubjects := newOrderedSet()
	for _, s := range students {
		for _, subj := range s.Subjects {
			if n := Normalize(subj); n != "" {
				studentSubjects.add(n)
			}
		}
	}

	timetableSubjects := newOrderedSet()
	for _, e := range timetable {
		if e.SubjectCode != "" {
			timetableSubjects.add(Normalize(e.SubjectCode))
		}
		if e.SubjectName != "" {
			timetableSubjects.add(Normalize(e.SubjectName))
		}
	}

	// The union keeps both pools as-is, so a name present in both
	// datasets appears twice and reliably pairs with itself.
	all := append(studentSubjects.items, timetableSubjects.items...)

	type pair struct{ a, b string }
	var pairs []pair
	for i := 0; i < len(all); i++ {
		for j := i + 1; j < len(all); j++ {
			if Similarity(all[i], all[j]) > similarityThreshold {
				pairs = append(pairs, pair{all[i], all[j]})
			}
		}
	}

	var groups []*orderedSet
	memberOf := make(map[string]*orderedSet)
	for _, p := range pairs {
		target := memberOf[p.a]
		if target == nil {
			target = memberOf[p.b]
		}
		if target == nil {
			target = newOrderedSet()
			groups = append(groups, target)
		}
		target.add(p.a)
		target.add(p.b)
		memberOf[p.a] = target
		memberOf[p.b] = target
	}

	out := make([]model.SubjectConflictGroup, 0, len(groups))
	for i, g := range groups {
		out = append(out, model.SubjectConflictGroup{
			ID:       fmt.Sprintf("group-%d", i),
			Subjects: g.items,
		})
	}
	return out
}

// ResolveSubjectGroup folds a resolved conflict group into the mapping
// table: every alias maps to the canonical name, and the canonical name
// maps to itself so lookups are idempotent. Pure; the caller persists the
// returned table and handles marking the group resolved.
func ResolveSubjectGroup(canonical string, aliases []string, current model.SubjectMapping) model.SubjectMapping {
	next := make(model.SubjectMapping, len(current)+len(aliases)+1)
	for k, v := range current {
		next[k] = v
	}
	for _, alias := range aliases {
		if n := Normalize(alias); n != "" {
			next[n] = canonical
		}
	}
	next[Normalize(canonical)] = canonical
	return next
}

// orderedSet is a string set that remembers insertion order, standing in
// for languages where built-in sets and maps iterate in that order.
type orderedSet struct {
	items []string
	index map[string]struct{}
}

func newOrderedSet() *orderedSet {
	return &orderedSet{index: make(map[string]struct{})}
}

func (s *orderedSet) add(v string) {
	if _, ok := s.index[v]; ok {
		return
	}
	s.index[v] = struct{}{}
	s.items = append(s.items, v)
}
