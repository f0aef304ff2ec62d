package engine

import (
	"fmt"

	"github.com/arjunms/seatprep/internal/model"
)

// NormalizeDataset joins clean student and timetable data, with subject
// names remapped through the mapping table, into the per-day occupancy
// view. The result is rebuilt from scratch on every call; nothing is
// cached between invocations.
//
// Day order equals the first-encounter order of (date, session) pairs in
// the timetable, and subject order within a day likewise, so the output
// is deterministic for fixed inputs.
func NormalizeDataset(students []model.StudentRecord, timetable []model.TimetableEntry, mappings model.SubjectMapping) model.Dataset {
	remap := func(name string) string {
		if mapped, ok := mappings[Normalize(name)]; ok && mapped != "" {
			return mapped
		}
		return name
	}

	type daySubject struct {
		code     string
		name     string
		semester string
		students *orderedSet
	}
	type day struct {
		date         string
		session      model.Session
		subjectOrder []string
		subjects     map[string]*daySubject
		students     *orderedSet
	}

	var dayOrder []string
	days := make(map[string]*day)

	for _, e := range timetable {
		code := remap(e.SubjectCode)
		name := ""
		if e.SubjectName != "" {
			name = remap(e.SubjectName)
		}

		key := fmt.Sprintf("%s-%s", e.ExamDate, e.Session)
		d, ok := days[key]
		if !ok {
			d = &day{
				date:     e.ExamDate,
				session:  e.Session,
				subjects: make(map[string]*daySubject),
				students: newOrderedSet(),
			}
			days[key] = d
			dayOrder = append(dayOrder, key)
		}

		if _, ok := d.subjects[code]; !ok {
			d.subjects[code] = &daySubject{
				code:     code,
				name:     name,
				semester: e.Semester,
				students: newOrderedSet(),
			}
			d.subjectOrder = append(d.subjectOrder, code)
		}
	}

	for _, s := range students {
		for _, raw := range s.Subjects {
			subject := remap(raw)
			if subject == "" {
				continue
			}
			for _, key := range dayOrder {
				d := days[key]
				ds, ok := d.subjects[subject]
				if !ok {
					continue
				}
				// Set semantics: a student counts once per day even
				// when several of their subjects sit that day.
				d.students.add(s.RegNo)
				ds.students.add(s.RegNo)
			}
		}
	}

	out := model.Dataset{
		Days:         make([]model.ExamDay, 0, len(dayOrder)),
		StudentCount: len(students),
	}
	for _, key := range dayOrder {
		d := days[key]
		ed := model.ExamDay{
			Date:     d.date,
			Session:  d.session,
			Subjects: make([]model.DaySubject, 0, len(d.subjectOrder)),
			Students: append([]string{}, d.students.items...),
			Count:    len(d.students.items),
		}
		for _, code := range d.subjectOrder {
			ds := d.subjects[code]
			ed.Subjects = append(ed.Subjects, model.DaySubject{
				Code:     ds.code,
				Name:     ds.name,
				Semester: ds.semester,
				Students: append([]string{}, ds.students.items...),
				Count:    len(ds.students.items),
			})
		}
		out.Days = append(out.Days, ed)
	}
	return out
}
