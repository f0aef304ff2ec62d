package model

import "time"

// ExamExport is the top-level JSON structure for exam data export.
// State is included only for full backups; the dataset alone is enough
// for downstream allocation tooling.
type ExamExport struct {
	ExamID     string     `json:"exam_id"`
	ExportedAt time.Time  `json:"exported_at"`
	Phase      Phase      `json:"phase"`
	Dataset    Dataset    `json:"dataset"`
	State      *ExamState `json:"state,omitempty"`
}
