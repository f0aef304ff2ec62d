// Package handler exposes the exam data pipeline as a JSON API: uploads
// go in, validation issues, conflict groups, the normalized dataset, and
// the readiness checklist come out.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/arjunms/seatprep/internal/engine"
	"github.com/arjunms/seatprep/internal/model"
	"github.com/arjunms/seatprep/internal/store"
)

// Handler holds shared dependencies for HTTP handlers.
type Handler struct {
	store *store.Store
}

// New creates a new Handler.
func New(s *store.Store) *Handler {
	return &Handler{store: s}
}

// Routes registers all HTTP routes.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/api", func(api chi.Router) {
		api.Get("/exams", h.handleListExams)
		api.Route("/exams/{examID}", func(exam chi.Router) {
			exam.Delete("/", h.handleClearExam)
			exam.Post("/students", h.handleUploadStudents)
			exam.Get("/students", h.handleGetStudents)
			exam.Post("/timetable", h.handleUploadTimetable)
			exam.Get("/timetable", h.handleGetTimetable)
			exam.Get("/issues", h.handleGetIssues)
			exam.Delete("/issues/{issueID}", h.handleRemoveIssue)
			exam.Get("/conflicts", h.handleGetConflicts)
			exam.Post("/conflicts/{groupID}/resolve", h.handleResolveConflict)
			exam.Get("/dataset", h.handleGetDataset)
			exam.Get("/status", h.handleGetStatus)
		})
	})
}

type studentUploadRequest struct {
	Rows      []model.StudentRow    `json:"rows"`
	HeaderMap *model.StudentHeaders `json:"header_map"`
}

type timetableUploadRequest struct {
	Rows      []model.TimetableRow `json:"rows"`
	HeaderMap model.HeaderMap      `json:"header_map"`
}

type uploadResponse struct {
	Records int                     `json:"records"`
	Issues  []model.ValidationIssue `json:"issues"`
}

type resolveRequest struct {
	Canonical string   `json:"canonical"`
	Aliases   []string `json:"aliases"`
}

type examSummary struct {
	ExamID string      `json:"exam_id"`
	Phase  model.Phase `json:"phase"`
}

func (h *Handler) handleListExams(w http.ResponseWriter, r *http.Request) {
	ids, err := h.store.ListExamIDs()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	summaries := []examSummary{}
	for _, id := range ids {
		phase, err := h.store.Phase(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		summaries = append(summaries, examSummary{ExamID: id, Phase: phase})
	}
	respondJSON(w, http.StatusOK, summaries)
}

func (h *Handler) handleUploadStudents(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	var req studentUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	issues, err := h.store.SetRawStudentData(examID, req.Rows, req.HeaderMap)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("student data uploaded", "exam_id", examID, "rows", len(req.Rows), "issues", len(issues))
	respondJSON(w, http.StatusOK, uploadResponse{Records: len(req.Rows), Issues: issues})
}

func (h *Handler) handleUploadTimetable(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")

	var req timetableUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	issues, err := h.store.SetRawTimetableData(examID, req.Rows, req.HeaderMap)
	if errors.Is(err, engine.ErrHeaderMapRequired) {
		// Configuration failure, not a row-level finding: nothing was
		// stored and the client has to fix its mapping first.
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	slog.Info("timetable uploaded", "exam_id", examID, "rows", len(req.Rows), "issues", len(issues))
	respondJSON(w, http.StatusOK, uploadResponse{Records: len(req.Rows), Issues: issues})
}

func (h *Handler) handleGetStudents(w http.ResponseWriter, r *http.Request) {
	students, err := h.store.StudentData(chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, students)
}

func (h *Handler) handleGetTimetable(w http.ResponseWriter, r *http.Request) {
	timetable, err := h.store.TimetableData(chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, timetable)
}

func (h *Handler) handleGetIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.store.IssueBin(chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, issues)
}

func (h *Handler) handleRemoveIssue(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	issueID := chi.URLParam(r, "issueID")

	if err := h.store.RemoveIssue(examID, issueID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleGetConflicts(w http.ResponseWriter, r *http.Request) {
	groups, err := h.store.ProcessSubjectConflicts(chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if groups == nil {
		groups = []model.SubjectConflictGroup{}
	}
	respondJSON(w, http.StatusOK, groups)
}

func (h *Handler) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	groupID := chi.URLParam(r, "groupID")

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if req.Canonical == "" {
		http.Error(w, "canonical name is required", http.StatusBadRequest)
		return
	}

	mappings, err := h.store.ResolveSubjectConflict(examID, groupID, req.Canonical, req.Aliases)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, mappings)
}

func (h *Handler) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	dataset, err := h.store.PrepareAtomicDataset(chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, dataset)
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.store.ValidationStatus(chi.URLParam(r, "examID"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	respondJSON(w, http.StatusOK, status)
}

func (h *Handler) handleClearExam(w http.ResponseWriter, r *http.Request) {
	examID := chi.URLParam(r, "examID")
	if err := h.store.ClearExamData(examID); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	slog.Info("exam data cleared", "exam_id", examID)
	w.WriteHeader(http.StatusNoContent)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}
