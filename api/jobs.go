package api

import (
	"context"
	"encoding/json"
	"net/http"

	"log/slog"

	"github.com/Matcry12/careervr/pkg/models"
	"github.com/Matcry12/careervr/pkg/repository"
)

type JobsHandler struct {
	jobs repository.JobRepo
}

func NewJobsHandler(jobs repository.JobRepo) *JobsHandler {
	return &JobsHandler{jobs: jobs}
}

func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.jobs.List(r.Context())
	if err != nil {
		logger.Error("list jobs", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}
	writeJSON(w, jobs, http.StatusOK)
}

// ReplaceJobs takes the whole catalog as a bare list.
func (h *JobsHandler) ReplaceJobs(w http.ResponseWriter, r *http.Request) {
	var payload any
	if err := decodeJSON(r, &payload, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	h.sync(w, r.Context(), payload, false)
}

type syncRequest struct {
	Jobs       json.RawMessage `json:"jobs"`
	AllowEmpty bool            `json:"allowEmpty"`
}

func (h *JobsHandler) SyncJobs(w http.ResponseWriter, r *http.Request) {
	var req syncRequest
	if err := decodeJSON(r, &req, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	var payload any
	if len(req.Jobs) > 0 {
		if err := json.Unmarshal(req.Jobs, &payload); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_json")
			return
		}
	}
	h.sync(w, r.Context(), payload, req.AllowEmpty)
}

func (h *JobsHandler) sync(w http.ResponseWriter, ctx context.Context, payload any, allowEmpty bool) {
	res := h.jobs.SyncJobs(ctx, payload, allowEmpty)
	writeResult(w, res, nil, http.StatusOK)
}

type SubmissionsHandler struct {
	submissions repository.SubmissionRepo
}

func NewSubmissionsHandler(submissions repository.SubmissionRepo) *SubmissionsHandler {
	return &SubmissionsHandler{submissions: submissions}
}

func (h *SubmissionsHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var raw map[string]any
	if err := decodeJSON(r, &raw, false); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	sub, res := h.submissions.Add(r.Context(), raw)
	writeResult(w, res, sub, http.StatusCreated)
}

func (h *SubmissionsHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	subs, err := h.submissions.List(r.Context())
	if err != nil {
		logger.Error("list submissions", slog.Any("err", err))
		writeError(w, http.StatusBadGateway, repository.ReasonBackendError)
		return
	}
	if subs == nil {
		subs = []models.Submission{}
	}
	writeJSON(w, subs, http.StatusOK)
}
