package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/migrator"
)

type SystemHandler struct {
	Backend string
	Gate    gate.Gate
}

type healthResponse struct {
	Status        string `json:"status"`
	Service       string `json:"service"`
	Backend       string `json:"backend"`
	Mode          string `json:"mode"`
	WritesAllowed bool   `json:"writesAllowed"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, healthResponse{
		Status:        "ok",
		Service:       "careervr",
		Backend:       h.Backend,
		Mode:          h.Gate.Mode(),
		WritesAllowed: h.Gate.WritesAllowed(),
	}, http.StatusOK)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, `{"version":"%s","buildTime":"%s"}`, version, buildTime)
	}
}

type AdminHandler struct {
	migrator *migrator.Migrator
}

func NewAdminHandler(m *migrator.Migrator) *AdminHandler {
	return &AdminHandler{migrator: m}
}

func (h *AdminHandler) Migrate(w http.ResponseWriter, r *http.Request) {
	rep, res := h.migrator.NormalizeSchema(r.Context())
	writeResult(w, res, map[string]any{"ok": true, "report": rep}, http.StatusOK)
}

type repairRequest struct {
	DryRun *bool `json:"dryRun"`
	Limit  int   `json:"limit"`
}

// RepairOwnership defaults to a dry run; the body or the dryRun and limit
// query parameters turn it into a real one.
func (h *AdminHandler) RepairOwnership(w http.ResponseWriter, r *http.Request) {
	var req repairRequest
	if err := decodeJSON(r, &req, true); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_json")
		return
	}
	q := r.URL.Query()
	if v := q.Get("dryRun"); v != "" && req.DryRun == nil {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_dry_run")
			return
		}
		req.DryRun = &b
	}
	if v := q.Get("limit"); v != "" && req.Limit == 0 {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_limit")
			return
		}
		req.Limit = n
	}
	dryRun := req.DryRun == nil || *req.DryRun

	rep, res := h.migrator.RepairOwnership(r.Context(), dryRun, req.Limit)
	writeResult(w, res, map[string]any{"ok": true, "report": rep}, http.StatusOK)
}
