package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
)

type Handler struct {
	svc     *attendance.Service
	bundles *attendance.BundleBuilder
	logs    *attendance.LogRepo
	orgID   int64
	branch  int64
	log     *slog.Logger
}

func NewHandler(svc *attendance.Service, bundles *attendance.BundleBuilder, logs *attendance.LogRepo, orgID, branchID int64, log *slog.Logger) *Handler {
	return &Handler{svc: svc, bundles: bundles, logs: logs, orgID: orgID, branch: branchID, log: log}
}

func (h *Handler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if req.ScannedValue == "" {
		http.Error(w, "scanned_value is required", http.StatusBadRequest)
		return
	}
	if req.OrgID == 0 {
		req.OrgID = h.orgID
	}
	if req.BranchID == 0 {
		req.BranchID = h.branch
	}

	dec, err := h.svc.CheckIn(r.Context(), req)
	if err != nil {
		// Infrastructure trouble, not a denial: retriable for the caller.
		h.log.Error("check-in failed", "err", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, dec)
}

func (h *Handler) handleOfflineBundle(w http.ResponseWriter, r *http.Request) {
	orgID := queryInt64(r, "org_id", h.orgID)
	branchID := queryInt64(r, "branch_id", h.branch)

	b, err := h.bundles.Build(r.Context(), orgID, branchID)
	if err != nil {
		h.log.Error("bundle build failed", "err", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, b)
}

func (h *Handler) handleMemberAttendance(w http.ResponseWriter, r *http.Request) {
	memberID, err := strconv.ParseInt(chi.URLParam(r, "memberID"), 10, 64)
	if err != nil {
		http.Error(w, "bad member id", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.logs.ListByMember(r.Context(), memberID, limit)
	if err != nil {
		h.log.Error("attendance list failed", "err", err)
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func queryInt64(r *http.Request, key string, fallback int64) int64 {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
