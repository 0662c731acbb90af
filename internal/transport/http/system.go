package http

import (
	"net/http"
	"strconv"

	"haven/internal/coordination"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
)

type modeResponse struct {
	Mode   domain.Mode  `json:"mode"`
	RunID  string       `json:"run_id,omitempty"`
	Stage  domain.Stage `json:"stage,omitempty"`
	Covert bool         `json:"covert,omitempty"`
}

func (h *Handler) mode(w http.ResponseWriter, _ *http.Request) {
	snap := h.core.Describe()
	httputil.WriteJSON(w, http.StatusOK, modeFromSnapshot(snap))
}

func modeFromSnapshot(s coordination.Snapshot) modeResponse {
	return modeResponse{Mode: s.Mode, RunID: s.RunID, Stage: s.Stage, Covert: s.Covert}
}

const defaultAuditLimit = 50

func (h *Handler) auditRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	entries, err := h.auditStore.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("audit list failed", "error", err)
		httputil.WriteError(w, derrors.Wrap(err, derrors.CodeInternal, "audit log unavailable"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
