package http

import (
	"net/http"

	"haven/internal/emergency"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
)

type triggerRequest struct {
	Source emergency.TriggerSource `json:"source"`
}

func (h *Handler) emergencyTrigger(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[triggerRequest](w, r, h.logger)
	if !ok {
		return
	}
	snap, err := h.emergency.Trigger(r.Context(), req.Source)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, snap)
}

func (h *Handler) emergencyCancel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.emergency.Cancel(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) emergencyStatus(w http.ResponseWriter, _ *http.Request) {
	snap, ok := h.emergency.Status()
	if !ok {
		httputil.WriteError(w, derrors.New(derrors.CodeNotFound, "no emergency run"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, snap)
}
