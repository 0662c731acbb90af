package http

import (
	"net/http"

	"haven/internal/stealth"
	"haven/pkg/platform/httputil"
)

type stealthActivateRequest struct {
	Method stealth.ActivateMethod `json:"method"`
}

type stealthDeactivateRequest struct {
	Method stealth.DeactivateMethod `json:"method"`
}

type stealthInputRequest struct {
	Token string `json:"token"`
}

type stealthInputResponse struct {
	Matched bool `json:"matched"`
}

func (h *Handler) stealthActivate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[stealthActivateRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.stealth.Activate(r.Context(), req.Method); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, modeFromSnapshot(h.core.Describe()))
}

func (h *Handler) stealthDeactivate(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[stealthDeactivateRequest](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.stealth.Deactivate(r.Context(), req.Method); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, modeFromSnapshot(h.core.Describe()))
}

// stealthInput feeds one token of disguise-UI input to the unlock matcher.
// The response only says whether the secret matched; the UI stays a dumb
// terminal for the disguise.
func (h *Handler) stealthInput(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[stealthInputRequest](w, r, h.logger)
	if !ok {
		return
	}
	matched, err := h.stealth.FeedInput(r.Context(), req.Token)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stealthInputResponse{Matched: matched})
}

func (h *Handler) stealthConfig(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.stealth.Config())
}

func (h *Handler) stealthSetConfig(w http.ResponseWriter, r *http.Request) {
	cfg, ok := httputil.Decode[stealth.Config](w, r, h.logger)
	if !ok {
		return
	}
	if err := h.stealth.SetConfig(r.Context(), cfg); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.stealth.Config())
}
