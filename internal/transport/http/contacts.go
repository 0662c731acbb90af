package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"haven/internal/emergency"
	"haven/pkg/domain"
	derrors "haven/pkg/domain-errors"
	"haven/pkg/platform/httputil"
)

func (h *Handler) listContacts(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"contacts": h.emergency.Contacts()})
}

func (h *Handler) addContact(w http.ResponseWriter, r *http.Request) {
	req, ok := httputil.Decode[emergency.Contact](w, r, h.logger)
	if !ok {
		return
	}
	contact, err := h.emergency.AddContact(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, contact)
}

func (h *Handler) updateContact(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseContactID(chi.URLParam(r, "contactID"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid contact id"))
		return
	}
	req, ok := httputil.Decode[emergency.Contact](w, r, h.logger)
	if !ok {
		return
	}
	req.ID = id
	contact, err := h.emergency.UpdateContact(r.Context(), req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, contact)
}

func (h *Handler) removeContact(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseContactID(chi.URLParam(r, "contactID"))
	if err != nil {
		httputil.WriteError(w, derrors.New(derrors.CodeBadRequest, "invalid contact id"))
		return
	}
	if err := h.emergency.RemoveContact(r.Context(), id); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
