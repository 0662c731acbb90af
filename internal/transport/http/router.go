// Package http is the UI-facing surface: a chi router over the
// coordination core and the two session managers. Handlers translate JSON
// in and out; every decision stays in the services.
package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"haven/internal/coordination"
	"haven/internal/emergency"
	"haven/internal/stealth"
	"haven/pkg/platform/audit"
	"haven/pkg/platform/middleware/device"
	"haven/pkg/platform/middleware/requestid"
	"haven/pkg/platform/middleware/requesttime"
)

// Handler bundles the services the routes dispatch to.
type Handler struct {
	core       *coordination.Core
	stealth    *stealth.Service
	emergency  *emergency.Service
	auditStore audit.Store
	logger     *slog.Logger
}

func NewHandler(core *coordination.Core, st *stealth.Service, em *emergency.Service, auditStore audit.Store, logger *slog.Logger) *Handler {
	return &Handler{
		core:       core,
		stealth:    st,
		emergency:  em,
		auditStore: auditStore,
		logger:     logger,
	}
}

// Router builds the full route tree with the standard middleware chain.
func (h *Handler) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(device.Middleware)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Get("/mode", h.mode)
	r.Get("/audit/recent", h.auditRecent)

	r.Route("/stealth", func(r chi.Router) {
		r.Post("/activate", h.stealthActivate)
		r.Post("/deactivate", h.stealthDeactivate)
		r.Post("/input", h.stealthInput)
		r.Get("/config", h.stealthConfig)
		r.Put("/config", h.stealthSetConfig)
	})

	r.Route("/emergency", func(r chi.Router) {
		r.Post("/trigger", h.emergencyTrigger)
		r.Post("/cancel", h.emergencyCancel)
		r.Get("/status", h.emergencyStatus)
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.listContacts)
		r.Post("/", h.addContact)
		r.Put("/{contactID}", h.updateContact)
		r.Delete("/{contactID}", h.removeContact)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
