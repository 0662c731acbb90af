package httpserver

import (
	"net/http"
	"time"
)

// New builds the HTTP server for the device-local UI surface. Handlers
// answer from in-memory state (pipeline work runs in its own goroutine),
// so the timeouts can stay tight.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
