package httpserver

import (
	"net/http"

	"storefront/internal/platform/config"
)

// New builds the storefront HTTP server from the server config.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
	}
}
