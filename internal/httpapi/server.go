package httpapi

import (
	"net/http"
	"time"

	"dcim-server/internal/config"
)

const readHeaderTimeout = 5 * time.Second

func NewServer(cfg config.Config, mux *http.ServeMux) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewHandler(cfg, mux),
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// NewHandler wraps mux with the middleware chain, outermost first:
// panic recovery, request logging, CORS.
func NewHandler(cfg config.Config, mux *http.ServeMux) http.Handler {
	return recoverer(requestLogger(corsHandler(cfg.CORSAllowedOrigin, mux)))
}
