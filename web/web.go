// Package web provides the JSON HTTP API over a composed vault.
package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/vaultkit/core/schema"
	"github.com/artpar/vaultkit/core/table"
	"github.com/artpar/vaultkit/core/vault"
)

// Handler serves the vault API.
type Handler struct {
	vault  *vault.Vault
	logger zerolog.Logger

	metricsEnabled bool
	metricsPath    string
}

// Deps contains dependencies for the API handler.
type Deps struct {
	Vault  *vault.Vault
	Logger zerolog.Logger

	MetricsEnabled bool
	MetricsPath    string
}

// NewHandler creates a new API handler.
func NewHandler(deps Deps) *Handler {
	path := deps.MetricsPath
	if path == "" {
		path = "/metrics"
	}
	return &Handler{
		vault:          deps.Vault,
		logger:         deps.Logger,
		metricsEnabled: deps.MetricsEnabled,
		metricsPath:    path,
	}
}

// Router returns the API router.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	if h.metricsEnabled {
		r.Handle(h.metricsPath, promhttp.Handler())
	}

	r.Get("/healthz", h.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/plugins", h.ListPlugins)
		r.Get("/stats", h.Stats)
		r.Get("/export", h.Export)
		r.Post("/sync", h.Sync)
		r.Post("/query", h.Query)

		r.Route("/{plugin}", func(r chi.Router) {
			r.Post("/actions/{action}", h.CallPluginAction)

			r.Route("/{table}", func(r chi.Router) {
				r.Get("/", h.ListRecords)
				r.Post("/", h.CreateRecord)
				r.Get("/{id}", h.GetRecord)
				r.Patch("/{id}", h.UpdateRecord)
				r.Delete("/{id}", h.DeleteRecord)
				r.Post("/actions/{action}", h.CallTableAction)
			})
		})
	})

	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

type errorBody struct {
	Error  string         `json:"error"`
	Issues []schema.Issue `json:"issues,omitempty"`
}

// writeError maps domain errors onto HTTP status codes: validation failures
// become 422 with the full issue list, missing records 404.
func writeError(w http.ResponseWriter, err error) {
	var verr *schema.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: "validation failed", Issues: verr.Issues})
		return
	}
	var nferr *table.NotFoundError
	if errors.As(err, &nferr) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
		return
	}
	if errors.Is(err, vault.ErrNoMirror) {
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
}
