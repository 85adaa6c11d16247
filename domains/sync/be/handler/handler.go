// Package handler exposes the small operational HTTP surface of the sync
// daemon: health probes and on-demand sweep triggers for operators.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	parksservice "github.com/parklogic/parksync/domains/parks/be/service"
	"github.com/parklogic/parksync/domains/sync/be/service"
)

// Pinger reports whether the backing store is reachable. Implemented by
// pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler wires the sweeper and parks service to the ops HTTP API.
type Handler struct {
	sweeper *service.Sweeper
	parks   *parksservice.Service
	db      Pinger
	apiKey  string
	logger  *zap.Logger
}

// New constructs a Handler.
func New(sweeper *service.Sweeper, parks *parksservice.Service, db Pinger, apiKey string, logger *zap.Logger) *Handler {
	if sweeper == nil {
		panic("sweeper is required")
	}
	if parks == nil {
		panic("parks service is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Handler{sweeper: sweeper, parks: parks, db: db, apiKey: apiKey, logger: logger}
}

// Router builds the chi router for the ops surface.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Get("/readyz", h.ready)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(h.requireAPIKey)
		r.Post("/sweeps", h.triggerSweep)
		r.Post("/parks/{locationID}/sweep", h.triggerParkSweep)
	})

	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("readiness probe failed", zap.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// triggerSweep runs a full sweep synchronously and returns its report.
func (h *Handler) triggerSweep(w http.ResponseWriter, r *http.Request) {
	report := h.sweeper.Sweep(r.Context())
	writeJSON(w, http.StatusOK, report)
}

// triggerParkSweep reconciles one park on demand.
func (h *Handler) triggerParkSweep(w http.ResponseWriter, r *http.Request) {
	locationID := chi.URLParam(r, "locationID")

	park, err := h.parks.Resolve(r.Context(), locationID)
	if errors.Is(err, parksservice.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown or inactive park"})
		return
	}
	if err != nil {
		h.logger.Error("park resolution failed", zap.String("location_id", locationID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	report := h.sweeper.SweepPark(r.Context(), park)
	writeJSON(w, http.StatusOK, report)
}

// requireAPIKey gates the trigger endpoints behind a static operator key.
func (h *Handler) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.apiKey == "" {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "api disabled"})
			return
		}
		key := r.Header.Get("X-Api-Key")
		if subtle.ConstantTimeCompare([]byte(key), []byte(h.apiKey)) != 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid api key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
