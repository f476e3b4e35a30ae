package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wonny/thetascan/internal/contracts"
	"github.com/wonny/thetascan/internal/scheduler"
	"github.com/wonny/thetascan/pkg/logger"
)

// Pinger reports database reachability
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobStatsSource is satisfied by *scheduler.Scheduler
type JobStatsSource interface {
	GetJobStats() map[string]scheduler.JobStats
}

// Deps are the read-only sources behind the ops endpoints. Nil members disable their route.
type Deps struct {
	DB       Pinger
	Runs     contracts.ScanRunStore
	Jobs     JobStatsSource
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures the ops HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(deps Deps, log *logger.Logger) http.Handler {
	r := mux.NewRouter()
	h := &handler{deps: deps, logger: log}

	r.HandleFunc("/healthz", h.healthz).Methods("GET")

	if deps.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})).Methods("GET")
	}
	if deps.Jobs != nil {
		r.HandleFunc("/jobs", h.jobs).Methods("GET")
	}
	if deps.Runs != nil {
		r.HandleFunc("/runs", h.runs).Methods("GET")
	}

	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

type handler struct {
	deps   Deps
	logger *logger.Logger
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.deps.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.deps.DB.Ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "thetascan"})
}

func (h *handler) jobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.deps.Jobs.GetJobStats())
}

func (h *handler) runs(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 500 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := h.deps.Runs.GetRecent(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load recent runs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load runs"})
		return
	}
	if runs == nil {
		runs = []contracts.ScanRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			next.ServeHTTP(w, r)

			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSON(w, http.StatusInternalServerError, map[string]string{
						"error": "Internal server error",
					})
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
