// Package handler serves the metrics and status feeds of the simulated
// authority over HTTP.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/internal/errors"
)

// MetricsSource produces the metrics feed document
type MetricsSource interface {
	Metrics() []domain.BackendMetric
}

// StatusSource produces the status feed document
type StatusSource interface {
	Status() domain.StatusReport
}

// FeedHandler serves both dashboard feeds
type FeedHandler struct {
	metrics MetricsSource
	status  StatusSource
}

// NewFeedHandler creates a new feed handler
func NewFeedHandler(metrics MetricsSource, status StatusSource) *FeedHandler {
	return &FeedHandler{
		metrics: metrics,
		status:  status,
	}
}

// MetricsHandler returns the backend health list
func (h *FeedHandler) MetricsHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Metrics())
}

// StatusHandler returns the routing status and decision log
func (h *FeedHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status())
}

// RouterOptions wires the HTTP surface
type RouterOptions struct {
	Feeds  *FeedHandler
	Health *HealthHandler
	Stream *StreamHandler
	// Protect wraps the feed routes, typically with token authentication
	Protect func(http.Handler) http.Handler
}

// NewRouter builds the authority's routes. Only GET is served.
func NewRouter(opts RouterOptions) *mux.Router {
	protect := opts.Protect
	if protect == nil {
		protect = func(next http.Handler) http.Handler { return next }
	}

	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{
			"error": "unknown path " + r.URL.Path,
			"code":  errors.ErrCodeInvalidRequest,
		})
	})

	router.Handle("/metrics", protect(http.HandlerFunc(opts.Feeds.MetricsHandler))).Methods(http.MethodGet)
	router.Handle("/status", protect(http.HandlerFunc(opts.Feeds.StatusHandler))).Methods(http.MethodGet)
	if opts.Stream != nil {
		router.Handle("/stream", protect(opts.Stream)).Methods(http.MethodGet)
	}
	if opts.Health != nil {
		router.Handle("/health", opts.Health).Methods(http.MethodGet)
	}
	return router
}

// WriteError writes err as a JSON body with its mapped status code
func WriteError(w http.ResponseWriter, err error) {
	writeJSON(w, errors.GetHTTPStatusCode(err), map[string]interface{}{
		"error": err.Error(),
		"code":  errors.GetErrorCode(err),
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
