package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mir00r/lb-dashboard/internal/domain"
	"github.com/mir00r/lb-dashboard/pkg/logger"
)

type staticFeeds struct {
	metrics []domain.BackendMetric
	report  domain.StatusReport
}

func (s staticFeeds) Metrics() []domain.BackendMetric { return s.metrics }

func (s staticFeeds) Status() domain.StatusReport { return s.report }

func (s staticFeeds) GetStats() map[string]interface{} {
	return map[string]interface{}{"backends": len(s.metrics)}
}

func newTestRouter(protect func(http.Handler) http.Handler) http.Handler {
	feeds := staticFeeds{
		metrics: []domain.BackendMetric{{Address: "localhost:9001", Alive: true, Latency: 12, ErrorCount: 1}},
		report: domain.StatusReport{
			CurrentAlgo:     "roundrobin",
			AdaptiveReason:  "normal_conditions",
			SelectedBackend: "localhost:9001",
			DecisionLog: []domain.DecisionLogEntry{
				{Time: time.Date(2024, 1, 1, 12, 1, 39, 0, time.UTC), Algo: "roundrobin", Backend: "localhost:9001", Reason: "normal_conditions"},
			},
		},
	}
	health := NewHealthHandler("test")
	health.Register("pool", feeds)

	return NewRouter(RouterOptions{
		Feeds:   NewFeedHandler(feeds, feeds),
		Health:  health,
		Protect: protect,
	})
}

func TestMetricsRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"Address":"localhost:9001","Alive":true,"Latency":12,"ErrorCount":1}]`, rec.Body.String())
}

func TestStatusRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var report domain.StatusReport
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "normal_conditions", report.AdaptiveReason)
	require.Len(t, report.DecisionLog, 1)
	assert.Equal(t, 39, report.DecisionLog[0].Time.Second())
}

func TestHealthRoute(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "alive", body["status"])
	assert.Equal(t, map[string]interface{}{"backends": float64(1)}, body["pool"])
}

func TestRouterRejects(t *testing.T) {
	tests := []struct {
		name   string
		method string
		path   string
		want   int
	}{
		{name: "unknown path", method: http.MethodGet, path: "/nope", want: http.StatusNotFound},
		{name: "wrong method", method: http.MethodPost, path: "/metrics", want: http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			newTestRouter(nil).ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestProtectWrapsFeedsOnly(t *testing.T) {
	deny := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		})
	}
	router := newTestRouter(deny)

	for _, path := range []string{"/metrics", "/status"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStreamPushesStatus(t *testing.T) {
	feeds := staticFeeds{report: domain.StatusReport{CurrentAlgo: "leastconnections", AdaptiveReason: "high_concurrency"}}
	server := httptest.NewServer(NewRouter(RouterOptions{
		Feeds:  NewFeedHandler(feeds, feeds),
		Stream: NewStreamHandler(feeds, 10*time.Millisecond, logger.NewDiscard()),
	}))
	defer server.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/stream", nil)
	require.NoError(t, err)
	defer conn.Close()

	for i := 0; i < 2; i++ {
		var report domain.StatusReport
		require.NoError(t, conn.ReadJSON(&report))
		assert.Equal(t, "leastconnections", report.CurrentAlgo)
		assert.Equal(t, "high_concurrency", report.AdaptiveReason)
	}
}
