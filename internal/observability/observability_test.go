package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	var logs strings.Builder
	r := chi.NewRouter()
	r.Use(middleware.RequestID, Middleware(zerolog.New(&logs)))
	r.Get("/widgets/{id}", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/widgets/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)

	metrics := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Contains(t, metrics.Body.String(),
		`autograde_http_requests_total{method="GET",route="/widgets/{id}",status="404"}`)
	require.Contains(t, logs.String(), `"route":"/widgets/{id}"`)
	require.Contains(t, logs.String(), `"level":"warn"`)
	require.Contains(t, logs.String(), `"request_id"`)
}

func TestMetricsHandlerExposesCollectors(t *testing.T) {
	SubmissionsGraded().WithLabelValues("true").Inc()
	RatingConflicts().Inc()

	rec := httptest.NewRecorder()
	MetricsHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "autograde_submissions_graded_total")
	require.Contains(t, body, "autograde_rating_conflicts_total")
}
