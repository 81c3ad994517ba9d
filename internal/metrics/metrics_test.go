package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

func TestStatusBucket(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{0, "2xx"},
		{100, "1xx"},
		{200, "2xx"},
		{202, "2xx"},
		{301, "3xx"},
		{400, "4xx"},
		{404, "4xx"},
		{500, "5xx"},
		{503, "5xx"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusBucket(tt.code), "code %d", tt.code)
	}
}

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/evaluations/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	before := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/evaluations/{id}", "4xx"))

	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/evaluations/"+id, nil))
	}

	after := testutil.ToFloat64(HTTPRequestsTotal.WithLabelValues("GET", "/evaluations/{id}", "4xx"))
	assert.Equal(t, 3.0, after-before)
}

func TestObserveEvaluation(t *testing.T) {
	res := &domain.AnalysisResult{
		Domain:     domain.DomainURL,
		TotalScore: 65,
		Status:     domain.StatusBlocked,
		Contributions: []domain.RiskContribution{
			{Dimension: "technical", Score: 65},
			{Dimension: "counterparty", Score: 0},
		},
	}

	evalBefore := testutil.ToFloat64(EvaluationsTotal.WithLabelValues("url", "blocked"))
	techBefore := testutil.ToFloat64(AnalyzerHitsTotal.WithLabelValues("url", "technical"))
	cpBefore := testutil.ToFloat64(AnalyzerHitsTotal.WithLabelValues("url", "counterparty"))

	ObserveEvaluation(res, 3*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(EvaluationsTotal.WithLabelValues("url", "blocked"))-evalBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(AnalyzerHitsTotal.WithLabelValues("url", "technical"))-techBefore)
	assert.Equal(t, 0.0, testutil.ToFloat64(AnalyzerHitsTotal.WithLabelValues("url", "counterparty"))-cpBefore)
}

func TestMetricsEndpoint(t *testing.T) {
	RulesLoaded.Set(2)

	w := httptest.NewRecorder()
	Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "fraudforge_rules_loaded 2")
}
