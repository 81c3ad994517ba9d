package api

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/worker"
)

func hasReason(reasons []string, fragment string) bool {
	for _, r := range reasons {
		if strings.Contains(strings.ToLower(r), strings.ToLower(fragment)) {
			return true
		}
	}
	return false
}

func TestEndToEndScenarios(t *testing.T) {
	stack := newTestStack(t, "")

	t.Run("SafeCardApproved", func(t *testing.T) {
		rr := do(t, stack.server, http.MethodPost, "/evaluate/card", safeCard("e2e-safe"))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[domain.EvaluationResponse](t, rr)
		assert.Less(t, resp.TotalScore, 30.0)
		assert.Equal(t, domain.StatusApproved, resp.Status)
		assert.Empty(t, resp.Metadata.AutoBlocked)
	})

	t.Run("HighRiskCardBlocked", func(t *testing.T) {
		ev := safeCard("e2e-risky")
		ev["amount"] = 99999
		ev["merchant"] = "Unknown Merchant"
		ev["location"] = "Nigeria"

		rr := do(t, stack.server, http.MethodPost, "/evaluate/card", ev)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[domain.EvaluationResponse](t, rr)
		assert.GreaterOrEqual(t, resp.TotalScore, 80.0)
		assert.LessOrEqual(t, resp.TotalScore, 100.0)
		assert.Equal(t, domain.StatusBlocked, resp.Status)
		assert.GreaterOrEqual(t, len(resp.Reasons), 2)
	})

	t.Run("InvalidChecksum", func(t *testing.T) {
		ev := safeCard("e2e-luhn")
		ev["cardNumber"] = "4111111111111112"

		rr := do(t, stack.server, http.MethodPost, "/evaluate/card", ev)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[domain.EvaluationResponse](t, rr)
		assert.Contains(t, resp.Reasons, "Invalid card number (Luhn check failed)")
	})

	t.Run("ImpossibleTravel", func(t *testing.T) {
		first := map[string]any{
			"id":        "e2e-geo-1",
			"accountId": "acct-travel",
			"amount":    1200,
			"merchant":  "Amazon",
			"location":  "Mumbai, India",
			"point":     map[string]float64{"lat": 19.0760, "lng": 72.8777},
			"deviceId":  "dev-1",
			"timestamp": "2025-03-12T13:59:00Z",
		}
		rr := do(t, stack.server, http.MethodPost, "/evaluate/geo", first)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.False(t, hasReason(decode[domain.EvaluationResponse](t, rr).Reasons, "impossible travel"))

		second := map[string]any{
			"id":        "e2e-geo-2",
			"accountId": "acct-travel",
			"amount":    1200,
			"merchant":  "Amazon",
			"location":  "Mumbai, India",
			"point":     map[string]float64{"lat": 19.0760 + 50/111.19, "lng": 72.8777},
			"deviceId":  "dev-1",
			"timestamp": "2025-03-12T14:00:00Z",
		}
		rr = do(t, stack.server, http.MethodPost, "/evaluate/geo", second)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		resp := decode[domain.EvaluationResponse](t, rr)
		assert.True(t, hasReason(resp.Reasons, "impossible travel speed"), "reasons: %v", resp.Reasons)
		assert.GreaterOrEqual(t, resp.TotalScore, 40.0)
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		rr := do(t, stack.server, http.MethodGet, "/evaluations/"+mustEvaluationID(t, stack, "e2e-iso"), nil)
		require.Equal(t, http.StatusOK, rr.Code)

		req := httptest.NewRequest(http.MethodGet, "/evaluations?limit=50", nil)
		req.Header.Set(TenantIDHeader, "tenant-002")
		rr = httptest.NewRecorder()
		stack.server.Router().ServeHTTP(rr, req)
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, 0, decode[struct {
			Count int `json:"count"`
		}](t, rr).Count)
	})
}

func TestEndToEndAsyncSubmission(t *testing.T) {
	stack := newTestStack(t, "")

	w := worker.NewWorker(stack.bus, stack.svc)
	require.NoError(t, w.Start(worker.Config{TenantIDs: []string{tenantID}}))
	t.Cleanup(func() { w.Stop() })

	rr := do(t, stack.server, http.MethodPost, "/events/card", safeCard("e2e-async"))
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())
	assert.Equal(t, "e2e-async", decode[map[string]string](t, rr)["eventId"])

	require.Eventually(t, func() bool {
		rr := do(t, stack.server, http.MethodGet, "/evaluations?limit=10", nil)
		if rr.Code != http.StatusOK {
			return false
		}
		list := decode[struct {
			Evaluations []domain.EvaluationResponse `json:"evaluations"`
		}](t, rr)
		return len(list.Evaluations) == 1 && list.Evaluations[0].EventID == "e2e-async"
	}, 5*time.Second, 20*time.Millisecond)

	require.Eventually(t, func() bool {
		return w.GetStats().Processed == 1
	}, time.Second, 10*time.Millisecond)
	assert.Zero(t, w.GetStats().Failed)
}

func mustEvaluationID(t *testing.T, stack *testStack, eventID string) string {
	t.Helper()
	rr := do(t, stack.server, http.MethodPost, "/evaluate/card", safeCard(eventID))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	return decode[domain.EvaluationResponse](t, rr).EvaluationID
}
