package rules

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

func newTestEngine(t *testing.T, workers int) *Engine {
	t.Helper()
	engine, err := NewEngine(workers)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestEngineCreation(t *testing.T) {
	engine := newTestEngine(t, 5)
	assert.Equal(t, 0, engine.RulesCount())
}

func TestLoadRule(t *testing.T) {
	engine := newTestEngine(t, 5)

	err := engine.LoadRule(&domain.RuleConfig{
		ID:         "test-rule-001",
		Name:       "Test Rule",
		Expression: "amount > 100.0",
		Score:      10,
		Enabled:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, engine.RulesCount())
}

func TestLoadInvalidRule(t *testing.T) {
	engine := newTestEngine(t, 5)

	t.Run("syntax error", func(t *testing.T) {
		err := engine.LoadRule(&domain.RuleConfig{ID: "bad", Expression: "this is not valid CEL !!!", Enabled: true})
		assert.Error(t, err)
	})

	t.Run("string output", func(t *testing.T) {
		err := engine.LoadRule(&domain.RuleConfig{ID: "str", Expression: "currency", Enabled: true})
		assert.ErrorContains(t, err, "must return bool, int, or double")
	})

	t.Run("missing id", func(t *testing.T) {
		err := engine.ValidateRule(&domain.RuleConfig{Expression: "amount > 1.0"})
		assert.Error(t, err)
	})

	assert.Equal(t, 0, engine.RulesCount())
}

func TestEvaluateBooleanRule(t *testing.T) {
	engine := newTestEngine(t, 5)
	require.NoError(t, engine.LoadRule(&domain.RuleConfig{
		ID:         "atm-large",
		Name:       "Large ATM withdrawal",
		Expression: `channel == "atm" && amount > 20000.0`,
		Score:      25,
		Reason:     "Large ATM withdrawal rule",
		Enabled:    true,
	}))

	results := engine.EvaluateAll(domain.DomainCard, &Input{Channel: "atm", Amount: 500})
	require.Len(t, results, 1)
	assert.Equal(t, 0.0, results[0].Score)

	results = engine.EvaluateAll(domain.DomainCard, &Input{Channel: "atm", Amount: 25000})
	require.Len(t, results, 1)
	assert.Equal(t, 25.0, results[0].Score)
	assert.Equal(t, "Large ATM withdrawal rule", results[0].Reason)
}

func TestEvaluateNumericRule(t *testing.T) {
	engine := newTestEngine(t, 5)
	require.NoError(t, engine.LoadRule(&domain.RuleConfig{
		ID:         "velocity-scaled",
		Name:       "Velocity scaled",
		Expression: "recent_count > 10 ? 20.0 : (recent_count > 5 ? 10.0 : -5.0)",
		Enabled:    true,
	}))

	tests := []struct {
		count int64
		want  float64
	}{
		{2, 0},
		{7, 10},
		{15, 20},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("count %d", tt.count), func(t *testing.T) {
			results := engine.EvaluateAll(domain.DomainTransaction, &Input{RecentCount: tt.count})
			require.Len(t, results, 1)
			assert.Equal(t, tt.want, results[0].Score)
			assert.Equal(t, "Velocity scaled", results[0].Reason)
		})
	}
}

func TestDomainScopedRules(t *testing.T) {
	engine := newTestEngine(t, 5)
	require.NoError(t, engine.LoadRules([]*domain.RuleConfig{
		{ID: "all", Expression: "true", Score: 1, Enabled: true},
		{ID: "otp-only", Domain: domain.DomainOTP, Expression: "true", Score: 1, Enabled: true},
		{ID: "disabled", Expression: "true", Score: 1, Enabled: false},
	}))

	assert.Equal(t, 2, engine.RulesCount())
	assert.Len(t, engine.EvaluateAll(domain.DomainCard, &Input{}), 1)
	assert.Len(t, engine.EvaluateAll(domain.DomainOTP, &Input{}), 2)
}

func TestParallelExecutionKeepsOrder(t *testing.T) {
	engine := newTestEngine(t, 3)

	for i := 9; i >= 0; i-- {
		require.NoError(t, engine.LoadRule(&domain.RuleConfig{
			ID:         fmt.Sprintf("rule-%d", i),
			Name:       fmt.Sprintf("Rule %d", i),
			Expression: "amount > 0.0",
			Score:      1,
			Enabled:    true,
		}))
	}
	require.Equal(t, 10, engine.RulesCount())

	for run := 0; run < 20; run++ {
		results := engine.EvaluateAll(domain.DomainCard, &Input{Amount: 100})
		require.Len(t, results, 10)
		for i, r := range results {
			assert.Equal(t, fmt.Sprintf("rule-%d", i), r.RuleID)
			assert.Equal(t, 1.0, r.Score)
		}
	}
}

func TestRuntimeErrorScoresZero(t *testing.T) {
	engine := newTestEngine(t, 5)
	require.NoError(t, engine.LoadRule(&domain.RuleConfig{
		ID:         "div",
		Expression: "100 / (recent_count - recent_count) > 1",
		Score:      10,
		Enabled:    true,
	}))

	results := engine.EvaluateAll(domain.DomainCard, &Input{RecentCount: 3})
	require.Len(t, results, 1)
	assert.Error(t, results[0].Err)
	assert.Equal(t, 0.0, results[0].Score)
}

func TestReloadRules(t *testing.T) {
	engine := newTestEngine(t, 5)
	require.NoError(t, engine.LoadRule(&domain.RuleConfig{ID: "old", Expression: "true", Enabled: true}))

	err := engine.ReloadRules([]*domain.RuleConfig{
		{ID: "new-1", Expression: "amount > 1.0", Enabled: true},
		{ID: "new-2", Expression: "hour < 5", Enabled: true},
	})
	require.NoError(t, err)

	loaded := engine.GetLoadedRules()
	require.Len(t, loaded, 2)
	assert.Equal(t, "new-1", loaded[0].ID)
	assert.Equal(t, "new-2", loaded[1].ID)

	t.Run("bad reload keeps previous set", func(t *testing.T) {
		err := engine.ReloadRules([]*domain.RuleConfig{{ID: "broken", Expression: "amount >", Enabled: true}})
		assert.Error(t, err)
		assert.Equal(t, 2, engine.RulesCount())
	})
}
