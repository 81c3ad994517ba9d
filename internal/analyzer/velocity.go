package analyzer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// VelocityConfig holds the event count and cumulative amount steps.
type VelocityConfig struct {
	LowCount     int     `mapstructure:"low_count" json:"lowCount"`
	LowScore     float64 `mapstructure:"low_score" json:"lowScore"`
	HighCount    int     `mapstructure:"high_count" json:"highCount"`
	HighScore    float64 `mapstructure:"high_score" json:"highScore"`
	SumThreshold float64 `mapstructure:"sum_threshold" json:"sumThreshold"`
	SumScore     float64 `mapstructure:"sum_score" json:"sumScore"`
}

// DefaultVelocityConfig returns the stock velocity steps.
func DefaultVelocityConfig() VelocityConfig {
	return VelocityConfig{
		LowCount:     5,
		LowScore:     15,
		HighCount:    10,
		HighScore:    30,
		SumThreshold: 100000,
		SumScore:     20,
	}
}

type velocityAnalyzer struct {
	cfg VelocityConfig
}

// NewVelocity returns the velocity analyzer. Without history it is neutral.
func NewVelocity(cfg VelocityConfig) Analyzer {
	return &velocityAnalyzer{cfg: cfg}
}

func (a *velocityAnalyzer) Dimension() string { return DimVelocity }

func (a *velocityAnalyzer) Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimVelocity)
	if hc == nil {
		return c
	}

	window := formatWindow(hc.Window)
	switch {
	case a.cfg.HighCount > 0 && hc.RecentCount >= a.cfg.HighCount:
		c.Add(a.cfg.HighScore, fmt.Sprintf("High velocity: %d events in the last %s", hc.RecentCount, window))
	case a.cfg.LowCount > 0 && hc.RecentCount >= a.cfg.LowCount:
		c.Add(a.cfg.LowScore, fmt.Sprintf("Elevated velocity: %d events in the last %s", hc.RecentCount, window))
	}

	if amt, ok := domain.AmountOf(ev); ok && a.cfg.SumThreshold > 0 {
		total := hc.RecentSum.Add(amt)
		if total.GreaterThan(decimal.NewFromFloat(a.cfg.SumThreshold)) {
			c.Add(a.cfg.SumScore, fmt.Sprintf("High cumulative amount in the last %s (%s)", window, total.String()))
		}
	}

	return c
}
