package analyzer

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// AmountConfig holds the amount tiers and surcharges.
type AmountConfig struct {
	HighTier  float64 `mapstructure:"high_tier" json:"highTier"`
	HighScore float64 `mapstructure:"high_score" json:"highScore"`
	MidTier   float64 `mapstructure:"mid_tier" json:"midTier"`
	MidScore  float64 `mapstructure:"mid_score" json:"midScore"`
	LowTier   float64 `mapstructure:"low_tier" json:"lowTier"`
	LowScore  float64 `mapstructure:"low_score" json:"lowScore"`

	// Round amounts are multiples of RoundUnit at or above RoundFloor.
	RoundUnit  float64 `mapstructure:"round_unit" json:"roundUnit"`
	RoundFloor float64 `mapstructure:"round_floor" json:"roundFloor"`
	RoundScore float64 `mapstructure:"round_score" json:"roundScore"`

	ATMCap   float64 `mapstructure:"atm_cap" json:"atmCap"`
	ATMScore float64 `mapstructure:"atm_score" json:"atmScore"`
}

// DefaultAmountConfig returns the stock amount tiers.
func DefaultAmountConfig() AmountConfig {
	return AmountConfig{
		HighTier:   50000,
		HighScore:  35,
		MidTier:    10000,
		MidScore:   25,
		LowTier:    5000,
		LowScore:   15,
		RoundUnit:  1000,
		RoundFloor: 5000,
		RoundScore: 10,
		ATMCap:     20000,
		ATMScore:   15,
	}
}

type amountAnalyzer struct {
	cfg AmountConfig
}

// NewAmount returns the amount analyzer.
func NewAmount(cfg AmountConfig) Analyzer {
	return &amountAnalyzer{cfg: cfg}
}

func (a *amountAnalyzer) Dimension() string { return DimAmount }

func (a *amountAnalyzer) Analyze(ev domain.Event, _ *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimAmount)

	amt, ok := domain.AmountOf(ev)
	if !ok {
		return c
	}

	switch {
	case amt.GreaterThan(decimal.NewFromFloat(a.cfg.HighTier)):
		c.Add(a.cfg.HighScore, fmt.Sprintf("Very high transaction amount (%s)", amt.String()))
	case amt.GreaterThan(decimal.NewFromFloat(a.cfg.MidTier)):
		c.Add(a.cfg.MidScore, fmt.Sprintf("High transaction amount (%s)", amt.String()))
	case amt.GreaterThan(decimal.NewFromFloat(a.cfg.LowTier)):
		c.Add(a.cfg.LowScore, fmt.Sprintf("Elevated transaction amount (%s)", amt.String()))
	}

	if a.cfg.RoundUnit > 0 {
		unit := decimal.NewFromFloat(a.cfg.RoundUnit)
		if amt.GreaterThanOrEqual(decimal.NewFromFloat(a.cfg.RoundFloor)) && amt.Mod(unit).IsZero() {
			c.Add(a.cfg.RoundScore, "Round amount (common in manual fraud)")
		}
	}

	if domain.ChannelOf(ev) == domain.ChannelATM && amt.GreaterThan(decimal.NewFromFloat(a.cfg.ATMCap)) {
		c.Add(a.cfg.ATMScore, fmt.Sprintf("Large ATM withdrawal above %s", decimal.NewFromFloat(a.cfg.ATMCap).String()))
	}

	return c
}
