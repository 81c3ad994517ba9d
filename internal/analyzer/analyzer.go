// Package analyzer implements the independent risk signal analyzers.
//
// Every analyzer has the same shape: configuration is bound at construction
// and Analyze maps an event plus optional history to one RiskContribution.
// Analyzers never fail; missing or odd fields earn a small penalty and a
// reason, or nothing at all.
package analyzer

import (
	"fmt"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/rules"
)

// Analyzer scores one risk dimension of an event.
type Analyzer interface {
	Dimension() string
	Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution
}

// Dimension names.
const (
	DimAmount       = "amount"
	DimVelocity     = "velocity"
	DimGeography    = "geography"
	DimCounterparty = "counterparty"
	DimContent      = "content"
	DimTechnical    = "technical"
	DimChecksum     = "checksum"
	DimTemporal     = "temporal"
	DimBehavioral   = "behavioral"
	DimRules        = "rules"
)

// Weights groups the tunable constants of every analyzer for one domain.
type Weights struct {
	Amount       AmountConfig       `mapstructure:"amount" json:"amount"`
	Velocity     VelocityConfig     `mapstructure:"velocity" json:"velocity"`
	Geography    GeographyConfig    `mapstructure:"geography" json:"geography"`
	Counterparty CounterpartyConfig `mapstructure:"counterparty" json:"counterparty"`
	Content      ContentConfig      `mapstructure:"content" json:"content"`
	Technical    TechnicalConfig    `mapstructure:"technical" json:"technical"`
	Checksum     ChecksumConfig     `mapstructure:"checksum" json:"checksum"`
	Temporal     TemporalConfig     `mapstructure:"temporal" json:"temporal"`
	Behavioral   BehavioralConfig   `mapstructure:"behavioral" json:"behavioral"`
}

// DefaultWeights returns the stock constants shared by all domains.
func DefaultWeights() Weights {
	return Weights{
		Amount:       DefaultAmountConfig(),
		Velocity:     DefaultVelocityConfig(),
		Geography:    DefaultGeographyConfig(),
		Counterparty: DefaultCounterpartyConfig(),
		Content:      DefaultContentConfig(),
		Technical:    DefaultTechnicalConfig(),
		Checksum:     DefaultChecksumConfig(),
		Temporal:     DefaultTemporalConfig(),
		Behavioral:   DefaultBehavioralConfig(),
	}
}

// New builds the analyzer registered under name. The rules analyzer needs a
// rule engine and is built with NewRules instead.
func New(name string, w Weights) (Analyzer, error) {
	switch name {
	case DimAmount:
		return NewAmount(w.Amount), nil
	case DimVelocity:
		return NewVelocity(w.Velocity), nil
	case DimGeography:
		return NewGeography(w.Geography), nil
	case DimCounterparty:
		return NewCounterparty(w.Counterparty), nil
	case DimContent:
		return NewContent(w.Content), nil
	case DimTechnical:
		return NewTechnical(w.Technical)
	case DimChecksum:
		return NewChecksum(w.Checksum), nil
	case DimTemporal:
		return NewTemporal(w.Temporal), nil
	case DimBehavioral:
		return NewBehavioral(w.Behavioral), nil
	}
	return nil, fmt.Errorf("unknown analyzer %q", name)
}

// Build constructs the analyzers named in order. When eng is non-nil a rules
// analyzer is appended last.
func Build(names []string, w Weights, eng *rules.Engine) ([]Analyzer, error) {
	out := make([]Analyzer, 0, len(names)+1)
	for _, name := range names {
		if name == DimRules {
			continue
		}
		a, err := New(name, w)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if eng != nil {
		out = append(out, NewRules(eng))
	}
	return out, nil
}

func newContribution(dimension string) domain.RiskContribution {
	return domain.RiskContribution{Dimension: dimension, Reasons: []string{}}
}
