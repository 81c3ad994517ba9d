package config

import (
	"fmt"

	"github.com/opensource-finance/fraudforge/internal/analyzer"
	"github.com/opensource-finance/fraudforge/internal/decision"
	"github.com/opensource-finance/fraudforge/internal/domain"
)

// DomainConfig is the scoring configuration of a single domain.
type DomainConfig struct {
	// Analyzers run in this order; their reasons keep the same order.
	Analyzers  []string                `mapstructure:"analyzers" json:"analyzers"`
	Thresholds decision.ThresholdTable `mapstructure:"thresholds" json:"thresholds"`
	Confidence decision.Confidence     `mapstructure:"confidence" json:"confidence"`
	Weights    analyzer.Weights        `mapstructure:"weights" json:"weights"`
}

// Policy returns the classification part of the configuration.
func (c *DomainConfig) Policy() decision.Policy {
	return decision.Policy{Thresholds: c.Thresholds, Confidence: c.Confidence}
}

// Validate checks analyzer names, analyzer settings and the policy.
func (c *DomainConfig) Validate() error {
	if len(c.Analyzers) == 0 {
		return fmt.Errorf("no analyzers configured")
	}
	if _, err := analyzer.Build(c.Analyzers, c.Weights, nil); err != nil {
		return err
	}
	return c.Policy().Validate()
}

// Scoring holds the per-domain scoring configuration.
type Scoring struct {
	Card        DomainConfig `mapstructure:"card" json:"card"`
	OTP         DomainConfig `mapstructure:"otp" json:"otp"`
	URL         DomainConfig `mapstructure:"url" json:"url"`
	Phishing    DomainConfig `mapstructure:"phishing" json:"phishing"`
	Transaction DomainConfig `mapstructure:"transaction" json:"transaction"`
	Geo         DomainConfig `mapstructure:"geo" json:"geo"`
}

// For returns the configuration of d.
func (s *Scoring) For(d domain.Domain) (*DomainConfig, bool) {
	switch d {
	case domain.DomainCard:
		return &s.Card, true
	case domain.DomainOTP:
		return &s.OTP, true
	case domain.DomainURL:
		return &s.URL, true
	case domain.DomainPhishing:
		return &s.Phishing, true
	case domain.DomainTransaction:
		return &s.Transaction, true
	case domain.DomainGeo:
		return &s.Geo, true
	}
	return nil, false
}

// Validate checks every domain.
func (s *Scoring) Validate() error {
	for _, d := range domain.Domains() {
		dc, _ := s.For(d)
		if err := dc.Validate(); err != nil {
			return fmt.Errorf("scoring.%s: %w", d, err)
		}
	}
	return nil
}

func band(min float64, status domain.Status, rec domain.Recommendation, label string) decision.Band {
	return decision.Band{Min: min, Status: status, Recommendation: rec, Label: label}
}

// DefaultScoring returns the stock configuration for all domains.
func DefaultScoring() *Scoring {
	w := analyzer.DefaultWeights

	return &Scoring{
		Card: DomainConfig{
			Analyzers: []string{
				analyzer.DimAmount, analyzer.DimVelocity, analyzer.DimGeography, analyzer.DimCounterparty,
				analyzer.DimChecksum, analyzer.DimTemporal, analyzer.DimBehavioral,
			},
			Thresholds: decision.ThresholdTable{
				band(0, domain.StatusApproved, domain.RecommendApprove, "approved"),
				band(50, domain.StatusFlagged, domain.RecommendVerify, "flagged"),
				band(80, domain.StatusBlocked, domain.RecommendDecline, "blocked"),
			},
			Confidence: decision.Confidence{Base: 70, Slope: 0.3, Max: 99},
			Weights:    w(),
		},
		OTP: DomainConfig{
			Analyzers: []string{
				analyzer.DimCounterparty, analyzer.DimContent, analyzer.DimTechnical,
				analyzer.DimChecksum, analyzer.DimVelocity, analyzer.DimTemporal,
			},
			Thresholds: decision.ThresholdTable{
				band(0, domain.StatusApproved, domain.RecommendApprove, "safe"),
				band(30, domain.StatusReview, domain.RecommendMonitor, "suspicious"),
				band(60, domain.StatusBlocked, domain.RecommendDecline, "fraudulent"),
			},
			Confidence: decision.Confidence{Base: 60, Slope: 0.4, Max: 98},
			Weights:    w(),
		},
		URL: DomainConfig{
			Analyzers: []string{analyzer.DimTechnical, analyzer.DimCounterparty},
			Thresholds: decision.ThresholdTable{
				band(0, domain.StatusApproved, domain.RecommendApprove, "safe"),
				band(30, domain.StatusReview, domain.RecommendMonitor, "suspicious"),
				band(60, domain.StatusBlocked, domain.RecommendDecline, "malicious"),
			},
			Confidence: decision.Confidence{Base: 65, Slope: 0.35, Max: 99},
			Weights:    w(),
		},
		Phishing: DomainConfig{
			Analyzers: []string{analyzer.DimCounterparty, analyzer.DimContent, analyzer.DimTechnical},
			Thresholds: decision.ThresholdTable{
				band(0, domain.StatusApproved, domain.RecommendApprove, "safe"),
				band(40, domain.StatusReview, domain.RecommendVerify, "suspicious"),
				band(70, domain.StatusBlocked, domain.RecommendDecline, "phishing"),
			},
			Confidence: decision.Confidence{Base: 60, Slope: 0.4, Max: 98},
			Weights:    w(),
		},
		Transaction: DomainConfig{
			Analyzers: []string{
				analyzer.DimAmount, analyzer.DimVelocity, analyzer.DimGeography, analyzer.DimCounterparty,
				analyzer.DimTemporal, analyzer.DimBehavioral,
			},
			Thresholds: decision.ThresholdTable{
				band(0, domain.StatusApproved, domain.RecommendApprove, "low risk"),
				band(40, domain.StatusReview, domain.RecommendMonitor, "medium risk"),
				band(70, domain.StatusFlagged, domain.RecommendVerify, "high risk"),
				band(85, domain.StatusBlocked, domain.RecommendDecline, "critical"),
			},
			Confidence: decision.Confidence{Base: 70, Slope: 0.3, Max: 99},
			Weights:    w(),
		},
		Geo: DomainConfig{
			Analyzers: []string{
				analyzer.DimAmount, analyzer.DimVelocity, analyzer.DimGeography, analyzer.DimCounterparty,
				analyzer.DimTemporal, analyzer.DimBehavioral,
			},
			Thresholds: decision.ThresholdTable{
				band(0, domain.StatusApproved, domain.RecommendApprove, "normal"),
				band(40, domain.StatusFlagged, domain.RecommendVerify, "anomalous"),
				band(75, domain.StatusBlocked, domain.RecommendDecline, "blocked"),
			},
			Confidence: decision.Confidence{Base: 65, Slope: 0.35, Max: 99},
			Weights:    w(),
		},
	}
}
