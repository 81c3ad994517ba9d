package analyzer

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/geo"
)

// GeographyConfig holds the location lists and zones.
type GeographyConfig struct {
	HighRisk        []string   `mapstructure:"high_risk" json:"highRisk"`
	HighRiskScore   float64    `mapstructure:"high_risk_score" json:"highRiskScore"`
	MediumRisk      []string   `mapstructure:"medium_risk" json:"mediumRisk"`
	MediumRiskScore float64    `mapstructure:"medium_risk_score" json:"mediumRiskScore"`
	UnknownScore    float64    `mapstructure:"unknown_score" json:"unknownScore"`
	UnfamiliarScore float64    `mapstructure:"unfamiliar_score" json:"unfamiliarScore"`
	Zones           []geo.Zone `mapstructure:"zones" json:"zones"`
}

// DefaultGeographyConfig returns the stock location lists.
func DefaultGeographyConfig() GeographyConfig {
	return GeographyConfig{
		HighRisk:        []string{"nigeria", "russia", "north korea", "iran", "syria", "somalia", "yemen", "venezuela"},
		HighRiskScore:   30,
		MediumRisk:      []string{"romania", "ukraine", "vietnam", "pakistan", "indonesia", "philippines", "brazil"},
		MediumRiskScore: 15,
		UnknownScore:    20,
		UnfamiliarScore: 10,
	}
}

var unknownLocations = map[string]bool{
	"":        true,
	"unknown": true,
	"n/a":     true,
	"na":      true,
	"none":    true,
}

type geographyAnalyzer struct {
	cfg GeographyConfig
}

// NewGeography returns the geography analyzer.
func NewGeography(cfg GeographyConfig) Analyzer {
	return &geographyAnalyzer{cfg: cfg}
}

func (a *geographyAnalyzer) Dimension() string { return DimGeography }

func (a *geographyAnalyzer) Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimGeography)

	loc, ok := domain.LocationOf(ev)
	if !ok {
		return c
	}

	trimmed := strings.TrimSpace(loc)
	point, located := domain.PointOf(ev)
	switch {
	case trimmed == "" && located:
		// coordinates stand in for the missing label
	case unknownLocations[strings.ToLower(trimmed)]:
		c.Add(a.cfg.UnknownScore, "Unknown transaction location")
	default:
		if hits := matchPhrases(trimmed, a.cfg.HighRisk); len(hits) > 0 {
			c.Add(a.cfg.HighRiskScore, fmt.Sprintf("High-risk location: %s", trimmed))
		} else if hits := matchPhrases(trimmed, a.cfg.MediumRisk); len(hits) > 0 {
			c.Add(a.cfg.MediumRiskScore, fmt.Sprintf("Medium-risk location: %s", trimmed))
		}
		if hc != nil && len(hc.KnownLocations) > 0 && !hc.KnowsLocation(trimmed) {
			c.Add(a.cfg.UnfamiliarScore, fmt.Sprintf("Unfamiliar location for this account: %s", trimmed))
		}
	}

	if located && point.Valid() {
		for _, z := range a.cfg.Zones {
			if z.Contains(point) {
				c.Add(z.Score, fmt.Sprintf("Inside high-risk zone: %s", z.Name))
			}
		}
	}

	return c
}
