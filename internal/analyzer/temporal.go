package analyzer

import (
	"errors"
	"fmt"
	"time"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/geo"
)

// TemporalConfig holds the time-of-day and travel checks.
type TemporalConfig struct {
	// Night spans [NightStartHour, NightEndHour) in the event's own clock.
	NightStartHour    int     `mapstructure:"night_start_hour" json:"nightStartHour"`
	NightEndHour      int     `mapstructure:"night_end_hour" json:"nightEndHour"`
	NightScore        float64 `mapstructure:"night_score" json:"nightScore"`
	WeekendNightScore float64 `mapstructure:"weekend_night_score" json:"weekendNightScore"`

	MaxSpeedKmh           float64 `mapstructure:"max_speed_kmh" json:"maxSpeedKmh"`
	ImpossibleTravelScore float64 `mapstructure:"impossible_travel_score" json:"impossibleTravelScore"`

	// Same-instant events further apart than SimultaneousKm are simultaneous.
	SimultaneousKm    float64 `mapstructure:"simultaneous_km" json:"simultaneousKm"`
	SimultaneousScore float64 `mapstructure:"simultaneous_score" json:"simultaneousScore"`
}

// DefaultTemporalConfig returns the stock temporal checks.
func DefaultTemporalConfig() TemporalConfig {
	return TemporalConfig{
		NightStartHour:        0,
		NightEndHour:          5,
		NightScore:            10,
		WeekendNightScore:     5,
		MaxSpeedKmh:           100,
		ImpossibleTravelScore: 40,
		SimultaneousKm:        1,
		SimultaneousScore:     40,
	}
}

type temporalAnalyzer struct {
	cfg TemporalConfig
}

// NewTemporal returns the time-of-day and impossible travel analyzer.
func NewTemporal(cfg TemporalConfig) Analyzer {
	return &temporalAnalyzer{cfg: cfg}
}

func (a *temporalAnalyzer) Dimension() string { return DimTemporal }

func (a *temporalAnalyzer) Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimTemporal)

	at := ev.OccurredAt()
	if at.IsZero() {
		return c
	}

	if a.night(at.Hour()) {
		c.Add(a.cfg.NightScore, fmt.Sprintf("Activity at night (%s)", at.Format("15:04")))
		if wd := at.Weekday(); wd == time.Saturday || wd == time.Sunday {
			c.Add(a.cfg.WeekendNightScore, "Weekend night activity")
		}
	}

	point, ok := domain.PointOf(ev)
	if !ok || hc == nil || hc.LastFix == nil || !point.Valid() {
		return c
	}

	current := geo.Fix{Point: point, At: at}
	dist := geo.DistanceBetween(hc.LastFix.Point, point)
	speed, err := geo.Speed(hc.LastFix.Fix, current)
	switch {
	case errors.Is(err, geo.ErrUndefinedVelocity):
		if dist > a.cfg.SimultaneousKm {
			c.Add(a.cfg.SimultaneousScore, fmt.Sprintf("Simultaneous transactions at different locations (%.0f km apart)", dist))
		}
	case a.cfg.MaxSpeedKmh > 0 && speed > a.cfg.MaxSpeedKmh:
		c.Add(a.cfg.ImpossibleTravelScore, fmt.Sprintf("Impossible travel speed: %.0f km/h over %.1f km", speed, dist))
	}

	return c
}

func (a *temporalAnalyzer) night(hour int) bool {
	start, end := a.cfg.NightStartHour, a.cfg.NightEndHour
	if start == end {
		return false
	}
	if start < end {
		return hour >= start && hour < end
	}
	return hour >= start || hour < end
}
