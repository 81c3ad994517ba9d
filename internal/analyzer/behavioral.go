package analyzer

import (
	"fmt"
	"strings"
	"time"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// BehavioralConfig holds the device and account checks. These signals come
// only from the supplied history; nothing is simulated.
type BehavioralConfig struct {
	MissingDeviceScore      float64       `mapstructure:"missing_device_score" json:"missingDeviceScore"`
	UnknownDeviceScore      float64       `mapstructure:"unknown_device_score" json:"unknownDeviceScore"`
	NewAccountAge           time.Duration `mapstructure:"new_account_age" json:"newAccountAge"`
	NewAccountScore         float64       `mapstructure:"new_account_score" json:"newAccountScore"`
	YoungAccountAge         time.Duration `mapstructure:"young_account_age" json:"youngAccountAge"`
	YoungAccountScore       float64       `mapstructure:"young_account_score" json:"youngAccountScore"`
	FailedAttemptsThreshold int           `mapstructure:"failed_attempts_threshold" json:"failedAttemptsThreshold"`
	FailedAttemptsScore     float64       `mapstructure:"failed_attempts_score" json:"failedAttemptsScore"`
}

// DefaultBehavioralConfig returns the stock device and account checks.
func DefaultBehavioralConfig() BehavioralConfig {
	return BehavioralConfig{
		MissingDeviceScore:      5,
		UnknownDeviceScore:      15,
		NewAccountAge:           24 * time.Hour,
		NewAccountScore:         15,
		YoungAccountAge:         7 * 24 * time.Hour,
		YoungAccountScore:       5,
		FailedAttemptsThreshold: 3,
		FailedAttemptsScore:     20,
	}
}

type behavioralAnalyzer struct {
	cfg BehavioralConfig
}

// NewBehavioral returns the device and account behavior analyzer.
func NewBehavioral(cfg BehavioralConfig) Analyzer {
	return &behavioralAnalyzer{cfg: cfg}
}

func (a *behavioralAnalyzer) Dimension() string { return DimBehavioral }

func (a *behavioralAnalyzer) Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimBehavioral)

	device, ok := domain.DeviceOf(ev)
	if !ok {
		return c
	}

	device = strings.TrimSpace(device)
	switch {
	case device == "":
		c.Add(a.cfg.MissingDeviceScore, "No device fingerprint supplied")
	case hc != nil && len(hc.KnownDevices) > 0 && !hc.KnowsDevice(device):
		c.Add(a.cfg.UnknownDeviceScore, fmt.Sprintf("Unrecognized device: %s", device))
	}

	if hc == nil {
		return c
	}

	if hc.AccountAge > 0 {
		switch {
		case hc.AccountAge < a.cfg.NewAccountAge:
			c.Add(a.cfg.NewAccountScore, fmt.Sprintf("New account (%s old)", formatAge(hc.AccountAge)))
		case hc.AccountAge < a.cfg.YoungAccountAge:
			c.Add(a.cfg.YoungAccountScore, fmt.Sprintf("Young account (%s old)", formatAge(hc.AccountAge)))
		}
	}

	if a.cfg.FailedAttemptsThreshold > 0 && hc.FailedAttempts >= a.cfg.FailedAttemptsThreshold {
		c.Add(a.cfg.FailedAttemptsScore, fmt.Sprintf("%d failed authentication attempts", hc.FailedAttempts))
	}

	return c
}

func formatAge(d time.Duration) string {
	if d >= 24*time.Hour {
		return fmt.Sprintf("%dd", int(d/(24*time.Hour)))
	}
	return formatWindow(d.Truncate(time.Minute))
}
