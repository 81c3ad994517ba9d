package analyzer

import (
	"regexp"

	"github.com/opensource-finance/fraudforge/internal/checksum"
	"github.com/opensource-finance/fraudforge/internal/domain"
)

// ChecksumConfig holds the identifier format penalties.
type ChecksumConfig struct {
	InvalidCardScore float64 `mapstructure:"invalid_card_score" json:"invalidCardScore"`
	MissingCodeScore float64 `mapstructure:"missing_code_score" json:"missingCodeScore"`
}

// DefaultChecksumConfig returns the stock format penalties.
func DefaultChecksumConfig() ChecksumConfig {
	return ChecksumConfig{
		InvalidCardScore: 40,
		MissingCodeScore: 15,
	}
}

var otpCode = regexp.MustCompile(`\b\d{4,8}\b`)

type checksumAnalyzer struct {
	cfg ChecksumConfig
}

// NewChecksum returns the card number and OTP code format analyzer.
func NewChecksum(cfg ChecksumConfig) Analyzer {
	return &checksumAnalyzer{cfg: cfg}
}

func (a *checksumAnalyzer) Dimension() string { return DimChecksum }

func (a *checksumAnalyzer) Analyze(ev domain.Event, _ *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimChecksum)

	switch e := ev.(type) {
	case *domain.CardTransaction:
		if !checksum.Valid(e.CardNumber) {
			c.Add(a.cfg.InvalidCardScore, "Invalid card number (Luhn check failed)")
		}
	case *domain.OtpMessage:
		if !otpCode.MatchString(e.Content) {
			c.Add(a.cfg.MissingCodeScore, "No OTP code found in message")
		}
	}

	return c
}
