package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/analyzer"
	"github.com/opensource-finance/fraudforge/internal/domain"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fraudforge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultScoringIsValid(t *testing.T) {
	s := DefaultScoring()
	require.NoError(t, s.Validate())

	for _, d := range domain.Domains() {
		dc, ok := s.For(d)
		require.True(t, ok, d)
		assert.NotEmpty(t, dc.Analyzers, d)
		assert.Equal(t, 0.0, dc.Thresholds[0].Min, d)
	}

	_, ok := s.For(domain.Domain("wire"))
	assert.False(t, ok)
}

func TestScoringValidate(t *testing.T) {
	t.Run("unknown analyzer", func(t *testing.T) {
		s := DefaultScoring()
		s.URL.Analyzers = append(s.URL.Analyzers, "astrology")
		assert.ErrorContains(t, s.Validate(), "scoring.url")
	})

	t.Run("bad threshold table", func(t *testing.T) {
		s := DefaultScoring()
		s.Card.Thresholds[1].Min = 90
		assert.ErrorContains(t, s.Validate(), "scoring.card")
	})

	t.Run("negative slope", func(t *testing.T) {
		s := DefaultScoring()
		s.Geo.Confidence.Slope = -0.1
		assert.ErrorContains(t, s.Validate(), "scoring.geo")
	})
}

func TestLoadDefaults(t *testing.T) {
	s, err := Load(writeConfig(t, "service: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, domain.TierCommunity, s.Service.Tier)
	assert.Equal(t, 8080, s.Service.Server.Port)
	assert.Equal(t, "sqlite", s.Service.Repository.Driver)
	assert.Equal(t, time.Hour, s.Service.History.Window)
	assert.Equal(t, DefaultScoring().Card, s.Scoring.Card)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
service:
  server:
    port: 9090
  history:
    window: 2h
scoring:
  url:
    thresholds:
      - {min: 0, status: approved, recommendation: approve, label: safe}
      - {min: 50, status: blocked, recommendation: decline, label: malicious}
    confidence:
      base: 50
  card:
    weights:
      amount:
        mid_tier: 20000
`)

	s, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, s.Service.Server.Port)
	assert.Equal(t, 2*time.Hour, s.Service.History.Window)
	assert.Equal(t, "0.0.0.0", s.Service.Server.Host)

	require.Len(t, s.Scoring.URL.Thresholds, 2)
	assert.Equal(t, domain.StatusBlocked, s.Scoring.URL.Thresholds[1].Status)
	assert.Equal(t, "malicious", s.Scoring.URL.Thresholds[1].Label)
	assert.Equal(t, 50.0, s.Scoring.URL.Confidence.Base)
	assert.Equal(t, 0.35, s.Scoring.URL.Confidence.Slope)

	assert.Equal(t, 20000.0, s.Scoring.Card.Weights.Amount.MidTier)
	assert.Equal(t, analyzer.DefaultAmountConfig().HighTier, s.Scoring.Card.Weights.Amount.HighTier)
	assert.Equal(t, DefaultScoring().OTP, s.Scoring.OTP)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("FRAUDFORGE_PORT", "7070")
	t.Setenv("FRAUDFORGE_SERVICE_LOGGING_LEVEL", "debug")

	s, err := Load(writeConfig(t, "service: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, 7070, s.Service.Server.Port)
	assert.Equal(t, "debug", s.Service.Logging.Level)
}

func TestLoadProTier(t *testing.T) {
	t.Setenv("FRAUDFORGE_TIER", "pro")

	s, err := Load(writeConfig(t, "service: {}\n"))
	require.NoError(t, err)

	assert.Equal(t, domain.TierPro, s.Service.Tier)
	assert.Equal(t, "postgres", s.Service.Repository.Driver)
	assert.Equal(t, "redis", s.Service.Cache.Type)
	assert.Equal(t, "nats", s.Service.EventBus.Type)
	assert.True(t, s.Service.Blocklist.AutoBlock)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Run("bad table", func(t *testing.T) {
		path := writeConfig(t, `
scoring:
  otp:
    thresholds:
      - {min: 10, status: approved, recommendation: approve}
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "scoring.otp")
	})

	t.Run("bad driver", func(t *testing.T) {
		path := writeConfig(t, `
service:
  repository:
    driver: oracle
`)
		_, err := Load(path)
		assert.ErrorContains(t, err, "oracle")
	})

	t.Run("missing explicit file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}
