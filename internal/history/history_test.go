package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/cache"
	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/geo"
	"github.com/opensource-finance/fraudforge/internal/repository"
)

const tenantID = "tenant-001"

var noon = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func setup(t *testing.T) (*Resolver, *repository.SQLRepository, *cache.LRUCache) {
	t.Helper()
	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "history.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	c := cache.NewLRUCache(100)
	t.Cleanup(func() { c.Close() })

	return NewResolver(repo, c, domain.HistoryConfig{Window: time.Hour, Lookback: 30 * 24 * time.Hour}), repo, c
}

func save(t *testing.T, repo domain.Repository, ev domain.Event) {
	t.Helper()
	rec, err := domain.NewEventRecord(tenantID, ev)
	require.NoError(t, err)
	require.NoError(t, repo.SaveEvent(context.Background(), tenantID, rec))
}

func card(id string, at time.Time, amount int64, location, device string, p *geo.Point) *domain.CardTransaction {
	return &domain.CardTransaction{
		ID:           id,
		CardNumber:   "4111111111111111",
		CardholderID: "holder-1",
		Amount:       decimal.NewFromInt(amount),
		Merchant:     "Amazon",
		Location:     location,
		Coordinates:  p,
		DeviceID:     device,
		Timestamp:    at,
	}
}

func TestResolveNoHistory(t *testing.T) {
	r, _, _ := setup(t)

	hc, err := r.Resolve(context.Background(), tenantID, card("evt-0", noon, 100, "Mumbai, India", "dev-1", nil))
	require.NoError(t, err)

	assert.Equal(t, time.Hour, hc.Window)
	assert.Zero(t, hc.RecentCount)
	assert.True(t, hc.RecentSum.IsZero())
	assert.Empty(t, hc.KnownLocations)
	assert.Nil(t, hc.LastFix)
	assert.Zero(t, hc.AccountAge)
	assert.Zero(t, hc.FailedAttempts)
}

func TestResolveHistory(t *testing.T) {
	r, repo, c := setup(t)
	ctx := context.Background()

	mumbai := &geo.Point{Lat: 19.076, Lng: 72.8777}
	delhi := &geo.Point{Lat: 28.6139, Lng: 77.209}

	save(t, repo, card("evt-old", noon.Add(-10*24*time.Hour), 50, "Mumbai, India", "dev-1", mumbai))
	save(t, repo, card("evt-1", noon.Add(-40*time.Minute), 100, "Mumbai, India", "dev-1", mumbai))
	save(t, repo, card("evt-2", noon.Add(-10*time.Minute), 250, "Delhi, India", "dev-2", delhi))
	save(t, repo, &domain.GenericTransaction{
		ID:        "evt-tx",
		AccountID: "holder-1",
		Amount:    decimal.NewFromInt(9999),
		Location:  "Pune, India",
		Timestamp: noon.Add(-5 * time.Minute),
	})
	// after the event being scored
	save(t, repo, card("evt-future", noon.Add(time.Hour), 1, "Paris, France", "dev-9", nil))

	current := card("evt-now", noon, 75, "Delhi, India", "dev-2", delhi)
	save(t, repo, current)

	require.NoError(t, repo.AddBlocklistEntry(ctx, tenantID, &domain.BlocklistEntry{Identifier: "amazon"}))
	for i := 0; i < 3; i++ {
		_, err := c.IncrementCounter(ctx, tenantID, domain.FailedAttemptsPrefix+"holder-1", time.Hour)
		require.NoError(t, err)
	}

	hc, err := r.Resolve(ctx, tenantID, current)
	require.NoError(t, err)

	assert.Equal(t, 2, hc.RecentCount, "same-domain events inside the window")
	assert.True(t, decimal.NewFromInt(350).Equal(hc.RecentSum), "got %s", hc.RecentSum)
	assert.Equal(t, []string{"Pune, India", "Delhi, India", "Mumbai, India"}, hc.KnownLocations)
	assert.Equal(t, []string{"dev-2", "dev-1"}, hc.KnownDevices)
	assert.Equal(t, []string{"amazon"}, hc.BlockedIdentifiers)
	assert.Equal(t, 3, hc.FailedAttempts)
	assert.Equal(t, 10*24*time.Hour, hc.AccountAge)

	require.NotNil(t, hc.LastFix)
	assert.Equal(t, "Delhi, India", hc.LastFix.Location)
	assert.InDelta(t, delhi.Lat, hc.LastFix.Point.Lat, 1e-9)
	assert.True(t, hc.LastFix.At.Equal(noon.Add(-10*time.Minute)))

	again, err := r.Resolve(ctx, tenantID, current)
	require.NoError(t, err)
	assert.Equal(t, hc, again)
}

func TestResolveKnownSenders(t *testing.T) {
	r, repo, _ := setup(t)

	for i, sender := range []string{"HDFCBK", "AMAZON", "hdfcbk"} {
		save(t, repo, &domain.OtpMessage{
			ID:         "otp-" + string(rune('a'+i)),
			Sender:     sender,
			Recipient:  "+911234567890",
			Content:    "Your OTP is 123456",
			ReceivedAt: noon.Add(-time.Duration(i+1) * time.Hour),
		})
	}

	hc, err := r.Resolve(context.Background(), tenantID, &domain.OtpMessage{
		ID:         "otp-new",
		Sender:     "VK-SCAM",
		Recipient:  "+911234567890",
		Content:    "Share your OTP",
		ReceivedAt: noon,
	})
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"hdfcbk", "amazon"}, hc.KnownSenders)
	assert.False(t, hc.KnowsSender("VK-SCAM"))
	assert.True(t, hc.KnowsSender("HDFCBK"))
}

func TestResolveWithoutActor(t *testing.T) {
	r, repo, _ := setup(t)
	ctx := context.Background()

	require.NoError(t, repo.AddBlocklistEntry(ctx, tenantID, &domain.BlocklistEntry{Identifier: "evil.example"}))

	hc, err := r.Resolve(ctx, tenantID, &domain.UrlSubmission{ID: "u1", URL: "https://EVIL.example/login"})
	require.NoError(t, err)
	assert.Equal(t, []string{"evil.example"}, hc.BlockedIdentifiers)
	assert.Zero(t, hc.RecentCount)
}

func TestResolveRequiresTenant(t *testing.T) {
	r, _, _ := setup(t)

	_, err := r.Resolve(context.Background(), "", card("evt", noon, 1, "", "", nil))
	assert.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestNewResolverDefaults(t *testing.T) {
	r := NewResolver(nil, nil, domain.HistoryConfig{})
	assert.Equal(t, time.Hour, r.Window())
	assert.Equal(t, 30*24*time.Hour, r.lookback)
}
