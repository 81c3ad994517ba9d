// Package history resolves the HistoricalContext of an event from stored
// events, the blocklist and cache counters.
package history

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/tracing"
)

// Resolver builds HistoricalContext values for the evaluation engine.
type Resolver struct {
	repo     domain.Repository
	cache    domain.Cache
	window   time.Duration
	lookback time.Duration
	now      func() time.Time
}

// NewResolver creates a resolver. cache may be nil, in which case failed
// attempts are never reported.
func NewResolver(repo domain.Repository, cache domain.Cache, cfg domain.HistoryConfig) *Resolver {
	window := cfg.Window
	if window <= 0 {
		window = time.Hour
	}
	lookback := cfg.Lookback
	if lookback < window {
		lookback = 30 * 24 * time.Hour
	}
	return &Resolver{
		repo:     repo,
		cache:    cache,
		window:   window,
		lookback: lookback,
		now:      time.Now,
	}
}

// Window returns the trailing velocity window.
func (r *Resolver) Window() time.Duration { return r.window }

// Resolve gathers the history of ev's actor up to the moment ev occurred.
// The event itself is never counted, so resubmitting it yields the same context.
func (r *Resolver) Resolve(ctx context.Context, tenantID string, ev domain.Event) (*domain.HistoricalContext, error) {
	ctx, span := tracing.StartSpan(ctx, "history.resolve",
		tracing.TenantID(tenantID),
		tracing.Domain(ev.Domain()),
		tracing.EventID(ev.EventID()),
	)
	defer span.End()

	hc := &domain.HistoricalContext{
		Window:    r.window,
		RecentSum: decimal.Zero,
	}

	at := ev.OccurredAt()
	if at.IsZero() {
		at = r.now()
	}

	blocked, err := r.repo.MatchBlocklist(ctx, tenantID, domain.Identifiers(ev))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: match blocklist: %w", err)
	}
	hc.BlockedIdentifiers = blocked

	actor := ev.Actor()
	if actor == "" {
		return hc, nil
	}

	records, err := r.repo.ListEventsByActor(ctx, tenantID, actor, at.Add(-r.lookback))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("history: list events: %w", err)
	}
	r.fold(hc, ev, at, records)

	if r.cache != nil {
		n, err := r.cache.GetCounter(ctx, tenantID, domain.FailedAttemptsPrefix+actor)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("history: failed attempts: %w", err)
		}
		hc.FailedAttempts = int(n)
	}

	return hc, nil
}

// fold accumulates records, newest first, into hc.
func (r *Resolver) fold(hc *domain.HistoricalContext, ev domain.Event, at time.Time, records []*domain.EventRecord) {
	locations := newSet()
	devices := newSet()
	senders := newSet()
	windowStart := at.Add(-r.window)

	var oldest time.Time
	for _, rec := range records {
		if rec.ID == ev.EventID() || rec.OccurredAt.After(at) {
			continue
		}

		if rec.Domain == ev.Domain() && !rec.OccurredAt.Before(windowStart) {
			hc.RecentCount++
			hc.RecentSum = hc.RecentSum.Add(rec.Amount)
		}

		locations.add(rec.Location)
		devices.add(rec.DeviceID)
		if rec.Domain == domain.DomainOTP || rec.Domain == domain.DomainPhishing {
			senders.add(rec.Counterparty)
		}

		if hc.LastFix == nil && rec.Point != nil {
			hc.LastFix = &domain.LocatedFix{Location: strings.TrimSpace(rec.Location)}
			hc.LastFix.Point = *rec.Point
			hc.LastFix.At = rec.OccurredAt
		}

		if oldest.IsZero() || rec.OccurredAt.Before(oldest) {
			oldest = rec.OccurredAt
		}
	}

	hc.KnownLocations = locations.items
	hc.KnownDevices = devices.items
	hc.KnownSenders = senders.items
	if !oldest.IsZero() {
		hc.AccountAge = at.Sub(oldest)
	}
}

// set keeps first-seen order so resolved contexts are reproducible.
type set struct {
	seen  map[string]bool
	items []string
}

func newSet() *set {
	return &set{seen: make(map[string]bool)}
}

func (s *set) add(v string) {
	v = strings.TrimSpace(v)
	key := strings.ToLower(v)
	if v == "" || s.seen[key] {
		return
	}
	s.seen[key] = true
	s.items = append(s.items, v)
}
