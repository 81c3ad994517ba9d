package worker

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/bus"
	"github.com/opensource-finance/fraudforge/internal/domain"
)

// stubProcessor scores every event 10 and records what it saw.
type stubProcessor struct {
	mu      sync.Mutex
	tenants []string
	events  []domain.Event
	err     error
}

func (p *stubProcessor) Process(ctx context.Context, tenantID string, ev domain.Event) (*domain.Evaluation, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	p.tenants = append(p.tenants, tenantID)
	p.events = append(p.events, ev)
	return &domain.Evaluation{
		ID:       "eval-" + ev.EventID(),
		TenantID: tenantID,
		EventID:  ev.EventID(),
		Domain:   ev.Domain(),
		ActorID:  ev.Actor(),
		Result: domain.AnalysisResult{
			Domain:         ev.Domain(),
			TotalScore:     10,
			Status:         domain.StatusApproved,
			Recommendation: domain.RecommendApprove,
			Reasons:        []string{"stub"},
		},
	}, nil
}

func (p *stubProcessor) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}

func submission(t *testing.T, tenantID string, ev domain.Event) []byte {
	t.Helper()
	raw, err := json.Marshal(ev)
	require.NoError(t, err)
	payload, err := json.Marshal(domain.Submission{TenantID: tenantID, Domain: ev.Domain(), Event: raw})
	require.NoError(t, err)
	return payload
}

func TestWorker(t *testing.T) {
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	t.Run("StartAndStop", func(t *testing.T) {
		w := NewWorker(eventBus, &stubProcessor{})

		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-001"}}))

		stats := w.GetStats()
		assert.Equal(t, 1, stats.SubscriptionCount)
		assert.Equal(t, []string{domain.TopicEventSubmitted}, stats.Topics)

		require.NoError(t, w.Stop())
		assert.Zero(t, w.GetStats().SubscriptionCount)
	})

	t.Run("RequiresTenant", func(t *testing.T) {
		w := NewWorker(eventBus, &stubProcessor{})
		assert.Error(t, w.Start(Config{}))
	})

	t.Run("ProcessSubmission", func(t *testing.T) {
		p := &stubProcessor{}
		w := NewWorker(eventBus, p)
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-test"}}))
		defer w.Stop()

		ev := &domain.GenericTransaction{ID: "tx-001", AccountID: "acct-1", Counterparty: "Amazon"}
		require.NoError(t, eventBus.Publish(context.Background(), "tenant-test", domain.TopicEventSubmitted, submission(t, "tenant-test", ev)))

		require.Eventually(t, func() bool { return p.count() == 1 }, time.Second, 10*time.Millisecond)

		p.mu.Lock()
		got := p.events[0]
		tenant := p.tenants[0]
		p.mu.Unlock()

		assert.Equal(t, "tenant-test", tenant)
		tx, ok := got.(*domain.GenericTransaction)
		require.True(t, ok)
		assert.Equal(t, "tx-001", tx.ID)
		assert.Equal(t, "Amazon", tx.Counterparty)

		require.Eventually(t, func() bool { return w.GetStats().Processed == 1 }, time.Second, 10*time.Millisecond)
	})

	t.Run("RequestReply", func(t *testing.T) {
		w := NewWorker(eventBus, &stubProcessor{})
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-sync"}}))
		defer w.Stop()

		ev := &domain.UrlSubmission{ID: "url-1", URL: "https://example.com"}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		reply, err := eventBus.Request(ctx, "tenant-sync", domain.TopicEventSubmitted, submission(t, "tenant-sync", ev))
		require.NoError(t, err)

		var d domain.Decision
		require.NoError(t, json.Unmarshal(reply, &d))
		assert.Equal(t, "eval-url-1", d.EvaluationID)
		assert.Equal(t, domain.DomainURL, d.Domain)
		assert.Equal(t, []string{"stub"}, d.Reasons)
	})

	t.Run("Failures", func(t *testing.T) {
		p := &stubProcessor{}
		w := NewWorker(eventBus, p)
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-bad"}}))
		defer w.Stop()

		ctx := context.Background()
		require.NoError(t, eventBus.Publish(ctx, "tenant-bad", domain.TopicEventSubmitted, []byte("not json")))
		require.NoError(t, eventBus.Publish(ctx, "tenant-bad", domain.TopicEventSubmitted,
			[]byte(`{"tenantId":"tenant-bad","domain":"fax","event":{}}`)))

		p.mu.Lock()
		p.err = errors.New("boom")
		p.mu.Unlock()
		require.NoError(t, eventBus.Publish(ctx, "tenant-bad", domain.TopicEventSubmitted,
			submission(t, "tenant-bad", &domain.UrlSubmission{URL: "https://example.com"})))

		require.Eventually(t, func() bool { return w.GetStats().Failed == 3 }, time.Second, 10*time.Millisecond)
		assert.Zero(t, w.GetStats().Processed)
	})

	t.Run("MultiTenant", func(t *testing.T) {
		p := &stubProcessor{}
		w := NewWorker(eventBus, p)
		require.NoError(t, w.Start(Config{TenantIDs: []string{"tenant-a", "tenant-b"}}))
		defer w.Stop()

		assert.Equal(t, 2, w.GetStats().SubscriptionCount)

		ev := &domain.OtpMessage{ID: "otp-1", Sender: "HDFCBK", Recipient: "+91", Content: "OTP 123456"}
		require.NoError(t, eventBus.Publish(context.Background(), "tenant-c", domain.TopicEventSubmitted, submission(t, "tenant-c", ev)))
		require.NoError(t, eventBus.Publish(context.Background(), "tenant-b", domain.TopicEventSubmitted, submission(t, "tenant-b", ev)))

		require.Eventually(t, func() bool { return p.count() == 1 }, time.Second, 10*time.Millisecond)
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, 1, p.count())
	})
}
