// Package worker evaluates asynchronously submitted events from the EventBus.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/opensource-finance/fraudforge/internal/bus"
	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/logging"
	"github.com/opensource-finance/fraudforge/internal/metrics"
)

// Processor evaluates one event for a tenant.
type Processor interface {
	Process(ctx context.Context, tenantID string, ev domain.Event) (*domain.Evaluation, error)
}

// Worker consumes submitted events from the EventBus.
type Worker struct {
	bus       domain.EventBus
	processor Processor

	mu            sync.Mutex
	subscriptions []domain.Subscription
	ctx           context.Context
	cancel        context.CancelFunc

	processed atomic.Int64
	failed    atomic.Int64
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to consume submissions for.
	TenantIDs []string
}

// NewWorker creates a new async worker.
func NewWorker(eventBus domain.EventBus, processor Processor) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:       eventBus,
		processor: processor,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start subscribes to submissions of every configured tenant.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return errors.New("worker: at least one tenant is required")
	}

	started := 0
	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
		started++
	}
	if started == 0 {
		return fmt.Errorf("worker: no tenant subscriptions started")
	}

	slog.Info("workers started",
		"tenant_count", started,
	)

	return nil
}

// startTenantWorker subscribes to submissions of one tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicEventSubmitted, w.handleMessage)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.subscriptions = append(w.subscriptions, sub)
	w.mu.Unlock()

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicEventSubmitted,
	)

	return nil
}

// handleMessage decodes and evaluates one submission. A message sent with
// Request is answered with the resulting decision.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	start := time.Now()
	logger := logging.L(ctx).With("message_id", msg.ID, "tenant_id", msg.TenantID)

	eval, err := w.process(ctx, msg)
	if err != nil {
		w.failed.Add(1)
		metrics.WorkerMessagesTotal.WithLabelValues("failed").Inc()
		logger.Error("submission failed", "error", err)
		return err
	}

	w.processed.Add(1)
	metrics.WorkerMessagesTotal.WithLabelValues("processed").Inc()

	if msg.ReplyTo != "" {
		payload, err := json.Marshal(domain.Decision{
			EvaluationID:   eval.ID,
			EventID:        eval.EventID,
			Domain:         eval.Domain,
			ActorID:        eval.ActorID,
			TotalScore:     eval.Result.TotalScore,
			Status:         eval.Result.Status,
			Recommendation: eval.Result.Recommendation,
			Reasons:        eval.Result.Reasons,
		})
		if err == nil {
			err = w.bus.Reply(ctx, msg, payload)
		}
		if err != nil {
			logger.Warn("failed to reply", "error", err)
		}
	}

	logger.Info("submission processed",
		"event_id", eval.EventID,
		"domain", eval.Domain,
		"status", eval.Result.Status,
		"score", eval.Result.TotalScore,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

func (w *Worker) process(ctx context.Context, msg *domain.Message) (*domain.Evaluation, error) {
	var sub domain.Submission
	if err := bus.DecodeJSON(msg, &sub); err != nil {
		return nil, fmt.Errorf("decode submission: %w", err)
	}

	// The subscription tenant wins over the payload.
	tenantID := msg.TenantID
	if tenantID == "" {
		tenantID = sub.TenantID
	}

	ev, err := domain.DecodeEvent(sub.Domain, sub.Event)
	if err != nil {
		return nil, err
	}

	return w.processor.Process(ctx, tenantID, ev)
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	w.mu.Lock()
	subs := w.subscriptions
	w.subscriptions = nil
	w.mu.Unlock()

	for _, sub := range subs {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}

	slog.Info("workers stopped",
		"processed", w.processed.Load(),
		"failed", w.failed.Load(),
	)
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
	Processed         int64    `json:"processed"`
	Failed            int64    `json:"failed"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
		Processed:         w.processed.Load(),
		Failed:            w.failed.Load(),
	}
}
