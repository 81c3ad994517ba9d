// Package service runs the evaluation pipeline around the engine: history
// resolution, persistence, caching, publication and auto-block.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-finance/fraudforge/internal/bus"
	"github.com/opensource-finance/fraudforge/internal/decision"
	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/engine"
	"github.com/opensource-finance/fraudforge/internal/history"
	"github.com/opensource-finance/fraudforge/internal/logging"
	"github.com/opensource-finance/fraudforge/internal/metrics"
	"github.com/opensource-finance/fraudforge/internal/rules"
	"github.com/opensource-finance/fraudforge/internal/tracing"
)

// GlobalTenantID is used for rules that apply to all tenants.
const GlobalTenantID = "*"

var (
	// ErrRulesDisabled is returned by rule operations when no rule engine is configured.
	ErrRulesDisabled = errors.New("rule engine not configured")
	// ErrBusUnavailable is returned by Submit when no event bus is configured.
	ErrBusUnavailable = errors.New("event bus not configured")
	// ErrCacheUnavailable is returned by RecordFailedAttempt without a cache.
	ErrCacheUnavailable = errors.New("cache not configured")
)

// Service coordinates one evaluation from raw event to stored decision.
// It is safe for concurrent use.
type Service struct {
	engine  *engine.Engine
	rules   *rules.Engine
	history *history.Resolver
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus

	autoBlock           bool
	recentLimit         int
	evaluationTTL       time.Duration
	failedAttemptWindow time.Duration

	now   func() time.Time
	newID func() string
}

// New creates a service. ruleEngine, cache and eventBus may be nil.
func New(eng *engine.Engine, ruleEngine *rules.Engine, repo domain.Repository, cache domain.Cache, eventBus domain.EventBus, cfg *domain.Config) *Service {
	if cfg == nil {
		cfg = domain.DefaultConfig()
	}

	recentLimit := cfg.History.RecentLimit
	if recentLimit <= 0 {
		recentLimit = 50
	}
	failedWindow := cfg.History.FailedAttemptWindow
	if failedWindow <= 0 {
		failedWindow = 24 * time.Hour
	}

	return &Service{
		engine:              eng,
		rules:               ruleEngine,
		history:             history.NewResolver(repo, cache, cfg.History),
		repo:                repo,
		cache:               cache,
		bus:                 eventBus,
		autoBlock:           cfg.Blocklist.AutoBlock,
		recentLimit:         recentLimit,
		evaluationTTL:       cfg.History.EvaluationTTL,
		failedAttemptWindow: failedWindow,
		now:                 time.Now,
		newID:               func() string { return uuid.New().String() },
	}
}

// Process evaluates ev for tenantID and records the outcome.
// Invalid events return a *domain.Error of kind invalid_input.
func (s *Service) Process(ctx context.Context, tenantID string, ev domain.Event) (*domain.Evaluation, error) {
	start := time.Now()

	if tenantID == "" {
		return nil, domain.InvalidInput("tenantId", "tenant is required")
	}
	if ev == nil {
		return nil, domain.InvalidInput("event", "event is required")
	}

	ev = domain.WithDefaults(ev, s.newID(), s.now().UTC())

	ctx, span := tracing.StartSpan(ctx, "service.process",
		tracing.TenantID(tenantID),
		tracing.Domain(ev.Domain()),
		tracing.EventID(ev.EventID()),
	)
	defer span.End()

	logger := logging.L(ctx).With("tenant_id", tenantID, "domain", ev.Domain(), "event_id", ev.EventID())

	if err := engine.Validate(ev); err != nil {
		metrics.InvalidEventsTotal.WithLabelValues(string(ev.Domain())).Inc()
		return nil, err
	}

	historyStart := time.Now()
	hc, err := s.history.Resolve(ctx, tenantID, ev)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	historyMs := time.Since(historyStart).Milliseconds()

	engineStart := time.Now()
	res, err := s.engine.Evaluate(ev, hc)
	if err != nil {
		metrics.InvalidEventsTotal.WithLabelValues(string(ev.Domain())).Inc()
		return nil, err
	}
	engineMs := time.Since(engineStart).Milliseconds()

	eval := &domain.Evaluation{
		ID:        s.newID(),
		TenantID:  tenantID,
		EventID:   ev.EventID(),
		Domain:    ev.Domain(),
		ActorID:   ev.Actor(),
		Result:    *res,
		CreatedAt: s.now().UTC(),
		Metadata: domain.EvaluationMetadata{
			TraceID:       tracing.TraceID(ctx),
			HistoryMs:     historyMs,
			EngineMs:      engineMs,
			AnalyzersRun:  len(res.Contributions),
			EngineVersion: engine.Version,
		},
	}
	span.SetAttributes(
		tracing.EvaluationID(eval.ID),
		tracing.Score(res.TotalScore),
		tracing.Status(res.Status),
	)

	rec, err := domain.NewEventRecord(tenantID, ev)
	if err != nil {
		return nil, fmt.Errorf("failed to encode event: %w", err)
	}
	if err := s.repo.SaveEvent(ctx, tenantID, rec); err != nil {
		logger.Error("failed to save event", "error", err)
	}

	if res.Status == domain.StatusBlocked && s.autoBlock {
		eval.Metadata.AutoBlocked = s.blockCounterparty(ctx, tenantID, ev, eval)
	}

	eval.Metadata.TotalMs = time.Since(start).Milliseconds()

	if err := s.repo.SaveEvaluation(ctx, tenantID, eval); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to save evaluation: %w", err)
	}

	s.remember(ctx, tenantID, eval)
	s.publish(ctx, tenantID, eval)

	metrics.ObserveEvaluation(res, time.Since(start))

	logger.Debug("evaluation completed",
		"evaluation_id", eval.ID,
		"score", res.TotalScore,
		"status", res.Status,
		"total_ms", eval.Metadata.TotalMs,
	)
	if decision.ShouldAlert(res) {
		logger.Info("risky event",
			"evaluation_id", eval.ID,
			"actor_id", eval.ActorID,
			"score", res.TotalScore,
			"status", res.Status,
			"reasons", res.Reasons,
		)
	}

	return eval, nil
}

// blockCounterparty adds the counterparty of ev to the blocklist and returns
// the identifier written, or "" when nothing was blocked.
func (s *Service) blockCounterparty(ctx context.Context, tenantID string, ev domain.Event, eval *domain.Evaluation) string {
	id := domain.NormalizeIdentifier(domain.Counterparty(ev))
	if id == "" {
		return ""
	}

	entry := &domain.BlocklistEntry{
		Identifier:         id,
		Kind:               domain.BlockKindFor(ev.Domain()),
		Reason:             fmt.Sprintf("auto-blocked: %s score %.0f", ev.Domain(), eval.Result.TotalScore),
		SourceEvaluationID: eval.ID,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.repo.AddBlocklistEntry(ctx, tenantID, entry); err != nil {
		logging.L(ctx).Error("auto-block failed", "identifier", id, "error", err)
		return ""
	}

	metrics.BlocklistWritesTotal.WithLabelValues("auto").Inc()
	logging.L(ctx).Info("counterparty auto-blocked",
		"tenant_id", tenantID,
		"identifier", id,
		"evaluation_id", eval.ID,
	)
	return id
}

// remember caches eval for read-through lookups and the recent list.
func (s *Service) remember(ctx context.Context, tenantID string, eval *domain.Evaluation) {
	if s.cache == nil {
		return
	}

	if s.evaluationTTL > 0 {
		if err := s.cache.SetEvaluation(ctx, tenantID, eval, s.evaluationTTL); err != nil {
			logging.L(ctx).Warn("failed to cache evaluation", "evaluation_id", eval.ID, "error", err)
		}
	}

	data, err := json.Marshal(eval)
	if err != nil {
		return
	}
	if err := s.cache.PushRecent(ctx, tenantID, domain.RecentEvaluationsKey, data, s.recentLimit); err != nil {
		logging.L(ctx).Warn("failed to push recent evaluation", "evaluation_id", eval.ID, "error", err)
	}
}

func (s *Service) publish(ctx context.Context, tenantID string, eval *domain.Evaluation) {
	if s.bus == nil {
		return
	}

	d := decisionOf(eval)
	if err := bus.PublishJSON(ctx, s.bus, tenantID, domain.TopicDecision, d); err != nil {
		logging.L(ctx).Warn("failed to publish decision", "evaluation_id", eval.ID, "error", err)
	}
	if eval.Result.Status == domain.StatusBlocked {
		if err := bus.PublishJSON(ctx, s.bus, tenantID, domain.TopicAlertBlocked, d); err != nil {
			logging.L(ctx).Warn("failed to publish alert", "evaluation_id", eval.ID, "error", err)
		}
	}
}

func decisionOf(eval *domain.Evaluation) domain.Decision {
	reasons := eval.Result.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return domain.Decision{
		EvaluationID:   eval.ID,
		EventID:        eval.EventID,
		Domain:         eval.Domain,
		ActorID:        eval.ActorID,
		TotalScore:     eval.Result.TotalScore,
		Status:         eval.Result.Status,
		Recommendation: eval.Result.Recommendation,
		Reasons:        reasons,
	}
}

// Submit stamps and validates ev, then queues it for asynchronous processing.
// It returns the event ID the worker will evaluate.
func (s *Service) Submit(ctx context.Context, tenantID string, ev domain.Event) (string, error) {
	if s.bus == nil {
		return "", ErrBusUnavailable
	}
	if tenantID == "" {
		return "", domain.InvalidInput("tenantId", "tenant is required")
	}
	if ev == nil {
		return "", domain.InvalidInput("event", "event is required")
	}

	ev = domain.WithDefaults(ev, s.newID(), s.now().UTC())
	if err := engine.Validate(ev); err != nil {
		metrics.InvalidEventsTotal.WithLabelValues(string(ev.Domain())).Inc()
		return "", err
	}

	raw, err := json.Marshal(ev)
	if err != nil {
		return "", fmt.Errorf("failed to encode event: %w", err)
	}

	sub := domain.Submission{TenantID: tenantID, Domain: ev.Domain(), Event: raw}
	if err := bus.PublishJSON(ctx, s.bus, tenantID, domain.TopicEventSubmitted, sub); err != nil {
		return "", err
	}
	return ev.EventID(), nil
}

// GetEvaluation returns a stored evaluation, reading through the cache.
func (s *Service) GetEvaluation(ctx context.Context, tenantID, evalID string) (*domain.Evaluation, error) {
	if s.cache != nil {
		eval, err := s.cache.GetEvaluation(ctx, tenantID, evalID)
		if err != nil {
			logging.L(ctx).Warn("evaluation cache read failed", "evaluation_id", evalID, "error", err)
		} else if eval != nil {
			return eval, nil
		}
	}

	eval, err := s.repo.GetEvaluation(ctx, tenantID, evalID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil && s.evaluationTTL > 0 {
		_ = s.cache.SetEvaluation(ctx, tenantID, eval, s.evaluationTTL)
	}
	return eval, nil
}

// RecentEvaluations returns the newest evaluations of a tenant, newest first.
// The cached recent list is used when present; the repository otherwise.
func (s *Service) RecentEvaluations(ctx context.Context, tenantID string, limit int) ([]*domain.Evaluation, error) {
	if limit <= 0 || limit > s.recentLimit {
		limit = s.recentLimit
	}

	if s.cache != nil {
		entries, err := s.cache.ListRecent(ctx, tenantID, domain.RecentEvaluationsKey, limit)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			evals := make([]*domain.Evaluation, 0, len(entries))
			for _, data := range entries {
				var eval domain.Evaluation
				if err := json.Unmarshal(data, &eval); err != nil {
					logging.L(ctx).Warn("skipping corrupt recent evaluation", "error", err)
					continue
				}
				evals = append(evals, &eval)
			}
			return evals, nil
		}
	}

	return s.repo.ListEvaluations(ctx, tenantID, limit)
}

// RecordFailedAttempt counts a failed authentication by actor and returns
// the number of failures inside the configured window.
func (s *Service) RecordFailedAttempt(ctx context.Context, tenantID, actor string) (int64, error) {
	if s.cache == nil {
		return 0, ErrCacheUnavailable
	}
	if tenantID == "" {
		return 0, domain.InvalidInput("tenantId", "tenant is required")
	}
	if actor == "" {
		return 0, domain.InvalidInput("actorId", "actor is required")
	}
	return s.cache.IncrementCounter(ctx, tenantID, domain.FailedAttemptsPrefix+actor, s.failedAttemptWindow)
}

// Policy returns the classification policy of d.
func (s *Service) Policy(d domain.Domain) (decision.Policy, bool) {
	return s.engine.Policy(d)
}

// Analyzers returns the analyzer names run for d.
func (s *Service) Analyzers(d domain.Domain) []string {
	return s.engine.Analyzers(d)
}

// Ping checks every configured collaborator.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.repo.Ping(ctx); err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	if s.cache != nil {
		if err := s.cache.Ping(ctx); err != nil {
			return fmt.Errorf("cache: %w", err)
		}
	}
	if s.bus != nil {
		if err := s.bus.Ping(ctx); err != nil {
			return fmt.Errorf("event bus: %w", err)
		}
	}
	return nil
}
