// Package engine evaluates events against the configured analyzers of their
// domain and classifies the aggregated score.
//
// The engine performs no I/O. History is resolved by the caller and passed in
// as a HistoricalContext; results are returned, never stored.
package engine

import (
	"fmt"
	"strings"

	"github.com/opensource-finance/fraudforge/internal/analyzer"
	"github.com/opensource-finance/fraudforge/internal/config"
	"github.com/opensource-finance/fraudforge/internal/decision"
	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/rules"
)

// Version identifies the scoring logic in stored evaluations.
const Version = "fraudforge-1.0"

type pipeline struct {
	names     []string
	analyzers []analyzer.Analyzer
	policy    decision.Policy
}

// Engine holds one analyzer pipeline per domain. It is safe for concurrent use.
type Engine struct {
	pipelines map[domain.Domain]*pipeline
	rules     *rules.Engine
}

// Option configures an Engine.
type Option func(*Engine)

// WithRules appends the operator rule analyzer to every domain.
func WithRules(r *rules.Engine) Option {
	return func(e *Engine) {
		e.rules = r
	}
}

// New builds an engine from cfg. A nil cfg uses config.DefaultScoring.
func New(cfg *config.Scoring, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultScoring()
	}

	e := &Engine{pipelines: make(map[domain.Domain]*pipeline)}
	for _, opt := range opts {
		opt(e)
	}

	for _, d := range domain.Domains() {
		dc, ok := cfg.For(d)
		if !ok {
			return nil, fmt.Errorf("domain %s: not configured", d)
		}
		if err := dc.Validate(); err != nil {
			return nil, fmt.Errorf("domain %s: %w", d, err)
		}

		analyzers, err := analyzer.Build(dc.Analyzers, dc.Weights, e.rules)
		if err != nil {
			return nil, fmt.Errorf("domain %s: %w", d, err)
		}

		names := make([]string, len(analyzers))
		for i, a := range analyzers {
			names[i] = a.Dimension()
		}

		e.pipelines[d] = &pipeline{
			names:     names,
			analyzers: analyzers,
			policy: decision.Policy{
				Thresholds: append(decision.ThresholdTable(nil), dc.Thresholds...),
				Confidence: dc.Confidence,
			},
		}
	}
	return e, nil
}

// Evaluate scores ev. hc may be nil when no history is available.
// Invalid events return a *domain.Error of kind invalid_input and no result.
func (e *Engine) Evaluate(ev domain.Event, hc *domain.HistoricalContext) (*domain.AnalysisResult, error) {
	if err := Validate(ev); err != nil {
		return nil, err
	}

	p, ok := e.pipelines[ev.Domain()]
	if !ok {
		return nil, domain.InvalidInput("domain", "no analyzers configured for %q", ev.Domain())
	}

	contributions := make([]domain.RiskContribution, 0, len(p.analyzers))
	for _, a := range p.analyzers {
		contributions = append(contributions, a.Analyze(ev, hc))
	}

	res := decision.Decide(ev.Domain(), contributions, p.policy)
	return &res, nil
}

// Domains lists the domains the engine can score.
func (e *Engine) Domains() []domain.Domain {
	out := make([]domain.Domain, 0, len(e.pipelines))
	for _, d := range domain.Domains() {
		if _, ok := e.pipelines[d]; ok {
			out = append(out, d)
		}
	}
	return out
}

// Table returns a copy of the threshold table of d.
func (e *Engine) Table(d domain.Domain) (decision.ThresholdTable, bool) {
	p, ok := e.pipelines[d]
	if !ok {
		return nil, false
	}
	return append(decision.ThresholdTable(nil), p.policy.Thresholds...), true
}

// Policy returns a copy of the classification policy of d.
func (e *Engine) Policy(d domain.Domain) (decision.Policy, bool) {
	p, ok := e.pipelines[d]
	if !ok {
		return decision.Policy{}, false
	}
	return decision.Policy{
		Thresholds: append(decision.ThresholdTable(nil), p.policy.Thresholds...),
		Confidence: p.policy.Confidence,
	}, true
}

// Analyzers returns the analyzer names run for d, in order.
func (e *Engine) Analyzers(d domain.Domain) []string {
	p, ok := e.pipelines[d]
	if !ok {
		return nil
	}
	return append([]string(nil), p.names...)
}

// Validate checks the required fields of ev.
func Validate(ev domain.Event) error {
	switch e := ev.(type) {
	case nil:
		return domain.InvalidInput("event", "no event supplied")
	case *domain.CardTransaction:
		if e == nil {
			return domain.InvalidInput("event", "no event supplied")
		}
		if blank(e.CardNumber) {
			return domain.InvalidInput("cardNumber", "card number is required")
		}
		if !e.Amount.IsPositive() {
			return domain.InvalidInput("amount", "amount must be positive")
		}
		if e.Coordinates != nil && !e.Coordinates.Valid() {
			return domain.InvalidInput("coordinates", "coordinates out of range")
		}
		if e.Timestamp.IsZero() {
			return domain.InvalidInput("timestamp", "timestamp is required")
		}
	case *domain.OtpMessage:
		if e == nil {
			return domain.InvalidInput("event", "no event supplied")
		}
		if blank(e.Sender) {
			return domain.InvalidInput("sender", "sender is required")
		}
		if blank(e.Recipient) {
			return domain.InvalidInput("recipient", "recipient is required")
		}
		if blank(e.Content) {
			return domain.InvalidInput("content", "content is required")
		}
		if e.ReceivedAt.IsZero() {
			return domain.InvalidInput("receivedAt", "received time is required")
		}
	case *domain.UrlSubmission:
		if e == nil {
			return domain.InvalidInput("event", "no event supplied")
		}
		if blank(e.URL) {
			return domain.InvalidInput("url", "url is required")
		}
	case *domain.PhishingSubmission:
		if e == nil {
			return domain.InvalidInput("event", "no event supplied")
		}
		if blank(e.SenderAddress) {
			return domain.InvalidInput("senderAddress", "sender address is required")
		}
		if blank(e.Subject) && blank(e.Body) {
			return domain.InvalidInput("body", "subject or body is required")
		}
	case *domain.GenericTransaction:
		if e == nil {
			return domain.InvalidInput("event", "no event supplied")
		}
		if blank(e.AccountID) {
			return domain.InvalidInput("accountId", "account id is required")
		}
		if !e.Amount.IsPositive() {
			return domain.InvalidInput("amount", "amount must be positive")
		}
		if e.Coordinates != nil && !e.Coordinates.Valid() {
			return domain.InvalidInput("coordinates", "coordinates out of range")
		}
		if e.Timestamp.IsZero() {
			return domain.InvalidInput("timestamp", "timestamp is required")
		}
	case *domain.GeoTransaction:
		if e == nil {
			return domain.InvalidInput("event", "no event supplied")
		}
		if blank(e.AccountID) {
			return domain.InvalidInput("accountId", "account id is required")
		}
		if !e.Amount.IsPositive() {
			return domain.InvalidInput("amount", "amount must be positive")
		}
		if !e.Point.Valid() {
			return domain.InvalidInput("point", "point out of range")
		}
		if e.Timestamp.IsZero() {
			return domain.InvalidInput("timestamp", "timestamp is required")
		}
	default:
		return domain.InvalidInput("event", "unsupported event type %T", ev)
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
