package analyzer

import (
	"fmt"

	"github.com/opensource-finance/fraudforge/internal/domain"
	"github.com/opensource-finance/fraudforge/internal/rules"
)

type rulesAnalyzer struct {
	engine *rules.Engine
}

// NewRules adapts operator-defined CEL rules to the analyzer contract.
// Rules that fail at runtime contribute nothing.
func NewRules(engine *rules.Engine) Analyzer {
	return &rulesAnalyzer{engine: engine}
}

func (a *rulesAnalyzer) Dimension() string { return DimRules }

func (a *rulesAnalyzer) Analyze(ev domain.Event, hc *domain.HistoricalContext) domain.RiskContribution {
	c := newContribution(DimRules)

	for _, r := range a.engine.EvaluateAll(ev.Domain(), ruleInput(ev, hc)) {
		if r.Err != nil {
			continue
		}
		c.Add(r.Score, fmt.Sprintf("Rule %s: %s", r.RuleID, r.Reason))
	}
	return c
}

func ruleInput(ev domain.Event, hc *domain.HistoricalContext) *rules.Input {
	in := &rules.Input{
		Domain:       string(ev.Domain()),
		Actor:        ev.Actor(),
		Counterparty: domain.Counterparty(ev),
		Channel:      string(domain.ChannelOf(ev)),
		Hour:         -1,
		Weekday:      -1,
	}
	if at := ev.OccurredAt(); !at.IsZero() {
		in.Hour = int64(at.Hour())
		in.Weekday = int64(at.Weekday())
	}
	if amt, ok := domain.AmountOf(ev); ok {
		in.Amount = amt.InexactFloat64()
	}
	if loc, ok := domain.LocationOf(ev); ok {
		in.Location = loc
	}

	switch e := ev.(type) {
	case *domain.CardTransaction:
		in.Currency = e.Currency
	case *domain.GenericTransaction:
		in.Currency = e.Currency
	case *domain.GeoTransaction:
		in.Currency = e.Currency
	case *domain.OtpMessage:
		in.Content = e.Content
	case *domain.PhishingSubmission:
		in.Content = e.Text()
	case *domain.UrlSubmission:
		in.URL = e.URL
	}

	if hc != nil {
		in.RecentCount = int64(hc.RecentCount)
		in.RecentSum = hc.RecentSum.InexactFloat64()
		if dev, ok := domain.DeviceOf(ev); ok {
			in.KnownDevice = hc.KnowsDevice(dev)
		}
		in.KnownLocation = hc.KnowsLocation(in.Location)
	}
	return in
}
