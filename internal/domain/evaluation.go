package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/checksum"
	"github.com/opensource-finance/fraudforge/internal/geo"
)

// Evaluation is a stored analysis of one event.
type Evaluation struct {
	ID        string         `json:"id"`
	TenantID  string         `json:"tenantId"`
	EventID   string         `json:"eventId"`
	Domain    Domain         `json:"domain"`
	ActorID   string         `json:"actorId"`
	Result    AnalysisResult `json:"result"`
	CreatedAt time.Time      `json:"createdAt"`

	// Processing metadata
	Metadata EvaluationMetadata `json:"metadata"`
}

// EvaluationMetadata contains processing information.
type EvaluationMetadata struct {
	TraceID       string `json:"traceId"`
	HistoryMs     int64  `json:"historyMs"`
	EngineMs      int64  `json:"engineMs"`
	TotalMs       int64  `json:"totalMs"`
	AnalyzersRun  int    `json:"analyzersRun"`
	AutoBlocked   string `json:"autoBlocked,omitempty"`
	EngineVersion string `json:"engineVersion"`
}

// EvaluationResponse is the API response for an evaluation.
type EvaluationResponse struct {
	EvaluationID   string             `json:"evaluationId"`
	EventID        string             `json:"eventId"`
	TenantID       string             `json:"tenantId"`
	Domain         Domain             `json:"domain"`
	TotalScore     float64            `json:"totalScore"`
	Status         Status             `json:"status"`
	Label          string             `json:"label"`
	Recommendation Recommendation     `json:"recommendation"`
	Confidence     float64            `json:"confidence"`
	Reasons        []string           `json:"reasons"`
	Contributions  []RiskContribution `json:"contributions"`
	Metadata       EvaluationMetadata `json:"metadata"`
}

// ToResponse converts an Evaluation to an API response.
func (e *Evaluation) ToResponse() *EvaluationResponse {
	reasons := e.Result.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return &EvaluationResponse{
		EvaluationID:   e.ID,
		EventID:        e.EventID,
		TenantID:       e.TenantID,
		Domain:         e.Domain,
		TotalScore:     e.Result.TotalScore,
		Status:         e.Result.Status,
		Label:          e.Result.Label,
		Recommendation: e.Result.Recommendation,
		Confidence:     e.Result.Confidence,
		Reasons:        reasons,
		Contributions:  e.Result.Contributions,
		Metadata:       e.Metadata,
	}
}

// EventRecord is the flattened, storable form of an event.
// The indexed columns feed history resolution; Payload keeps the full event.
type EventRecord struct {
	ID           string          `json:"id"`
	TenantID     string          `json:"tenantId"`
	Domain       Domain          `json:"domain"`
	ActorID      string          `json:"actorId"`
	Counterparty string          `json:"counterparty"`
	Location     string          `json:"location"`
	DeviceID     string          `json:"deviceId"`
	Amount       decimal.Decimal `json:"amount"`
	Point        *geo.Point      `json:"point,omitempty"`
	OccurredAt   time.Time       `json:"occurredAt"`
	Payload      json.RawMessage `json:"payload"`
	CreatedAt    time.Time       `json:"createdAt"`
}

// NewEventRecord flattens ev for storage. Card numbers are masked in the payload.
func NewEventRecord(tenantID string, ev Event) (*EventRecord, error) {
	stored := ev
	if card, ok := ev.(*CardTransaction); ok {
		c := *card
		c.CardNumber = checksum.Mask(c.CardNumber)
		stored = &c
	}
	payload, err := json.Marshal(stored)
	if err != nil {
		return nil, err
	}

	rec := &EventRecord{
		ID:           ev.EventID(),
		TenantID:     tenantID,
		Domain:       ev.Domain(),
		ActorID:      ev.Actor(),
		Counterparty: Counterparty(ev),
		OccurredAt:   ev.OccurredAt().UTC(),
		Payload:      payload,
		CreatedAt:    time.Now().UTC(),
	}
	if amt, ok := AmountOf(ev); ok {
		rec.Amount = amt
	}
	if loc, ok := LocationOf(ev); ok {
		rec.Location = loc
	}
	if dev, ok := DeviceOf(ev); ok {
		rec.DeviceID = dev
	}
	if p, ok := PointOf(ev); ok {
		rec.Point = &p
	}
	return rec, nil
}
