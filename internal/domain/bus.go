package domain

import (
	"context"
	"encoding/json"
)

// EventBus defines the interface for event-driven communication.
// Supports Go channels (Community) or NATS (Pro).
// All methods require tenantID for strict multi-tenancy isolation.
type EventBus interface {
	// Publish sends a message to a topic.
	Publish(ctx context.Context, tenantID string, topic string, payload []byte) error

	// Subscribe registers a handler for a topic.
	// Returns a subscription that can be used to unsubscribe.
	Subscribe(ctx context.Context, tenantID string, topic string, handler MessageHandler) (Subscription, error)

	// Request sends a message and waits for a response (request-reply pattern).
	Request(ctx context.Context, tenantID string, topic string, payload []byte) ([]byte, error)

	// Reply answers a message that was sent with Request.
	Reply(ctx context.Context, msg *Message, payload []byte) error

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// MessageHandler processes incoming messages.
type MessageHandler func(ctx context.Context, msg *Message) error

// Message represents an event message.
type Message struct {
	ID        string            `json:"id"`
	TenantID  string            `json:"tenantId"`
	Topic     string            `json:"topic"`
	Payload   []byte            `json:"payload"`
	Metadata  map[string]string `json:"metadata"`
	Timestamp int64             `json:"timestamp"`

	// ReplyTo is set when the sender is waiting for a Reply.
	ReplyTo string `json:"replyTo,omitempty"`
}

// Subscription represents an active subscription.
type Subscription interface {
	// Unsubscribe stops receiving messages.
	Unsubscribe() error

	// Topic returns the subscribed topic.
	Topic() string
}

// EventBusConfig holds configuration for event bus initialization.
type EventBusConfig struct {
	// Type is the bus type: "channel" or "nats"
	Type string `mapstructure:"type"`

	// Channel settings (Community tier)
	ChannelBufferSize int `mapstructure:"channel_buffer_size"`

	// NATS settings (Pro tier)
	NATSUrl           string `mapstructure:"nats_url"`
	NATSToken         string `mapstructure:"nats_token"`
	NATSMaxReconnects int    `mapstructure:"nats_max_reconnects"`
	NATSReconnectWait int    `mapstructure:"nats_reconnect_wait"` // seconds
}

// Standard topic names for the evaluation pipeline.
const (
	TopicEventSubmitted = "fraudforge.event.submitted"
	TopicDecision       = "fraudforge.decision"
	TopicAlertBlocked   = "fraudforge.alert.blocked"
)

// Submission is the payload published on TopicEventSubmitted.
type Submission struct {
	TenantID string          `json:"tenantId"`
	Domain   Domain          `json:"domain"`
	Event    json.RawMessage `json:"event"`
}

// Decision is the payload published on TopicDecision and TopicAlertBlocked.
type Decision struct {
	EvaluationID   string         `json:"evaluationId"`
	EventID        string         `json:"eventId"`
	Domain         Domain         `json:"domain"`
	ActorID        string         `json:"actorId"`
	TotalScore     float64        `json:"totalScore"`
	Status         Status         `json:"status"`
	Recommendation Recommendation `json:"recommendation"`
	Reasons        []string       `json:"reasons"`
}
