package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/checksum"
	"github.com/opensource-finance/fraudforge/internal/geo"
)

// Domain tags the kind of event being scored.
type Domain string

const (
	DomainCard        Domain = "card"
	DomainOTP         Domain = "otp"
	DomainURL         Domain = "url"
	DomainPhishing    Domain = "phishing"
	DomainTransaction Domain = "transaction"
	DomainGeo         Domain = "geo"
)

// Domains lists every supported domain in a fixed order.
func Domains() []Domain {
	return []Domain{DomainCard, DomainOTP, DomainURL, DomainPhishing, DomainTransaction, DomainGeo}
}

// ParseDomain converts a tag into a Domain.
func ParseDomain(s string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Domains() {
		if d == known {
			return d, nil
		}
	}
	return "", InvalidInput("domain", "unknown domain %q", s)
}

// Channel is the payment channel a transaction went through.
type Channel string

const (
	ChannelOnline   Channel = "online"
	ChannelPOS      Channel = "pos"
	ChannelATM      Channel = "atm"
	ChannelTransfer Channel = "transfer"
	ChannelMobile   Channel = "mobile"
)

// Event is the subject being scored. The set of implementations is closed;
// analyzers switch over the concrete pointer types.
type Event interface {
	Domain() Domain
	EventID() string
	// Actor is the identity velocity and history are tracked against.
	Actor() string
	OccurredAt() time.Time

	isEvent()
}

// CardTransaction is a payment card authorization.
type CardTransaction struct {
	ID               string          `json:"id"`
	CardNumber       string          `json:"cardNumber"`
	CardholderID     string          `json:"cardholderId,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency,omitempty"`
	Merchant         string          `json:"merchant,omitempty"`
	MerchantCategory string          `json:"merchantCategory,omitempty"`
	Location         string          `json:"location,omitempty"`
	Coordinates      *geo.Point      `json:"coordinates,omitempty"`
	Channel          Channel         `json:"channel,omitempty"`
	DeviceID         string          `json:"deviceId,omitempty"`
	IPAddress        string          `json:"ipAddress,omitempty"`
	Timestamp        time.Time       `json:"timestamp"`
}

func (e *CardTransaction) Domain() Domain        { return DomainCard }
func (e *CardTransaction) EventID() string       { return e.ID }
func (e *CardTransaction) OccurredAt() time.Time { return e.Timestamp }
func (e *CardTransaction) isEvent()              {}

// Actor is the cardholder, or a stable fingerprint of the card when no
// cardholder is given. The raw number never leaves the event.
func (e *CardTransaction) Actor() string {
	if e.CardholderID != "" {
		return e.CardholderID
	}
	sum := sha256.Sum256([]byte(checksum.Clean(e.CardNumber)))
	return "card:" + hex.EncodeToString(sum[:8])
}

// OtpMessage is an SMS or push message that claims to carry a one-time code.
type OtpMessage struct {
	ID         string    `json:"id"`
	Sender     string    `json:"sender"`
	Recipient  string    `json:"recipient"`
	Content    string    `json:"content"`
	ReceivedAt time.Time `json:"receivedAt"`
}

func (e *OtpMessage) Domain() Domain        { return DomainOTP }
func (e *OtpMessage) EventID() string       { return e.ID }
func (e *OtpMessage) Actor() string         { return e.Recipient }
func (e *OtpMessage) OccurredAt() time.Time { return e.ReceivedAt }
func (e *OtpMessage) isEvent()              {}

// UrlSubmission is a link a user asked to have checked.
type UrlSubmission struct {
	ID          string    `json:"id"`
	Submitter   string    `json:"submitter,omitempty"`
	URL         string    `json:"url"`
	SubmittedAt time.Time `json:"submittedAt"`
}

func (e *UrlSubmission) Domain() Domain        { return DomainURL }
func (e *UrlSubmission) EventID() string       { return e.ID }
func (e *UrlSubmission) Actor() string         { return e.Submitter }
func (e *UrlSubmission) OccurredAt() time.Time { return e.SubmittedAt }
func (e *UrlSubmission) isEvent()              {}

// PhishingSubmission is a reported email.
type PhishingSubmission struct {
	ID            string    `json:"id"`
	Reporter      string    `json:"reporter,omitempty"`
	SenderAddress string    `json:"senderAddress"`
	SenderName    string    `json:"senderName,omitempty"`
	Subject       string    `json:"subject,omitempty"`
	Body          string    `json:"body,omitempty"`
	Links         []string  `json:"links,omitempty"`
	ReceivedAt    time.Time `json:"receivedAt"`
}

func (e *PhishingSubmission) Domain() Domain        { return DomainPhishing }
func (e *PhishingSubmission) EventID() string       { return e.ID }
func (e *PhishingSubmission) Actor() string         { return e.Reporter }
func (e *PhishingSubmission) OccurredAt() time.Time { return e.ReceivedAt }
func (e *PhishingSubmission) isEvent()              {}

// Text returns the subject and body as one string.
func (e *PhishingSubmission) Text() string {
	if e.Subject == "" {
		return e.Body
	}
	if e.Body == "" {
		return e.Subject
	}
	return e.Subject + "\n" + e.Body
}

// GenericTransaction is an account-to-counterparty money movement.
type GenericTransaction struct {
	ID           string          `json:"id"`
	AccountID    string          `json:"accountId"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency,omitempty"`
	Counterparty string          `json:"counterparty,omitempty"`
	Location     string          `json:"location,omitempty"`
	Coordinates  *geo.Point      `json:"coordinates,omitempty"`
	Channel      Channel         `json:"channel,omitempty"`
	DeviceID     string          `json:"deviceId,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

func (e *GenericTransaction) Domain() Domain        { return DomainTransaction }
func (e *GenericTransaction) EventID() string       { return e.ID }
func (e *GenericTransaction) Actor() string         { return e.AccountID }
func (e *GenericTransaction) OccurredAt() time.Time { return e.Timestamp }
func (e *GenericTransaction) isEvent()              {}

// GeoTransaction is a transaction with a mandatory position fix.
type GeoTransaction struct {
	ID        string          `json:"id"`
	AccountID string          `json:"accountId"`
	Amount    decimal.Decimal `json:"amount"`
	Currency  string          `json:"currency,omitempty"`
	Merchant  string          `json:"merchant,omitempty"`
	Location  string          `json:"location,omitempty"`
	Point     geo.Point       `json:"point"`
	DeviceID  string          `json:"deviceId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

func (e *GeoTransaction) Domain() Domain        { return DomainGeo }
func (e *GeoTransaction) EventID() string       { return e.ID }
func (e *GeoTransaction) Actor() string         { return e.AccountID }
func (e *GeoTransaction) OccurredAt() time.Time { return e.Timestamp }
func (e *GeoTransaction) isEvent()              {}
