package domain

import (
	"encoding/json"
	"time"
)

// DecodeEvent parses raw JSON into the event type registered for d.
// Malformed payloads are reported as invalid input.
func DecodeEvent(d Domain, raw []byte) (Event, error) {
	var ev Event
	switch d {
	case DomainCard:
		ev = &CardTransaction{}
	case DomainOTP:
		ev = &OtpMessage{}
	case DomainURL:
		ev = &UrlSubmission{}
	case DomainPhishing:
		ev = &PhishingSubmission{}
	case DomainTransaction:
		ev = &GenericTransaction{}
	case DomainGeo:
		ev = &GeoTransaction{}
	default:
		return nil, InvalidInput("domain", "unknown domain %q", d)
	}

	if len(raw) == 0 {
		return nil, InvalidInput("event", "empty %s event", d)
	}
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, InvalidInput("event", "malformed %s event: %v", d, err)
	}
	return ev, nil
}

// WithDefaults returns a copy of ev whose empty ID and zero timestamp are
// filled with id and now. Callers stamp events on receipt; the engine never
// invents missing values.
func WithDefaults(ev Event, id string, now time.Time) Event {
	switch e := ev.(type) {
	case *CardTransaction:
		c := *e
		if c.ID == "" {
			c.ID = id
		}
		if c.Timestamp.IsZero() {
			c.Timestamp = now
		}
		return &c
	case *OtpMessage:
		c := *e
		if c.ID == "" {
			c.ID = id
		}
		if c.ReceivedAt.IsZero() {
			c.ReceivedAt = now
		}
		return &c
	case *UrlSubmission:
		c := *e
		if c.ID == "" {
			c.ID = id
		}
		if c.SubmittedAt.IsZero() {
			c.SubmittedAt = now
		}
		return &c
	case *PhishingSubmission:
		c := *e
		if c.ID == "" {
			c.ID = id
		}
		if c.ReceivedAt.IsZero() {
			c.ReceivedAt = now
		}
		return &c
	case *GenericTransaction:
		c := *e
		if c.ID == "" {
			c.ID = id
		}
		if c.Timestamp.IsZero() {
			c.Timestamp = now
		}
		return &c
	case *GeoTransaction:
		c := *e
		if c.ID == "" {
			c.ID = id
		}
		if c.Timestamp.IsZero() {
			c.Timestamp = now
		}
		return &c
	}
	return ev
}
