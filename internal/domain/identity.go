package domain

import (
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/geo"
)

// Counterparty returns the primary party on the other side of the event:
// the merchant, sender, or URL host. It is the identifier auto-block writes.
func Counterparty(ev Event) string {
	switch e := ev.(type) {
	case *CardTransaction:
		return e.Merchant
	case *OtpMessage:
		return e.Sender
	case *UrlSubmission:
		return Host(e.URL)
	case *PhishingSubmission:
		return e.SenderAddress
	case *GenericTransaction:
		return e.Counterparty
	case *GeoTransaction:
		return e.Merchant
	}
	return ""
}

// Identifiers returns every normalized identifier of ev that may appear on a
// blocklist, without duplicates.
func Identifiers(ev Event) []string {
	var ids []string
	switch e := ev.(type) {
	case *CardTransaction:
		ids = append(ids, e.Merchant, e.DeviceID, e.IPAddress)
	case *OtpMessage:
		ids = append(ids, e.Sender)
	case *UrlSubmission:
		ids = append(ids, Host(e.URL))
	case *PhishingSubmission:
		ids = append(ids, e.SenderAddress)
		for _, link := range e.Links {
			ids = append(ids, Host(link))
		}
	case *GenericTransaction:
		ids = append(ids, e.Counterparty, e.DeviceID)
	case *GeoTransaction:
		ids = append(ids, e.Merchant, e.DeviceID)
	}

	seen := make(map[string]bool, len(ids))
	out := ids[:0]
	for _, id := range ids {
		id = NormalizeIdentifier(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// NormalizeIdentifier lowercases and trims an identifier.
func NormalizeIdentifier(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Host extracts the lowercase hostname from a URL, tolerating a missing scheme.
func Host(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "://") {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}

// AmountOf returns the monetary amount of ev, if it carries one.
func AmountOf(ev Event) (decimal.Decimal, bool) {
	switch e := ev.(type) {
	case *CardTransaction:
		return e.Amount, true
	case *GenericTransaction:
		return e.Amount, true
	case *GeoTransaction:
		return e.Amount, true
	}
	return decimal.Zero, false
}

// LocationOf returns the free-text location of ev, if it has one.
func LocationOf(ev Event) (string, bool) {
	switch e := ev.(type) {
	case *CardTransaction:
		return e.Location, true
	case *GenericTransaction:
		return e.Location, true
	case *GeoTransaction:
		return e.Location, true
	}
	return "", false
}

// PointOf returns the coordinates of ev when it was located.
func PointOf(ev Event) (geo.Point, bool) {
	switch e := ev.(type) {
	case *CardTransaction:
		if e.Coordinates != nil {
			return *e.Coordinates, true
		}
	case *GenericTransaction:
		if e.Coordinates != nil {
			return *e.Coordinates, true
		}
	case *GeoTransaction:
		return e.Point, true
	}
	return geo.Point{}, false
}

// DeviceOf returns the device fingerprint of ev, if the domain has one.
func DeviceOf(ev Event) (string, bool) {
	switch e := ev.(type) {
	case *CardTransaction:
		return e.DeviceID, true
	case *GenericTransaction:
		return e.DeviceID, true
	case *GeoTransaction:
		return e.DeviceID, true
	}
	return "", false
}

// ChannelOf returns the payment channel of ev, if the domain has one.
func ChannelOf(ev Event) Channel {
	switch e := ev.(type) {
	case *CardTransaction:
		return e.Channel
	case *GenericTransaction:
		return e.Channel
	}
	return ""
}
