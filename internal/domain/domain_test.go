package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opensource-finance/fraudforge/internal/geo"
)

var noon = time.Date(2025, 3, 12, 12, 0, 0, 0, time.UTC)

func TestParseDomain(t *testing.T) {
	d, err := ParseDomain(" Card ")
	require.NoError(t, err)
	assert.Equal(t, DomainCard, d)

	_, err = ParseDomain("fax")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, "domain", typed.Field)
	assert.Len(t, Domains(), 6)
}

func TestInvalidInputError(t *testing.T) {
	err := InvalidInput("amount", "must be positive, got %d", -3)
	assert.Equal(t, "invalid_input: amount: must be positive, got -3", err.Error())
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.False(t, errors.Is(err, ErrNotFound))

	bare := &Error{Kind: KindInvalidInput, Message: "bad"}
	assert.Equal(t, "invalid_input: bad", bare.Error())
}

func TestDecodeEvent(t *testing.T) {
	ev, err := DecodeEvent(DomainGeo, []byte(`{"accountId":"a1","amount":"12.50","point":{"lat":1.5,"lng":2.5},"timestamp":"2025-03-12T12:00:00Z"}`))
	require.NoError(t, err)

	g, ok := ev.(*GeoTransaction)
	require.True(t, ok)
	assert.Equal(t, "a1", g.AccountID)
	assert.True(t, g.Amount.Equal(decimal.RequireFromString("12.50")))
	assert.Equal(t, geo.Point{Lat: 1.5, Lng: 2.5}, g.Point)
	assert.True(t, g.Timestamp.Equal(noon))

	tests := []struct {
		name  string
		d     Domain
		raw   string
		field string
	}{
		{"unknown domain", Domain("fax"), `{}`, "domain"},
		{"empty body", DomainCard, ``, "event"},
		{"malformed", DomainOTP, `{"sender":`, "event"},
		{"wrong type", DomainURL, `{"url":42}`, "event"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEvent(tt.d, []byte(tt.raw))
			var typed *Error
			require.True(t, errors.As(err, &typed), "got %v", err)
			assert.Equal(t, tt.field, typed.Field)
		})
	}
}

func TestWithDefaults(t *testing.T) {
	orig := &OtpMessage{Sender: "AX-BANK", Recipient: "+911"}
	stamped := WithDefaults(orig, "id-1", noon).(*OtpMessage)

	assert.Equal(t, "id-1", stamped.ID)
	assert.Equal(t, noon, stamped.ReceivedAt)
	assert.Empty(t, orig.ID, "original must not be mutated")
	assert.True(t, orig.ReceivedAt.IsZero())

	set := &CardTransaction{ID: "keep", Timestamp: noon.Add(-time.Hour)}
	kept := WithDefaults(set, "id-2", noon).(*CardTransaction)
	assert.Equal(t, "keep", kept.ID)
	assert.Equal(t, noon.Add(-time.Hour), kept.Timestamp)
}

func TestIdentifiers(t *testing.T) {
	ev := &PhishingSubmission{
		SenderAddress: " Support@Amaz0n-Security.com ",
		Links:         []string{"https://amaz0n-security.com/login", "amaz0n-security.com/x", ""},
	}
	assert.Equal(t, []string{"support@amaz0n-security.com", "amaz0n-security.com"}, Identifiers(ev))
	assert.Equal(t, " Support@Amaz0n-Security.com ", Counterparty(ev))

	url := &UrlSubmission{URL: "HTTP://Evil.Example.com:8080/path"}
	assert.Equal(t, "evil.example.com", Counterparty(url))
	assert.Equal(t, []string{"evil.example.com"}, Identifiers(url))

	assert.Empty(t, Host("   "))
	assert.Equal(t, BlockKindDomain, BlockKindFor(DomainURL))
	assert.Equal(t, BlockKindSender, BlockKindFor(DomainOTP))
	assert.Equal(t, BlockKindMerchant, BlockKindFor(DomainGeo))
}

func TestNewEventRecord(t *testing.T) {
	p := geo.Point{Lat: 19.076, Lng: 72.8777}
	ev := &CardTransaction{
		ID:          "evt-1",
		CardNumber:  "4111 1111 1111 1111",
		Amount:      decimal.NewFromInt(2500),
		Merchant:    "Amazon",
		Location:    "Mumbai, India",
		DeviceID:    "dev-1",
		Coordinates: &p,
		Timestamp:   noon,
	}

	rec, err := NewEventRecord("tenant-001", ev)
	require.NoError(t, err)

	assert.Equal(t, "evt-1", rec.ID)
	assert.Equal(t, DomainCard, rec.Domain)
	assert.Equal(t, "Amazon", rec.Counterparty)
	assert.Equal(t, "Mumbai, India", rec.Location)
	assert.Equal(t, "dev-1", rec.DeviceID)
	assert.True(t, rec.Amount.Equal(decimal.NewFromInt(2500)))
	require.NotNil(t, rec.Point)
	assert.Equal(t, p, *rec.Point)

	var stored CardTransaction
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.Equal(t, "411111******1111", stored.CardNumber)
	assert.Equal(t, "4111 1111 1111 1111", ev.CardNumber)

	msg, err := NewEventRecord("tenant-001", &OtpMessage{ID: "otp-1", Sender: "AX-BANK", ReceivedAt: noon})
	require.NoError(t, err)
	assert.Nil(t, msg.Point)
	assert.True(t, msg.Amount.IsZero())
}

func TestHistoricalContextLookups(t *testing.T) {
	var nilCtx *HistoricalContext
	assert.False(t, nilCtx.KnowsLocation("Mumbai"))
	assert.False(t, nilCtx.IsBlocked("x"))

	hc := &HistoricalContext{
		KnownLocations:     []string{"Mumbai, India"},
		KnownDevices:       []string{"dev-1"},
		KnownSenders:       []string{"AX-BANK"},
		BlockedIdentifiers: []string{"evil.com"},
	}
	assert.True(t, hc.KnowsLocation("mumbai, india"))
	assert.False(t, hc.KnowsLocation(""))
	assert.True(t, hc.KnowsDevice("DEV-1"))
	assert.True(t, hc.KnowsSender("ax-bank"))
	assert.True(t, hc.IsBlocked(" Evil.com "))
}

func TestRanksAndContributions(t *testing.T) {
	assert.Less(t, StatusApproved.Rank(), StatusBlocked.Rank())
	assert.Equal(t, -1, Status("maybe").Rank())
	assert.Less(t, RecommendMonitor.Rank(), RecommendDecline.Rank())

	var c RiskContribution
	c.Add(10, "ten")
	c.Add(0, "ignored")
	c.Add(-5, "ignored")
	assert.Equal(t, 10.0, c.Score)
	assert.Equal(t, []string{"ten"}, c.Reasons)

	global := &RuleConfig{}
	scoped := &RuleConfig{Domain: DomainURL}
	assert.True(t, global.AppliesTo(DomainCard))
	assert.False(t, scoped.AppliesTo(DomainCard))
}
