package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/opensource-finance/fraudforge/internal/geo"
)

// HistoricalContext is the read-only history supplied alongside an event.
// It is resolved by the caller before evaluation; the engine never fetches it.
// A nil context means no history is available.
type HistoricalContext struct {
	// Window is the trailing window RecentCount and RecentSum cover.
	Window      time.Duration   `json:"window"`
	RecentCount int             `json:"recentCount"`
	RecentSum   decimal.Decimal `json:"recentSum"`

	KnownLocations []string `json:"knownLocations,omitempty"`
	KnownDevices   []string `json:"knownDevices,omitempty"`
	KnownSenders   []string `json:"knownSenders,omitempty"`

	// BlockedIdentifiers are the event identifiers found on the blocklist.
	BlockedIdentifiers []string `json:"blockedIdentifiers,omitempty"`

	// LastFix is the actor's previous located event.
	LastFix *LocatedFix `json:"lastFix,omitempty"`

	AccountAge     time.Duration `json:"accountAge,omitempty"`
	FailedAttempts int           `json:"failedAttempts,omitempty"`
}

// LocatedFix is a past position with its free-text location.
type LocatedFix struct {
	geo.Fix
	Location string `json:"location,omitempty"`
}

// KnowsLocation reports whether loc matches a known location, ignoring case.
func (h *HistoricalContext) KnowsLocation(loc string) bool {
	if h == nil {
		return false
	}
	return containsFold(h.KnownLocations, loc)
}

// KnowsDevice reports whether id is a known device.
func (h *HistoricalContext) KnowsDevice(id string) bool {
	if h == nil {
		return false
	}
	return containsFold(h.KnownDevices, id)
}

// KnowsSender reports whether sender has been seen before.
func (h *HistoricalContext) KnowsSender(sender string) bool {
	if h == nil {
		return false
	}
	return containsFold(h.KnownSenders, sender)
}

// IsBlocked reports whether id is on the blocklist.
func (h *HistoricalContext) IsBlocked(id string) bool {
	if h == nil {
		return false
	}
	return containsFold(h.BlockedIdentifiers, strings.TrimSpace(id))
}

func containsFold(list []string, s string) bool {
	if s == "" {
		return false
	}
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}
