package domain

import "time"

// BlocklistEntry is an identifier the tenant has chosen to block.
// The engine only reads these; writes come from operators or auto-block.
type BlocklistEntry struct {
	TenantID           string    `json:"tenantId"`
	Identifier         string    `json:"identifier"`
	Kind               string    `json:"kind"`
	Reason             string    `json:"reason"`
	SourceEvaluationID string    `json:"sourceEvaluationId,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// Blocklist entry kinds.
const (
	BlockKindMerchant = "merchant"
	BlockKindSender   = "sender"
	BlockKindDomain   = "domain"
	BlockKindDevice   = "device"
	BlockKindOther    = "other"
)

// BlockKindFor names the kind of the counterparty identifier of domain d.
func BlockKindFor(d Domain) string {
	switch d {
	case DomainCard, DomainGeo, DomainTransaction:
		return BlockKindMerchant
	case DomainOTP, DomainPhishing:
		return BlockKindSender
	case DomainURL:
		return BlockKindDomain
	}
	return BlockKindOther
}
