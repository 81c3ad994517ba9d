package domain

import "time"

// RuleConfig is an operator-defined CEL rule scored alongside the built-in analyzers.
type RuleConfig struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Version     string `json:"version"`

	// Domain restricts the rule to one event domain. Empty applies to all.
	Domain Domain `json:"domain,omitempty"`

	// CEL expression to evaluate. Boolean results add Score when true;
	// numeric results add their own value.
	Expression string `json:"expression"`

	Score  float64 `json:"score"`
	Reason string  `json:"reason"`

	// Whether rule is active
	Enabled bool `json:"enabled"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// AppliesTo reports whether the rule runs for events of domain d.
func (r *RuleConfig) AppliesTo(d Domain) bool {
	return r.Domain == "" || r.Domain == d
}
