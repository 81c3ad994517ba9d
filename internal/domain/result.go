package domain

// Status is the verdict on an event. Statuses are ordered by severity.
type Status string

const (
	StatusApproved Status = "approved"
	StatusReview   Status = "review"
	StatusFlagged  Status = "flagged"
	StatusBlocked  Status = "blocked"
)

var statusRank = map[Status]int{
	StatusApproved: 0,
	StatusReview:   1,
	StatusFlagged:  2,
	StatusBlocked:  3,
}

// Rank returns the severity of s, or -1 for an unknown status.
func (s Status) Rank() int {
	if r, ok := statusRank[s]; ok {
		return r
	}
	return -1
}

// Recommendation is the action suggested to the caller, ordered by severity.
type Recommendation string

const (
	RecommendApprove Recommendation = "approve"
	RecommendMonitor Recommendation = "monitor"
	RecommendVerify  Recommendation = "verify"
	RecommendDecline Recommendation = "decline"
)

var recommendationRank = map[Recommendation]int{
	RecommendApprove: 0,
	RecommendMonitor: 1,
	RecommendVerify:  2,
	RecommendDecline: 3,
}

// Rank returns the severity of r, or -1 for an unknown recommendation.
func (r Recommendation) Rank() int {
	if v, ok := recommendationRank[r]; ok {
		return v
	}
	return -1
}

// RiskContribution is the score and reasons produced by one analyzer.
type RiskContribution struct {
	Dimension string   `json:"dimension"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
}

// Add records points and the reason they were given. Non-positive points are ignored.
func (c *RiskContribution) Add(points float64, reason string) {
	if points <= 0 {
		return
	}
	c.Score += points
	c.Reasons = append(c.Reasons, reason)
}

// AnalysisResult is the complete outcome of one evaluation.
// It holds no timestamps or identifiers so identical inputs serialize identically.
type AnalysisResult struct {
	Domain         Domain             `json:"domain"`
	TotalScore     float64            `json:"totalScore"`
	Status         Status             `json:"status"`
	Label          string             `json:"label"`
	Recommendation Recommendation     `json:"recommendation"`
	Confidence     float64            `json:"confidence"`
	Contributions  []RiskContribution `json:"contributions"`
	Reasons        []string           `json:"reasons"`
}
