// Package decision aggregates risk contributions and classifies the total
// against a per-domain threshold table.
package decision

import (
	"math"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

const (
	MinScore = 0.0
	MaxScore = 100.0
)

// Policy is the classification configuration of one domain.
type Policy struct {
	Thresholds ThresholdTable `mapstructure:"thresholds" json:"thresholds"`
	Confidence Confidence     `mapstructure:"confidence" json:"confidence"`
}

// Validate checks both the table and the confidence curve.
func (p Policy) Validate() error {
	if err := p.Thresholds.Validate(); err != nil {
		return err
	}
	return p.Confidence.Validate()
}

// Aggregate sums the contribution scores, clamps the total to [0, 100] and
// concatenates reasons in contribution order.
func Aggregate(contributions []domain.RiskContribution) (float64, []string) {
	total := 0.0
	reasons := []string{}
	for _, c := range contributions {
		if c.Score > 0 && !math.IsInf(c.Score, 0) && !math.IsNaN(c.Score) {
			total += c.Score
		}
		reasons = append(reasons, c.Reasons...)
	}
	return clamp(total), reasons
}

// Decide aggregates contributions and classifies the total under p.
func Decide(d domain.Domain, contributions []domain.RiskContribution, p Policy) domain.AnalysisResult {
	total, reasons := Aggregate(contributions)
	band := p.Thresholds.Classify(total)

	return domain.AnalysisResult{
		Domain:         d,
		TotalScore:     total,
		Status:         band.Status,
		Label:          band.DisplayLabel(),
		Recommendation: band.Recommendation,
		Confidence:     p.Confidence.Of(total),
		Contributions:  contributions,
		Reasons:        reasons,
	}
}

// ShouldAlert reports whether a result needs attention beyond monitoring.
func ShouldAlert(res *domain.AnalysisResult) bool {
	return res.Status.Rank() >= domain.StatusFlagged.Rank()
}

func clamp(score float64) float64 {
	return math.Min(MaxScore, math.Max(MinScore, score))
}
