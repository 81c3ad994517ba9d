package decision

import (
	"errors"
	"fmt"
	"math"

	"github.com/opensource-finance/fraudforge/internal/domain"
)

// Band maps scores from Min up to the next band's Min to one verdict.
type Band struct {
	Min            float64               `mapstructure:"min" json:"min"`
	Status         domain.Status         `mapstructure:"status" json:"status"`
	Recommendation domain.Recommendation `mapstructure:"recommendation" json:"recommendation"`
	// Label is the domain wording shown to users; it defaults to the status.
	Label string `mapstructure:"label" json:"label,omitempty"`
}

// DisplayLabel returns Label, or the status when no label is set.
func (b Band) DisplayLabel() string {
	if b.Label != "" {
		return b.Label
	}
	return string(b.Status)
}

// ThresholdTable is an ascending, non-overlapping partition of [0, 100].
type ThresholdTable []Band

// ErrInvalidTable is wrapped by every threshold table validation failure.
var ErrInvalidTable = errors.New("invalid threshold table")

// Validate checks that the table starts at 0, ascends strictly, stays within
// [0, 100] and never lowers status or recommendation as scores rise.
func (t ThresholdTable) Validate() error {
	if len(t) == 0 {
		return fmt.Errorf("%w: no bands", ErrInvalidTable)
	}
	if t[0].Min != MinScore {
		return fmt.Errorf("%w: first band must start at 0, got %v", ErrInvalidTable, t[0].Min)
	}
	for i, b := range t {
		if math.IsNaN(b.Min) || b.Min < MinScore || b.Min > MaxScore {
			return fmt.Errorf("%w: band %d min %v outside [0,100]", ErrInvalidTable, i, b.Min)
		}
		if b.Status.Rank() < 0 {
			return fmt.Errorf("%w: band %d has unknown status %q", ErrInvalidTable, i, b.Status)
		}
		if b.Recommendation.Rank() < 0 {
			return fmt.Errorf("%w: band %d has unknown recommendation %q", ErrInvalidTable, i, b.Recommendation)
		}
		if i == 0 {
			continue
		}
		prev := t[i-1]
		if b.Min <= prev.Min {
			return fmt.Errorf("%w: band %d min %v not above %v", ErrInvalidTable, i, b.Min, prev.Min)
		}
		if b.Status.Rank() < prev.Status.Rank() {
			return fmt.Errorf("%w: band %d status %q is below %q", ErrInvalidTable, i, b.Status, prev.Status)
		}
		if b.Recommendation.Rank() < prev.Recommendation.Rank() {
			return fmt.Errorf("%w: band %d recommendation %q is below %q", ErrInvalidTable, i, b.Recommendation, prev.Recommendation)
		}
	}
	return nil
}

// Classify returns the highest band whose Min is at or below score, so a
// score on a boundary belongs to the upper band. Scores below the first band
// fall into it.
func (t ThresholdTable) Classify(score float64) Band {
	for i := len(t) - 1; i >= 0; i-- {
		if t[i].Min <= score {
			return t[i]
		}
	}
	if len(t) > 0 {
		return t[0]
	}
	return Band{Status: domain.StatusApproved, Recommendation: domain.RecommendApprove}
}

// Confidence is how sure the engine claims to be in its own verdict, as a
// linear function of the score capped at Max. It is a presentation model,
// not a calibrated probability.
type Confidence struct {
	Base  float64 `mapstructure:"base" json:"base"`
	Slope float64 `mapstructure:"slope" json:"slope"`
	Max   float64 `mapstructure:"max" json:"max"`
}

// Of returns min(Max, Base + score*Slope).
func (c Confidence) Of(score float64) float64 {
	return math.Min(c.Max, c.Base+score*c.Slope)
}

// Validate requires a non-negative slope and 0 <= Base <= Max <= 100.
func (c Confidence) Validate() error {
	switch {
	case c.Slope < 0:
		return fmt.Errorf("confidence slope must be non-negative, got %v", c.Slope)
	case c.Base < 0 || c.Base > c.Max:
		return fmt.Errorf("confidence base %v must be within [0, max]", c.Base)
	case c.Max > MaxScore:
		return fmt.Errorf("confidence max %v above 100", c.Max)
	}
	return nil
}
