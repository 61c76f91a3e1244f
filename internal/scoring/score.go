package scoring

import (
	"errors"
	"fmt"
	"math"

	"github.com/raysh454/appreviewer/internal/model"
)

// ErrInvalidWeights is returned when a weight configuration does not sum to 1.
var ErrInvalidWeights = errors.New("scoring: invalid category weights")

const weightTolerance = 1e-6

// Weights maps each category to its share of the overall score.
type Weights map[model.Category]float64

// DefaultWeights returns the stock configuration.
func DefaultWeights() Weights {
	return Weights{
		model.CategorySecurity:    0.30,
		model.CategoryCodeQuality: 0.30,
		model.CategoryUIUX:        0.40,
	}
}

// Validate checks every weight is in [0,1], belongs to an analysis category and
// that the weights sum to 1.
func (w Weights) Validate() error {
	if len(w) == 0 {
		return fmt.Errorf("%w: no weights", ErrInvalidWeights)
	}
	sum := 0.0
	for c, v := range w {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown category %q", ErrInvalidWeights, c)
		}
		if v < 0 || v > 1 || math.IsNaN(v) {
			return fmt.Errorf("%w: weight for %s is %v", ErrInvalidWeights, c, v)
		}
		sum += v
	}
	if math.Abs(sum-1) > weightTolerance {
		return fmt.Errorf("%w: weights sum to %v", ErrInvalidWeights, sum)
	}
	return nil
}

// Overall combines category scores into round(Σ weight·score), clamped to [0,100].
// A category without a score contributes 0.
func (w Weights) Overall(scores map[model.Category]int) int {
	total := 0.0
	for _, c := range model.Categories() {
		total += w[c] * float64(ClampScore(scores[c]))
	}
	return ClampScore(int(math.Round(total)))
}

// Breakdown derives the per-category report entry for res.
func (w Weights) Breakdown(res *model.CategoryResult) model.CategoryBreakdown {
	weight := w[res.Category]
	return model.CategoryBreakdown{
		Score:           res.Score,
		Weight:          weight,
		WeightedScore:   float64(res.Score) * weight,
		IssueCount:      len(res.Issues),
		SeverityCounts:  model.CountSeverities(res.Issues),
		Recommendations: append([]string(nil), res.Recommendations...),
		Error:           res.Error,
	}
}

// Deduction is the score cost of one issue per severity.
var Deduction = map[model.Severity]float64{
	model.SeverityCritical: 20,
	model.SeverityHigh:     10,
	model.SeverityMedium:   5,
	model.SeverityLow:      2,
}

const diminishingThreshold = 50

// CategoryScore starts at 100 and subtracts a deduction per issue. Deductions
// beyond 50 points only cost half. The result is floored at 0 and rounded.
func CategoryScore(issues []model.Issue) int {
	deductions := 0.0
	for _, is := range issues {
		d, ok := Deduction[is.Severity]
		if !ok {
			d = Deduction[model.SeverityMedium]
		}
		deductions += d
	}
	if deductions > diminishingThreshold {
		deductions = diminishingThreshold + (deductions-diminishingThreshold)*0.5
	}
	return int(math.Round(math.Max(0, 100-deductions)))
}

// ClampScore bounds a raw score to [0,100].
func ClampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
