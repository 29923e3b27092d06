package services

import (
	"math"

	"github.com/soaringjerry/FootPulse/internal/models"
)

// legacyScale infers the top of a rating scale from the answer itself:
// answers above 5 are read as 1..10, everything else as 1..5.
func legacyScale(v float64) float64 {
	if v > 5 {
		return 10
	}
	return 5
}

// ScaleOf returns the denominator used to normalize an answer v to q: the
// explicit ScaleMax when set, otherwise the legacy 5/10 inference. Rating and
// multiple-choice questions follow the same rule.
func ScaleOf(q *models.Question, v float64) float64 {
	if q.ScaleMax > 0 {
		return q.ScaleMax
	}
	return legacyScale(v)
}

// Normalize maps a raw answer to a fraction in [0,1].
func Normalize(q *models.Question, v float64) float64 {
	if v <= 0 {
		return 0
	}
	f := v / ScaleOf(q, v)
	if f > 1 {
		return 1
	}
	return f
}

// NormalizedPercent is Normalize expressed on a 0..100 scale.
func NormalizedPercent(q *models.Question, v float64) float64 {
	return Normalize(q, v) * 100
}

// Score computes the weighted percentage of a set of answers against a
// template. Unanswered questions count as zero and answers for question ids
// the template does not know are ignored. Weights are used as given, so a
// template whose weights do not sum to 100 yields a score off the 0..100 range.
func Score(t *models.Template, answers map[string]float64) int {
	if t == nil {
		return 0
	}
	total := 0.0
	for ci := range t.Categories {
		c := &t.Categories[ci]
		raw := 0.0
		for qi := range c.Questions {
			q := &c.Questions[qi]
			v, ok := answers[q.ID]
			if !ok {
				continue
			}
			raw += Normalize(q, v) * q.Weight
		}
		total += raw * c.Weight / 100
	}
	return int(math.Round(total))
}
