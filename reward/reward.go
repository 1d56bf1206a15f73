// Package reward scores generated captions for
// self-critical training.
package reward

import (
	"math"

	"github.com/gyq716/show-edit-tell/vocab"
)

// A Scorer rates a caption against reference captions.
//
// Captions are token sequences without start, end or
// padding tokens.
type Scorer interface {
	Score(candidate []int, references [][]int) (float64, error)
}

// Func is a Scorer implemented as a function.
type Func func(candidate []int, references [][]int) (float64, error)

// Score calls f.
func (f Func) Score(candidate []int, references [][]int) (float64, error) {
	return f(candidate, references)
}

// Safe wraps a Scorer so that scoring never fails.
//
// Captions and references are stripped of reserved tokens
// before they are scored.
// An empty caption, a scorer error, or a non-finite score
// is worth Min.
type Safe struct {
	Scorer Scorer
	Min    float64
}

// Score scores a wrapped caption against wrapped
// references.
func (s *Safe) Score(candidate []int, references [][]int) float64 {
	stripped := vocab.Strip(candidate)
	if len(stripped) == 0 {
		return s.Min
	}
	refs := make([][]int, len(references))
	for i, r := range references {
		refs[i] = vocab.Strip(r)
	}
	score, err := s.Scorer.Score(stripped, refs)
	if err != nil || math.IsNaN(score) || math.IsInf(score, 0) {
		return s.Min
	}
	return score
}

// Advantage is the self-critical advantage of a sampled
// caption over the baseline caption.
func Advantage(sampled, baseline float64) float64 {
	return sampled - baseline
}
