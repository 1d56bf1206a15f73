// Package decode turns a trained model into edited
// captions with greedy or beam search.
//
// Decoding never computes gradients, and it does not touch
// training-only behavior: call Model.SetTraining(false)
// first if dropout was enabled.
package decode

import (
	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/editops"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/essentials"
)

// Config controls a search.
type Config struct {
	// Width is the beam width.
	// Widths below 2 produce a greedy search.
	Width int

	// LengthNorm ranks completed captions by their mean
	// log-probability per emitted token instead of their
	// total log-probability.
	LengthNorm bool

	// Temperature divides the word logits.
	// Zero is treated like one.
	Temperature float64
}

// A Result is a decoded caption.
type Result struct {
	// Tokens starts with the start token, and ends with the
	// end token if Finished is set.
	Tokens []int

	// Actions has one entry per decoding step.
	Actions []editops.Action

	// LogProb is the total log-probability of the outcomes
	// leading to the caption.
	LogProb float64

	// Finished is false if decoding stopped at the maximum
	// caption length.
	Finished bool
}

// Caption returns the caption's words, without start, end
// or padding tokens.
func (r *Result) Caption() []int {
	return vocab.Strip(r.Tokens)
}

// Score returns the value used to rank the result.
func (r *Result) Score(lengthNorm bool) float64 {
	if !lengthNorm {
		return r.LogProb
	}
	emitted := len(r.Tokens) - 1
	if emitted < 1 {
		emitted = 1
	}
	return r.LogProb / float64(emitted)
}

// Search decodes the example with a beam search, or a
// greedy search if the width is less than 2.
func Search(m *editcap.Model, e *editcap.Example, c *Config) (*Result, error) {
	src, err := m.NewSource(e)
	if err != nil {
		return nil, essentials.AddCtx("decode "+e.ImageID, err)
	}
	if c.Width < 2 {
		return Greedy(m, src, c.Temperature), nil
	}
	return Beam(m, src, c), nil
}

// SearchBatch decodes every example with Search.
// Decoding stops at the first invalid example.
func SearchBatch(m *editcap.Model, examples []*editcap.Example, c *Config) ([]*Result, error) {
	res := make([]*Result, len(examples))
	for i, e := range examples {
		r, err := Search(m, e, c)
		if err != nil {
			return nil, err
		}
		res[i] = r
	}
	return res, nil
}

// Greedy picks the most likely outcome at every step.
// Ties go to the lowest outcome index.
func Greedy(m *editcap.Model, src *editcap.Source, temperature float64) *Result {
	hyps := newArena()
	idx := 0
	state := m.Init(src, 1)
	for {
		h := (*hyps)[idx]
		out := m.Step(src, state, &editcap.StepInput{
			Tokens:      []int{h.LastToken},
			Pointers:    []int{h.Pointer},
			Temperature: temperature,
		})
		best := -1
		var bestScore float64
		for o, lp := range out.OutcomeRows()[0] {
			if editcap.Masked(lp) {
				continue
			}
			if score := h.LogProb + lp; best == -1 || score > bestScore {
				best, bestScore = o, score
			}
		}
		idx = hyps.Extend(m, src, idx, best, bestScore, out.ActionProbs()[0])
		if hyps.Done(m, idx) {
			return hyps.Result(idx)
		}
		state = out.NextState()
	}
}
