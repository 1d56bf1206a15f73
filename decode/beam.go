package decode

import (
	"sort"

	editcap "github.com/gyq716/show-edit-tell"
)

// Beam runs a beam search of width c.Width.
//
// Every step extends each live hypothesis with each of its
// possible outcomes and keeps the best extensions.
// Extensions that finish (or reach the maximum length) are
// set aside and shrink the beam, so the search ends once
// c.Width captions are complete.
// The best finished caption is returned, or the best one
// cut off at the maximum length if none finished.
// LengthNorm only affects this final choice.
func Beam(m *editcap.Model, src *editcap.Source, c *Config) *Result {
	width := c.Width
	if width < 1 {
		width = 1
	}
	hyps := newArena()
	live := []int{0}
	state := m.Init(src, 1)
	var complete []int
	for len(live) > 0 {
		in := &editcap.StepInput{Temperature: c.Temperature}
		for _, idx := range live {
			in.Tokens = append(in.Tokens, (*hyps)[idx].LastToken)
			in.Pointers = append(in.Pointers, (*hyps)[idx].Pointer)
		}
		out := m.Step(src, state, in)
		probs := out.ActionProbs()

		exts := allExtensions(*hyps, live, out.OutcomeRows())
		sort.Stable(extensionSorter(exts))

		var next, rows []int
		for _, ext := range exts {
			if len(next) == width {
				break
			}
			idx := hyps.Extend(m, src, live[ext.Row], ext.Outcome, ext.LogProb, probs[ext.Row])
			if hyps.Done(m, idx) {
				complete = append(complete, idx)
				width--
			} else {
				next = append(next, idx)
				rows = append(rows, ext.Row)
			}
		}
		if len(next) > 0 {
			state = out.NextState().Rows(len(live), rows)
		}
		live = next
	}
	return bestResult(*hyps, complete, c.LengthNorm)
}

// bestResult prefers captions that emitted an end token
// over captions cut off at the maximum length.
// Ties go to the caption completed first.
func bestResult(hyps arena, complete []int, lengthNorm bool) *Result {
	var best *Result
	for _, idx := range complete {
		r := hyps.Result(idx)
		if best == nil || (r.Finished && !best.Finished) ||
			(r.Finished == best.Finished && r.Score(lengthNorm) > best.Score(lengthNorm)) {
			best = r
		}
	}
	return best
}

// An extension is a candidate next outcome for a live
// hypothesis.
type extension struct {
	Row     int
	Outcome int
	LogProb float64
}

// allExtensions lists the possible extensions ordered by
// row, then by outcome.
func allExtensions(hyps arena, live []int, logs [][]float64) []*extension {
	var res []*extension
	for row, idx := range live {
		h := hyps[idx]
		for o, lp := range logs[row] {
			if editcap.Masked(lp) {
				continue
			}
			res = append(res, &extension{Row: row, Outcome: o, LogProb: h.LogProb + lp})
		}
	}
	return res
}

// An extensionSorter sorts extensions from most to least
// probable.
type extensionSorter []*extension

func (e extensionSorter) Len() int {
	return len(e)
}

func (e extensionSorter) Swap(i, j int) {
	e[i], e[j] = e[j], e[i]
}

func (e extensionSorter) Less(i, j int) bool {
	return e[i].LogProb > e[j].LogProb
}
