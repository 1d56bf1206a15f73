package editcap

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// State is the recurrent state of a batch of in-flight
// sequences.
//
// A State is a value: stepping produces a new State and
// never modifies an existing one.
// Each row belongs to exactly one sequence.
type State struct {
	Hidden anydiff.Res
	Cell   anydiff.Res
}

// UnpackState splits a packed state into its hidden and
// cell parts.
func UnpackState(packed anydiff.Res) State {
	n := packed.Output().Len() / 2
	return State{
		Hidden: anydiff.Slice(packed, 0, n),
		Cell:   anydiff.Slice(packed, n, 2*n),
	}
}

// Pack joins the hidden and cell parts into one result.
func (s State) Pack() anydiff.Res {
	return anydiff.Concat(s.Hidden, s.Cell)
}

// Rows copies some rows out of a state holding total
// rows.
// The copy is a constant; it carries no gradient back to
// the state it was taken from.
func (s State) Rows(total int, indices []int) State {
	return State{
		Hidden: gatherRows(s.Hidden.Output(), total, indices),
		Cell:   gatherRows(s.Cell.Output(), total, indices),
	}
}

func gatherRows(v anyvec.Vector, total int, indices []int) anydiff.Res {
	data := vectorFloats(v)
	size := len(data) / total
	res := make([]float64, 0, size*len(indices))
	for _, i := range indices {
		res = append(res, data[i*size:(i+1)*size]...)
	}
	return constRows(v.Creator(), res)
}
