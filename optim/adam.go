package optim

import (
	"errors"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
)

// Adam is anysgd.Adam with its state exposed in parameter
// order.
type Adam struct {
	anysgd.Adam
}

// State saves the moments, the iteration count, and the
// hyper-parameters.
func (a *Adam) State(vars []*anydiff.Var) (*State, error) {
	a.Vars = vars
	data, err := a.MarshalBinary()
	if err != nil {
		return nil, essentials.AddCtx("save Adam", err)
	}
	return &State{Binary: data}, nil
}

// SetState restores state saved by State.
func (a *Adam) SetState(vars []*anydiff.Var, s *State) error {
	if len(s.Binary) == 0 {
		return essentials.AddCtx("restore Adam", errors.New("state was not saved by Adam"))
	}
	a.Vars = vars
	if err := a.UnmarshalBinary(s.Binary); err != nil {
		return essentials.AddCtx("restore Adam", err)
	}
	return nil
}
