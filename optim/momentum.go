package optim

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/essentials"
)

// Momentum implements SGD with momentum.
//
// The transformed gradient v is computed as
//
//     v := momentum * v + grad
type Momentum struct {
	Momentum float64
	rolling  anydiff.Grad
}

// Transform transforms the gradient in place.
//
// This is not thread-safe.
func (m *Momentum) Transform(g anydiff.Grad) anydiff.Grad {
	if m.rolling == nil {
		m.rolling = copyGrad(g)
		return g
	}
	for v, x := range m.rolling {
		x.Scale(x.Creator().MakeNumeric(m.Momentum))
		x.Add(g[v])
		g[v].Set(x)
	}
	return g
}

// State saves the rolling gradient.
func (m *Momentum) State(vars []*anydiff.Var) (*State, error) {
	res := &State{}
	if err := res.appendGrad(vars, m.rolling); err != nil {
		return nil, essentials.AddCtx("save Momentum", err)
	}
	return res, nil
}

// SetState restores state saved by State.
func (m *Momentum) SetState(vars []*anydiff.Var, s *State) error {
	grads, err := s.grads(vars, 1)
	if err != nil {
		return essentials.AddCtx("restore Momentum", err)
	}
	m.rolling = grads[0]
	return nil
}
