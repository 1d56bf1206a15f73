package optim

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

const (
	rmspropDefaultDecayRate = 0.9
	rmspropDefaultDamping   = 1e-8
)

// RMSProp divides gradients by a running root mean square.
type RMSProp struct {
	// DecayRate is the decay rate of the running average.
	// If it is 0, a default of 0.9 is used.
	DecayRate float64

	// Damping prevents divisions by zero.
	// If it is 0, a default is used.
	Damping float64

	moment anydiff.Grad
}

// Transform transforms the gradient in place.
//
// This is not thread-safe.
func (r *RMSProp) Transform(g anydiff.Grad) anydiff.Grad {
	if r.moment == nil {
		r.moment = copyGrad(g)
		for _, v := range r.moment {
			anyvec.Pow(v, v.Creator().MakeNumeric(2))
		}
	} else {
		keep := 1 - valueOrDefault(r.DecayRate, rmspropDefaultDecayRate)
		for v, grad := range g {
			sq := grad.Copy()
			anyvec.Pow(sq, sq.Creator().MakeNumeric(2))
			sq.Sub(r.moment[v])
			sq.Scale(sq.Creator().MakeNumeric(keep))
			r.moment[v].Add(sq)
		}
	}
	damping := valueOrDefault(r.Damping, rmspropDefaultDamping)
	for v, grad := range g {
		div := r.moment[v].Copy()
		div.AddScalar(div.Creator().MakeNumeric(damping))
		anyvec.Pow(div, div.Creator().MakeNumeric(-0.5))
		grad.Mul(div)
	}
	return g
}

// State saves the running average.
func (r *RMSProp) State(vars []*anydiff.Var) (*State, error) {
	res := &State{}
	if err := res.appendGrad(vars, r.moment); err != nil {
		return nil, essentials.AddCtx("save RMSProp", err)
	}
	return res, nil
}

// SetState restores state saved by State.
func (r *RMSProp) SetState(vars []*anydiff.Var, s *State) error {
	grads, err := s.grads(vars, 1)
	if err != nil {
		return essentials.AddCtx("restore RMSProp", err)
	}
	r.moment = grads[0]
	return nil
}
