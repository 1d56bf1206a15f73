// Package optim implements gradient transformers whose
// state can be saved in checkpoints, along with gradient
// clipping and learning rate schedules.
package optim

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
)

// An Optimizer is an anysgd.Transformer with state that
// can be saved and restored.
//
// State is stored by parameter order rather than by
// variable identity, so it can be restored into a
// deserialized copy of a model.
type Optimizer interface {
	anysgd.Transformer

	State(vars []*anydiff.Var) (*State, error)
	SetState(vars []*anydiff.Var, s *State) error
}

// New creates an Optimizer by name.
// Supported names are "adam", "rmsprop" and "momentum".
func New(name string) (Optimizer, error) {
	switch name {
	case "adam":
		return &Adam{}, nil
	case "rmsprop":
		return &RMSProp{}, nil
	case "momentum":
		return &Momentum{Momentum: 0.9}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s", name)
	}
}

func copyGrad(g anydiff.Grad) anydiff.Grad {
	res := anydiff.Grad{}
	for k, v := range g {
		res[k] = v.Copy()
	}
	return res
}

func scaleGrad(g anydiff.Grad, s float64) {
	for _, v := range g {
		v.Scale(v.Creator().MakeNumeric(s))
	}
}

func valueOrDefault(value, def float64) float64 {
	if value == 0 {
		return def
	}
	return value
}
