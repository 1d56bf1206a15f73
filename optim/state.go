package optim

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s State
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeState)
}

var errVarsGradMismatch = errors.New("variable list does not match gradient")

// State is the saved state of an Optimizer.
//
// Binary holds state that an optimizer marshals itself.
// Vectors holds zero or more gradients, each stored as one
// vector per parameter in parameter order.
type State struct {
	Binary  []byte
	Vectors []anyvec.Vector
}

// DeserializeState deserializes a State.
func DeserializeState(d []byte) (*State, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize State", err)
	}
	if len(slice) == 0 {
		return nil, errors.New("deserialize State: missing binary state")
	}
	binary, ok := slice[0].(serializer.Bytes)
	if !ok {
		return nil, fmt.Errorf("deserialize State: unexpected type %T", slice[0])
	}
	res := &State{}
	if len(binary) > 0 {
		res.Binary = []byte(binary)
	}
	for _, x := range slice[1:] {
		vec, ok := x.(*anyvecsave.S)
		if !ok {
			return nil, fmt.Errorf("deserialize State: unexpected type %T", x)
		}
		res.Vectors = append(res.Vectors, vec.Vector)
	}
	return res, nil
}

// SerializerType returns the unique ID used to serialize
// a State with the serializer package.
func (s *State) SerializerType() string {
	return "github.com/gyq716/show-edit-tell/optim.State"
}

// Serialize serializes the State.
func (s *State) Serialize() ([]byte, error) {
	parts := []serializer.Serializer{serializer.Bytes(s.Binary)}
	for _, v := range s.Vectors {
		parts = append(parts, &anyvecsave.S{Vector: v})
	}
	return serializer.SerializeSlice(parts)
}

// appendGrad adds a gradient's vectors to the state in the
// order of vars.
// A nil gradient adds nothing.
func (s *State) appendGrad(vars []*anydiff.Var, g anydiff.Grad) error {
	if g == nil {
		return nil
	}
	if len(vars) != len(g) {
		return errVarsGradMismatch
	}
	for _, v := range vars {
		vec, ok := g[v]
		if !ok {
			return errVarsGradMismatch
		}
		s.Vectors = append(s.Vectors, vec.Copy())
	}
	return nil
}

// grads splits the state into count gradients keyed by
// vars.
// If the state has no vectors, every gradient is nil.
func (s *State) grads(vars []*anydiff.Var, count int) ([]anydiff.Grad, error) {
	res := make([]anydiff.Grad, count)
	if len(s.Vectors) == 0 {
		return res, nil
	}
	if len(s.Vectors) != count*len(vars) {
		return nil, fmt.Errorf("expected %d vectors but got %d", count*len(vars),
			len(s.Vectors))
	}
	for i := range res {
		res[i] = anydiff.Grad{}
		for j, v := range vars {
			vec := s.Vectors[i*len(vars)+j]
			if vec.Len() != v.Vector.Len() {
				return nil, errors.New("bad vector length")
			}
			res[i][v] = vec.Copy()
		}
	}
	return res, nil
}
