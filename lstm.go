package editcap

import (
	"errors"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const lstmForgetBias = 1

func init() {
	var l LSTMGate
	serializer.RegisterTypedDeserializer(l.SerializerType(), DeserializeLSTMGate)
	var lstm LSTM
	serializer.RegisterTypedDeserializer(lstm.SerializerType(), DeserializeLSTM)
}

// LSTM is a long short-term memory cell with peephole
// connections.
//
// It operates on packed states: a batch of hidden vectors
// followed by a batch of cell vectors (see State.Pack).
type LSTM struct {
	InCount    int
	StateCount int

	Candidate *LSTMGate
	In        *LSTMGate
	Forget    *LSTMGate
	Output    *LSTMGate
}

// DeserializeLSTM deserializes an LSTM.
func DeserializeLSTM(d []byte) (*LSTM, error) {
	var cand, in, forget, out *LSTMGate
	if err := serializer.DeserializeAny(d, &cand, &in, &forget, &out); err != nil {
		return nil, essentials.AddCtx("deserialize LSTM", err)
	}
	stateCount := cand.Biases.Vector.Len()
	return &LSTM{
		InCount:    cand.InputWeights.Vector.Len() / stateCount,
		StateCount: stateCount,
		Candidate:  cand,
		In:         in,
		Forget:     forget,
		Output:     out,
	}, nil
}

// NewLSTM creates a new, randomized LSTM.
//
// The forget gates are initially biased to remember
// things.
func NewLSTM(c anyvec.Creator, in, state int, r *rand.Rand) *LSTM {
	res := &LSTM{
		InCount:    in,
		StateCount: state,
		Candidate:  NewLSTMGate(c, in, state, anynet.Tanh, r),
		In:         NewLSTMGate(c, in, state, anynet.Sigmoid, r),
		Forget:     NewLSTMGate(c, in, state, anynet.Sigmoid, r),
		Output:     NewLSTMGate(c, in, state, anynet.Sigmoid, r),
	}
	res.Forget.Biases.Vector.AddScalar(c.MakeNumeric(lstmForgetBias))
	return res
}

// Step computes the packed next state for a batch of
// inputs.
func (l *LSTM) Step(in anydiff.Res, s State, rows int) anydiff.Res {
	return poolAll([]anydiff.Res{in, s.Hidden, s.Cell}, func(p []anydiff.Res) anydiff.Res {
		in, hidden, cell := p[0], p[1], p[2]
		cand := l.Candidate.Apply(in, hidden, nil, rows)
		inGate := l.In.Apply(in, hidden, cell, rows)
		forget := l.Forget.Apply(in, hidden, cell, rows)
		newCell := anydiff.Add(anydiff.Mul(forget, cell), anydiff.Mul(inGate, cand))
		return anydiff.Pool(newCell, func(newCell anydiff.Res) anydiff.Res {
			outGate := l.Output.Apply(in, hidden, newCell, rows)
			newHidden := anydiff.Mul(outGate, anydiff.Tanh(newCell))
			return State{Hidden: newHidden, Cell: newCell}.Pack()
		})
	})
}

// Run feeds a sequence of single-row inputs through the
// LSTM starting at the given state and returns the hidden
// vectors, one row per input.
func (l *LSTM) Run(inputs []anydiff.Res, start State) anydiff.Res {
	next := l.Step(inputs[0], start, 1)
	return anydiff.Pool(next, func(next anydiff.Res) anydiff.Res {
		s := UnpackState(next)
		if len(inputs) == 1 {
			return s.Hidden
		}
		return anydiff.Concat(s.Hidden, l.Run(inputs[1:], s))
	})
}

// Parameters returns the parameters of the block.
func (l *LSTM) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, g := range []*LSTMGate{l.Candidate, l.In, l.Forget, l.Output} {
		res = append(res, g.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an LSTM with the serializer package.
func (l *LSTM) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.LSTM"
}

// Serialize serializes the LSTM.
func (l *LSTM) Serialize() ([]byte, error) {
	return serializer.SerializeAny(l.Candidate, l.In, l.Forget, l.Output)
}

// An LSTMGate computes a value based on the input, the
// previous hidden state, and (through a diagonal peephole)
// a cell state.
type LSTMGate struct {
	StateWeights *anydiff.Var
	InputWeights *anydiff.Var
	Peephole     *anydiff.Var
	Biases       *anydiff.Var
	Activation   anynet.Activation
}

// DeserializeLSTMGate deserializes an LSTMGate.
func DeserializeLSTMGate(d []byte) (*LSTMGate, error) {
	var sw, iw, p, b *anyvecsave.S
	var a anynet.Activation
	if err := serializer.DeserializeAny(d, &sw, &iw, &p, &b, &a); err != nil {
		return nil, essentials.AddCtx("deserialize LSTMGate", err)
	}
	state := b.Vector.Len()
	if sw.Vector.Len() != state*state || p.Vector.Len() != state ||
		iw.Vector.Len()%state != 0 {
		return nil, errors.New("deserialize LSTMGate: inconsistent sizes")
	}
	return &LSTMGate{
		StateWeights: anydiff.NewVar(sw.Vector),
		InputWeights: anydiff.NewVar(iw.Vector),
		Peephole:     anydiff.NewVar(p.Vector),
		Biases:       anydiff.NewVar(b.Vector),
		Activation:   a,
	}, nil
}

// NewLSTMGate creates a randomized LSTM gate.
func NewLSTMGate(c anyvec.Creator, in, state int, activation anynet.Activation,
	r *rand.Rand) *LSTMGate {
	res := &LSTMGate{
		StateWeights: anydiff.NewVar(c.MakeVector(state * state)),
		InputWeights: anydiff.NewVar(c.MakeVector(state * in)),
		Peephole:     anydiff.NewVar(c.MakeVector(state)),
		Biases:       anydiff.NewVar(c.MakeVector(state)),
		Activation:   activation,
	}
	randomize(res.StateWeights.Vector, state, r)
	randomize(res.InputWeights.Vector, in, r)
	return res
}

// Apply computes the gate for a batch.
// If cell is nil, the peephole is not used.
func (l *LSTMGate) Apply(in, hidden, cell anydiff.Res, rows int) anydiff.Res {
	state := l.Biases.Vector.Len()
	sum := anydiff.Add(
		applyWeights(in.Output().Len()/rows, state, l.InputWeights, in),
		applyWeights(state, state, l.StateWeights, hidden),
	)
	if cell == nil {
		sum = anydiff.AddRepeated(sum, l.Biases)
	} else {
		sum = anydiff.Add(sum, anydiff.ScaleAddRepeated(cell, l.Peephole, l.Biases))
	}
	return l.Activation.Apply(sum, rows)
}

// Parameters returns the parameters of the gate.
func (l *LSTMGate) Parameters() []*anydiff.Var {
	return []*anydiff.Var{l.StateWeights, l.InputWeights, l.Peephole, l.Biases}
}

// SerializerType returns the unique ID used to serialize
// an LSTM gate with the serializer package.
func (l *LSTMGate) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.LSTMGate"
}

// Serialize serializes the gate.
func (l *LSTMGate) Serialize() ([]byte, error) {
	sw := &anyvecsave.S{Vector: l.StateWeights.Vector}
	iw := &anyvecsave.S{Vector: l.InputWeights.Vector}
	p := &anyvecsave.S{Vector: l.Peephole.Vector}
	b := &anyvecsave.S{Vector: l.Biases.Vector}
	return serializer.SerializeAny(sw, iw, p, b, l.Activation)
}

func applyWeights(in, out int, weights anydiff.Res, batch anydiff.Res) anydiff.Res {
	weightMat := &anydiff.Matrix{Data: weights, Rows: out, Cols: in}
	inMat := &anydiff.Matrix{Data: batch, Rows: batch.Output().Len() / in, Cols: in}
	return anydiff.MatMul(false, true, inMat, weightMat).Data
}
