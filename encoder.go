package editcap

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Encoder
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEncoder)
}

// An Encoder is a bi-directional LSTM over the embedded
// tokens of a prior caption.
//
// The encoding of each token combines the forward state
// after reading it with the backward state after reading
// it from the end of the caption.
// The first input to the Mixer is from the forward LSTM.
type Encoder struct {
	Forward  *LSTM
	Backward *LSTM
	Mixer    anynet.Mixer
}

// DeserializeEncoder deserializes an Encoder.
func DeserializeEncoder(d []byte) (*Encoder, error) {
	var res Encoder
	err := serializer.DeserializeAny(d, &res.Forward, &res.Backward, &res.Mixer)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Encoder", err)
	}
	return &res, nil
}

// NewEncoder creates a randomized Encoder whose outputs
// concatenate the two directions.
func NewEncoder(c anyvec.Creator, in, state int, r *rand.Rand) *Encoder {
	return &Encoder{
		Forward:  NewLSTM(c, in, state, r),
		Backward: NewLSTM(c, in, state, r),
		Mixer:    anynet.ConcatMixer{},
	}
}

// OutSize returns the size of each token encoding.
func (e *Encoder) OutSize() int {
	return e.Forward.StateCount + e.Backward.StateCount
}

// Encode encodes n embedded tokens, given as n rows.
// The result has one row per token.
func (e *Encoder) Encode(embedded anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(embedded, func(embedded anydiff.Res) anydiff.Res {
		size := embedded.Output().Len() / n
		forward := make([]anydiff.Res, n)
		backward := make([]anydiff.Res, n)
		for i := 0; i < n; i++ {
			forward[i] = anydiff.Slice(embedded, i*size, (i+1)*size)
			backward[n-(i+1)] = forward[i]
		}
		fwdOut := e.Forward.Run(forward, zeroState(e.Forward, embedded))
		backOut := e.Backward.Run(backward, zeroState(e.Backward, embedded))
		return anydiff.Pool(backOut, func(backOut anydiff.Res) anydiff.Res {
			state := e.Backward.StateCount
			rows := make([]anydiff.Res, n)
			for i := range rows {
				j := n - (i + 1)
				rows[i] = anydiff.Slice(backOut, j*state, (j+1)*state)
			}
			return e.Mixer.Mix(fwdOut, anydiff.Concat(rows...), n)
		})
	})
}

// Parameters returns the parameters of both directions.
func (e *Encoder) Parameters() []*anydiff.Var {
	return allParameters(e.Forward, e.Backward, e.Mixer)
}

// SerializerType returns the unique ID used to serialize
// an Encoder with the serializer package.
func (e *Encoder) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.Encoder"
}

// Serialize serializes the Encoder.
func (e *Encoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(e.Forward, e.Backward, e.Mixer)
}

func zeroState(l *LSTM, like anydiff.Res) State {
	c := like.Output().Creator()
	return State{
		Hidden: anydiff.NewConst(c.MakeVector(l.StateCount)),
		Cell:   anydiff.NewConst(c.MakeVector(l.StateCount)),
	}
}
