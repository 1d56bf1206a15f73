package editcap

import (
	"math/rand"

	"github.com/gyq716/show-edit-tell/editops"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Predictor
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePredictor)
}

// A Predictor scores the edit actions at a decoding step
// from the decoder state and the embedding of the prior
// caption token under the pointer.
type Predictor struct {
	HiddenTrans *anynet.FC
	TokenTrans  *anynet.FC

	// NoToken is the embedding used in place of a prior
	// token once the pointer has passed the end of the
	// prior caption.
	NoToken *anydiff.Var
}

// DeserializePredictor deserializes a Predictor.
func DeserializePredictor(d []byte) (*Predictor, error) {
	var p Predictor
	var noToken *anyvecsave.S
	err := serializer.DeserializeAny(d, &p.HiddenTrans, &p.TokenTrans, &noToken)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Predictor", err)
	}
	p.NoToken = anydiff.NewVar(noToken.Vector)
	return &p, nil
}

// NewPredictor creates a randomized Predictor.
func NewPredictor(c anyvec.Creator, hidden, embed int, r *rand.Rand) *Predictor {
	noToken := c.MakeVector(embed)
	anyvec.Rand(noToken, anyvec.Normal, r)
	noToken.Scale(c.MakeNumeric(embeddingInitScale))
	return &Predictor{
		HiddenTrans: newFC(c, hidden, editops.NumActions, r),
		TokenTrans:  newFC(c, embed, editops.NumActions, r),
		NoToken:     anydiff.NewVar(noToken),
	}
}

// Apply computes action log-probabilities for a batch.
//
// The hidden states and token embeddings have one row per
// batch element, as does allowed.
// Disallowed actions get exactly zero probability and the
// rest of the distribution is renormalized.
//
// The result has editops.NumActions entries per row.
func (p *Predictor) Apply(hidden, tokens anydiff.Res, allowed [][editops.NumActions]bool) anydiff.Res {
	rows := len(allowed)
	logits := anydiff.Add(p.HiddenTrans.Apply(hidden, rows), p.TokenTrans.Apply(tokens, rows))
	mask := make([]float64, 0, rows*editops.NumActions)
	for _, row := range allowed {
		for _, ok := range row {
			if ok {
				mask = append(mask, 0)
			} else {
				mask = append(mask, maskValue)
			}
		}
	}
	masked := anydiff.Add(logits, constRows(logits.Output().Creator(), mask))
	return anydiff.LogSoftmax(masked, editops.NumActions)
}

// Parameters returns the predictor's parameters.
func (p *Predictor) Parameters() []*anydiff.Var {
	res := append(p.HiddenTrans.Parameters(), p.TokenTrans.Parameters()...)
	return append(res, p.NoToken)
}

// SerializerType returns the unique ID used to serialize
// a Predictor with the serializer package.
func (p *Predictor) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.Predictor"
}

// Serialize serializes the Predictor.
func (p *Predictor) Serialize() ([]byte, error) {
	return serializer.SerializeAny(p.HiddenTrans, p.TokenTrans,
		&anyvecsave.S{Vector: p.NoToken.Vector})
}
