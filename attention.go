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
	var a Attention
	serializer.RegisterTypedDeserializer(a.SerializerType(), DeserializeAttention)
}

// Attention is an additive attention mechanism.
//
// A query (typically a decoder hidden state) scores every
// key with
//
//     e_n = Score(tanh(KeyTrans(k_n) + QueryTrans(q)))
//
// and the scores are normalized with a softmax over the
// keys.
// Key projections do not depend on the query, so they are
// computed once per image with Keys.
type Attention struct {
	KeyTrans   *anynet.FC
	QueryTrans *anynet.FC
	Score      *anynet.FC
}

// DeserializeAttention deserializes an Attention.
func DeserializeAttention(d []byte) (*Attention, error) {
	var a Attention
	err := serializer.DeserializeAny(d, &a.KeyTrans, &a.QueryTrans, &a.Score)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Attention", err)
	}
	return &a, nil
}

// NewAttention creates a randomized Attention.
func NewAttention(c anyvec.Creator, keySize, querySize, hidden int, r *rand.Rand) *Attention {
	return &Attention{
		KeyTrans:   newFC(c, keySize, hidden, r),
		QueryTrans: newFC(c, querySize, hidden, r),
		Score:      newFC(c, hidden, 1, r),
	}
}

// Keys projects n keys into the shared scoring space.
func (a *Attention) Keys(keys anydiff.Res, n int) anydiff.Res {
	return a.KeyTrans.Apply(keys, n)
}

// Weights computes the attention distribution of every
// query row over the n projected keys.
//
// The mask has one entry per key: 0 for keys that may be
// attended to, maskValue for padding.
// A nil mask allows every key.
// Masked keys get exactly zero weight.
//
// The result has one row of n weights per query.
func (a *Attention) Weights(projected anydiff.Res, mask []float64, query anydiff.Res,
	rows int) anydiff.Res {
	n := projected.Output().Len() / a.KeyTrans.OutCount
	c := query.Output().Creator()
	var maskRes anydiff.Res
	if mask != nil {
		maskRes = constRows(c, mask)
	}
	queries := a.QueryTrans.Apply(query, rows)
	return poolAll([]anydiff.Res{projected, queries},
		func(pooled []anydiff.Res) anydiff.Res {
			projected, queries := pooled[0], pooled[1]
			hidden := a.KeyTrans.OutCount
			var weights []anydiff.Res
			for i := 0; i < rows; i++ {
				q := anydiff.Slice(queries, i*hidden, (i+1)*hidden)
				joint := anydiff.Tanh(anydiff.AddRepeated(projected, q))
				scores := a.Score.Apply(joint, n)
				if maskRes != nil {
					scores = anydiff.Add(scores, maskRes)
				}
				weights = append(weights, anydiff.Exp(anydiff.LogSoftmax(scores, n)))
			}
			return anydiff.Concat(weights...)
		})
}

// Context computes the weighted sum of n keys for each row
// of weights.
func (a *Attention) Context(weights, keys anydiff.Res, rows int) anydiff.Res {
	n := weights.Output().Len() / rows
	weightMat := &anydiff.Matrix{Data: weights, Rows: rows, Cols: n}
	keyMat := &anydiff.Matrix{Data: keys, Rows: n, Cols: keys.Output().Len() / n}
	return anydiff.MatMul(false, false, weightMat, keyMat).Data
}

// Parameters returns the parameters of the attention
// network.
func (a *Attention) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, l := range []*anynet.FC{a.KeyTrans, a.QueryTrans, a.Score} {
		res = append(res, l.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// an Attention with the serializer package.
func (a *Attention) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.Attention"
}

// Serialize serializes the Attention.
func (a *Attention) Serialize() ([]byte, error) {
	return serializer.SerializeAny(a.KeyTrans, a.QueryTrans, a.Score)
}
