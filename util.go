package editcap

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
)

// maskValue is added to the logits of forbidden entries.
// Its exponential underflows to exactly zero.
const maskValue = -1e30

// Masked reports whether a log-probability belongs to an
// outcome which was ruled out, such as a Delete past the
// end of the prior caption.
func Masked(logProb float64) bool {
	return logProb <= maskValue/2
}

// newFC creates a randomized FC layer which draws its
// weights from r (or the global source if r is nil).
func newFC(c anyvec.Creator, in, out int, r *rand.Rand) *anynet.FC {
	res := anynet.NewFCZero(c, in, out)
	randomize(res.Weights.Vector, in, r)
	return res
}

// randomize fills v with normal noise scaled for a fan-in
// of in.
func randomize(v anyvec.Vector, in int, r *rand.Rand) {
	anyvec.Rand(v, anyvec.Normal, r)
	v.Scale(v.Creator().MakeNumeric(1 / math.Sqrt(float64(in))))
}

// allParameters joins the parameters of every part which
// is an anynet.Parameterizer, in order.
func allParameters(parts ...interface{}) []*anydiff.Var {
	var res []*anydiff.Var
	for _, p := range parts {
		if p, ok := p.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// poolAll pools every result in rs so that f may use each
// of them any number of times.
func poolAll(rs []anydiff.Res, f func(rs []anydiff.Res) anydiff.Res) anydiff.Res {
	if len(rs) == 0 {
		return f(nil)
	}
	return anydiff.Pool(rs[0], func(first anydiff.Res) anydiff.Res {
		return poolAll(rs[1:], func(rest []anydiff.Res) anydiff.Res {
			return f(append([]anydiff.Res{first}, rest...))
		})
	})
}

// concatRows joins batches of vectors row by row.
// Each part stores rows equally-sized vectors.
func concatRows(rows int, parts ...anydiff.Res) anydiff.Res {
	if rows == 1 {
		return anydiff.Concat(parts...)
	}
	return poolAll(parts, func(parts []anydiff.Res) anydiff.Res {
		var res []anydiff.Res
		for i := 0; i < rows; i++ {
			for _, p := range parts {
				size := p.Output().Len() / rows
				res = append(res, anydiff.Slice(p, i*size, (i+1)*size))
			}
		}
		return anydiff.Concat(res...)
	})
}

// repeatRows stacks n copies of a vector.
func repeatRows(r anydiff.Res, n int) anydiff.Res {
	if n == 1 {
		return r
	}
	return anydiff.Pool(r, func(r anydiff.Res) anydiff.Res {
		reps := make([]anydiff.Res, n)
		for i := range reps {
			reps[i] = r
		}
		return anydiff.Concat(reps...)
	})
}

// constRows creates a constant from a flat list of
// numbers.
func constRows(c anyvec.Creator, data []float64) anydiff.Res {
	return anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(data)))
}

// vectorFloats gets the components of a vector as a
// []float64.
func vectorFloats(v anyvec.Vector) []float64 {
	switch d := v.Data().(type) {
	case []float64:
		return d
	case []float32:
		res := make([]float64, len(d))
		for i, x := range d {
			res[i] = float64(x)
		}
		return res
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", d))
	}
}
