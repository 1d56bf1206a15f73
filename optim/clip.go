package optim

import (
	"math"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// Norm computes the Euclidean norm of a whole gradient.
func Norm(g anydiff.Grad) float64 {
	var sum float64
	for _, v := range g {
		sum += numericFloat(v.Dot(v))
	}
	return math.Sqrt(sum)
}

// ClipNorm rescales a gradient in place so that its norm
// is at most max.
// It returns the norm before clipping.
// A max of 0 disables clipping.
func ClipNorm(g anydiff.Grad, max float64) float64 {
	norm := Norm(g)
	if max > 0 && norm > max {
		scaleGrad(g, max/norm)
	}
	return norm
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		panic("unsupported numeric type")
	}
}
