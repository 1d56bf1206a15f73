package editcap

import (
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestLSTMStepProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	r := rand.New(rand.NewSource(4))
	block := NewLSTM(c, 3, 2, r)
	if len(block.Parameters()) != 16 {
		t.Errorf("expected 16 parameters, but got %d", len(block.Parameters()))
	}
	in := randomVar(c, r, 2*3)
	hidden := randomVar(c, r, 2*2)
	cell := randomVar(c, r, 2*2)
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return block.Step(in, State{Hidden: hidden, Cell: cell}, 2)
		},
		V:     append([]*anydiff.Var{in, hidden, cell}, block.Parameters()...),
		Prec:  testPrecision,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
}

func TestEncoderProp(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	r := rand.New(rand.NewSource(5))
	enc := NewEncoder(c, 3, 2, r)
	embedded := randomVar(c, r, 4*3)
	ch := anydifftest.ResChecker{
		F: func() anydiff.Res {
			return enc.Encode(embedded, 4)
		},
		V:     append([]*anydiff.Var{embedded}, enc.Parameters()...),
		Prec:  testPrecision,
		Delta: testPrecision,
	}
	ch.FullCheck(t)
	if n := enc.Encode(embedded, 4).Output().Len(); n != 4*enc.OutSize() {
		t.Errorf("expected %d outputs but got %d", 4*enc.OutSize(), n)
	}
}

func randomVar(c anyvec.Creator, r *rand.Rand, n int) *anydiff.Var {
	v := c.MakeVector(n)
	anyvec.Rand(v, anyvec.Normal, r)
	return anydiff.NewVar(v)
}
