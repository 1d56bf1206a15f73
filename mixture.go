package editcap

import (
	"math"

	"github.com/gyq716/show-edit-tell/editops"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

type mixtureRes struct {
	Actions anydiff.Res
	Words   anydiff.Res
	Aligned []int
	OutVec  anyvec.Vector
	V       anydiff.VarSet
}

// logMixture combines action log-probabilities with the
// log of the generated word distribution into the log of
// the distribution over step outcomes.
//
// For each row, with π the action distribution, g the
// word distribution and p the aligned prior token, the
// outcome distribution has V+1 entries:
//
//     P(w) = (π_R + π_I)·g_w + π_K·[w = p]   for w < V
//     P(V) = π_D
//
// where outcome V is a Delete, which emits no token.
// If p is editops.NoToken, nothing is copied.
func logMixture(actions, words anydiff.Res, aligned []int) anydiff.Res {
	rows := len(aligned)
	vocab := words.Output().Len() / rows
	acts := vectorFloats(actions.Output())
	gen := vectorFloats(words.Output())

	out := make([]float64, 0, rows*(vocab+1))
	for i, p := range aligned {
		a := acts[i*editops.NumActions : (i+1)*editops.NumActions]
		emit := addLogs(a[editops.Replace], a[editops.Insert])
		for _, g := range gen[i*vocab : (i+1)*vocab] {
			out = append(out, emit+g)
		}
		if p != editops.NoToken {
			idx := i*(vocab+1) + p
			out[idx] = addLogs(out[idx], a[editops.Keep])
		}
		out = append(out, a[editops.Delete])
	}

	c := words.Output().Creator()
	return &mixtureRes{
		Actions: actions,
		Words:   words,
		Aligned: aligned,
		OutVec:  c.MakeVectorData(c.MakeNumericList(out)),
		V:       anydiff.MergeVarSets(actions.Vars(), words.Vars()),
	}
}

func (m *mixtureRes) Output() anyvec.Vector {
	return m.OutVec
}

func (m *mixtureRes) Vars() anydiff.VarSet {
	return m.V
}

func (m *mixtureRes) Propagate(u anyvec.Vector, g anydiff.Grad) {
	rows := len(m.Aligned)
	vocab := m.Words.Output().Len() / rows
	acts := vectorFloats(m.Actions.Output())
	gen := vectorFloats(m.Words.Output())
	upstream := vectorFloats(u)

	actDown := make([]float64, len(acts))
	genDown := make([]float64, len(gen))
	for i, p := range m.Aligned {
		a := acts[i*editops.NumActions : (i+1)*editops.NumActions]
		da := actDown[i*editops.NumActions : (i+1)*editops.NumActions]
		dg := genDown[i*vocab : (i+1)*vocab]
		up := upstream[i*(vocab+1) : (i+1)*(vocab+1)]

		emit := addLogs(a[editops.Replace], a[editops.Insert])
		var emitDown float64
		for w, x := range up[:vocab] {
			if w == p {
				genPart, keepPart := addLogsDeriv(emit+gen[i*vocab+w], a[editops.Keep], x)
				dg[w] = genPart
				emitDown += genPart
				da[editops.Keep] = keepPart
			} else {
				dg[w] = x
				emitDown += x
			}
		}
		da[editops.Replace], da[editops.Insert] = addLogsDeriv(a[editops.Replace],
			a[editops.Insert], emitDown)
		da[editops.Delete] = up[vocab]
	}

	c := u.Creator()
	if g.Intersects(m.Actions.Vars()) {
		m.Actions.Propagate(c.MakeVectorData(c.MakeNumericList(actDown)), g)
	}
	if g.Intersects(m.Words.Vars()) {
		m.Words.Propagate(c.MakeVectorData(c.MakeNumericList(genDown)), g)
	}
}

// addLogs computes log(exp(a) + exp(b)).
func addLogs(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	} else if math.IsInf(b, -1) {
		return a
	}
	normalizer := math.Max(a, b)
	return math.Log(math.Exp(a-normalizer)+math.Exp(b-normalizer)) + normalizer
}

// addLogsDeriv computes the partial derivatives of addLogs
// scaled by an upstream derivative.
func addLogsDeriv(a, b, upstream float64) (da, db float64) {
	if math.IsInf(a, -1) && math.IsInf(b, -1) {
		return
	}
	sum := addLogs(a, b)
	return upstream * math.Exp(a-sum), upstream * math.Exp(b-sum)
}
