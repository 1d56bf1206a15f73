package decode

import (
	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/editops"
	"github.com/gyq716/show-edit-tell/vocab"
)

// A hypothesis is one step of a partial caption.
// The rest of the caption is found through Parent.
type hypothesis struct {
	// Parent is the arena index of the previous step, or -1
	// for the root.
	Parent int

	// Token is the emitted token, or editops.NoToken.
	Token  int
	Action editops.Action

	LastToken int
	Pointer   int
	Length    int
	LogProb   float64
	Finished  bool
}

// An arena stores every hypothesis created by a search.
// Hypotheses are never modified once added.
type arena []hypothesis

// newArena creates an arena holding the root hypothesis,
// which is just the start token.
func newArena() *arena {
	return &arena{{
		Parent:    -1,
		Token:     vocab.StartIndex,
		LastToken: vocab.StartIndex,
		Length:    1,
	}}
}

// Extend adds the extension of a hypothesis by an outcome,
// attributing the outcome to an action with the step's
// action probabilities.
// It returns the new hypothesis's index.
func (a *arena) Extend(m *editcap.Model, src *editcap.Source, parent, outcome int,
	logProb float64, probs [editops.NumActions]float64) int {
	p := (*a)[parent]
	token := outcome
	if outcome == m.DeleteOutcome() {
		token = editops.NoToken
	}
	action, ptr := editops.Advance(src.Prior, p.Pointer, token, probs)
	h := hypothesis{
		Parent:    parent,
		Token:     token,
		Action:    action,
		LastToken: p.LastToken,
		Pointer:   ptr,
		Length:    p.Length,
		LogProb:   logProb,
	}
	if action.Emits() {
		h.LastToken = token
		h.Length++
		h.Finished = token == vocab.EndIndex
	}
	*a = append(*a, h)
	return len(*a) - 1
}

// Done returns true if a hypothesis cannot be extended.
func (a arena) Done(m *editcap.Model, idx int) bool {
	return a[idx].Finished || a[idx].Length >= m.Config.MaxLength()
}

// Result rebuilds a caption by following parent indices.
func (a arena) Result(idx int) *Result {
	h := a[idx]
	res := &Result{LogProb: h.LogProb, Finished: h.Finished}
	res.Tokens = make([]int, h.Length)
	pos := h.Length - 1
	for i := idx; i >= 0; i = a[i].Parent {
		if a[i].Parent >= 0 {
			res.Actions = append(res.Actions, a[i].Action)
		}
		if a[i].Token != editops.NoToken {
			res.Tokens[pos] = a[i].Token
			pos--
		}
	}
	for i, j := 0, len(res.Actions)-1; i < j; i, j = i+1, j-1 {
		res.Actions[i], res.Actions[j] = res.Actions[j], res.Actions[i]
	}
	return res
}
