package editcap

import (
	"math"
	"math/rand"

	"github.com/gyq716/show-edit-tell/editops"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anydiff"
)

// A Choice is the outcome picked at one decoding step.
type Choice struct {
	// Outcome is a token index, or Model.DeleteOutcome.
	Outcome int

	// Action is the edit action the outcome is attributed
	// to.
	Action editops.Action

	// Last is set when no further steps should be taken,
	// even if the caption has not ended.
	Last bool
}

// A Chooser picks the outcome of every step of a
// single-row decode.
type Chooser interface {
	Choose(step, ptr int, out *StepOutput) Choice
}

// Forced replays a fixed edit script, as in teacher
// forcing.
type Forced []editops.Op

// Choose returns the step'th operation of the script.
func (f Forced) Choose(step, ptr int, out *StepOutput) Choice {
	op := f[step]
	res := Choice{Outcome: op.Token, Action: op.Action, Last: step+1 == len(f)}
	if op.Action == editops.Delete {
		res.Outcome = out.NumOutcomes - 1
	}
	return res
}

// Greedy picks the most likely outcome at every step.
// Ties go to the lowest outcome index.
type Greedy struct {
	Prior []int
}

// Choose picks the most likely outcome.
func (g Greedy) Choose(step, ptr int, out *StepOutput) Choice {
	logs := out.OutcomeRows()[0]
	best := 0
	for i, x := range logs {
		if x > logs[best] {
			best = i
		}
	}
	return choiceFor(g.Prior, ptr, best, out)
}

// Sampler draws every outcome from the model's
// distribution.
type Sampler struct {
	Prior []int

	// Rand is the source of randomness.
	// If it is nil, the global source is used.
	Rand *rand.Rand
}

// Choose samples an outcome.
func (s Sampler) Choose(step, ptr int, out *StepOutput) Choice {
	logs := out.OutcomeRows()[0]
	var x float64
	if s.Rand != nil {
		x = s.Rand.Float64()
	} else {
		x = rand.Float64()
	}
	outcome := -1
	for i, l := range logs {
		if Masked(l) {
			continue
		}
		outcome = i
		x -= math.Exp(l)
		if x < 0 {
			break
		}
	}
	return choiceFor(s.Prior, ptr, outcome, out)
}

func choiceFor(prior []int, ptr, outcome int, out *StepOutput) Choice {
	token := outcome
	if outcome == out.NumOutcomes-1 {
		token = editops.NoToken
	}
	action, _ := editops.Advance(prior, ptr, token, out.ActionProbs()[0])
	return Choice{Outcome: outcome, Action: action}
}

// A Trajectory is a differentiable record of one decode.
//
// Res stores one record per step.
// Each record holds the step's outcome log-probabilities,
// then its action log-probabilities, then its attention
// weights.
type Trajectory struct {
	Res        anydiff.Res
	RecordSize int

	NumOutcomes int
	NumRegions  int

	Outcomes []int
	Actions  []editops.Action
	Pointers []int

	// Tokens is the decoded caption, starting with the
	// start token.
	Tokens []int

	// LogProb is the total log-probability of the chosen
	// outcomes.
	LogProb float64

	// Finished is set if the caption emitted an end token.
	Finished bool
}

// Steps returns the number of steps taken.
func (t *Trajectory) Steps() int {
	return len(t.Outcomes)
}

// OutcomeIndex returns the index in Res of an outcome's
// log-probability at a step.
func (t *Trajectory) OutcomeIndex(step, outcome int) int {
	return step*t.RecordSize + outcome
}

// ActionIndex returns the index in Res of an action's
// log-probability at a step.
func (t *Trajectory) ActionIndex(step int, a editops.Action) int {
	return step*t.RecordSize + t.NumOutcomes + int(a)
}

// AttentionIndex returns the index in Res of the attention
// weight on a region at a step.
func (t *Trajectory) AttentionIndex(step, region int) int {
	return step*t.RecordSize + t.NumOutcomes + editops.NumActions + region
}

// Unroll decodes a single caption, letting the chooser
// pick every outcome.
//
// Decoding ends when an end token is emitted, when the
// caption reaches the model's maximum length, or when the
// chooser marks a choice as the last.
// Each step's previous token is the last emitted token.
func (m *Model) Unroll(src *Source, chooser Chooser, temperature float64) *Trajectory {
	res := &Trajectory{
		NumOutcomes: m.Config.VocabSize + 1,
		NumRegions:  src.Regions.Count,
		Tokens:      []int{vocab.StartIndex},
	}
	res.RecordSize = res.NumOutcomes + editops.NumActions + res.NumRegions
	res.Res = src.Pool(func(src *Source) anydiff.Res {
		u := &unroller{
			model:       m,
			src:         src,
			chooser:     chooser,
			temperature: temperature,
			traj:        res,
		}
		return u.unroll(m.Init(src, 1), 0)
	})
	return res
}

type unroller struct {
	model       *Model
	src         *Source
	chooser     Chooser
	temperature float64
	traj        *Trajectory
}

func (u *unroller) unroll(s State, ptr int) anydiff.Res {
	t := u.traj
	out := u.model.Step(u.src, s, &StepInput{
		Tokens:      []int{t.Tokens[len(t.Tokens)-1]},
		Pointers:    []int{ptr},
		Temperature: u.temperature,
	})
	return anydiff.Pool(out.Packed, func(packed anydiff.Res) anydiff.Res {
		pooled := *out
		pooled.Packed = packed
		choice := u.chooser.Choose(t.Steps(), ptr, &pooled)

		logs := pooled.OutcomeRows()[0]
		t.LogProb += logs[choice.Outcome]
		t.Outcomes = append(t.Outcomes, choice.Outcome)
		t.Actions = append(t.Actions, choice.Action)
		t.Pointers = append(t.Pointers, ptr)
		if choice.Action.Consumes() {
			ptr++
		}
		if choice.Action.Emits() {
			t.Tokens = append(t.Tokens, choice.Outcome)
			t.Finished = choice.Outcome == vocab.EndIndex
		}

		record := anydiff.Slice(packed, pooled.stateEnd(), packed.Output().Len())
		if choice.Last || t.Finished || len(t.Tokens) >= u.model.Config.MaxLength() {
			return record
		}
		return anydiff.Concat(record, u.unroll(pooled.NextState(), ptr))
	})
}
