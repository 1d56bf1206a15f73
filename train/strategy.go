// Package train fits caption-editing models, first with
// teacher-forced cross-entropy and then with self-critical
// sequence training.
package train

import (
	"math/rand"

	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/decode"
	"github.com/gyq716/show-edit-tell/editops"
	"github.com/gyq716/show-edit-tell/reward"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anydiff"
)

// A Strategy computes the loss of a batch.
//
// Strategies return *editcap.InputError for malformed
// examples before doing any computation on them.
type Strategy interface {
	Loss(m *editcap.Model, batch []*editcap.Example) (anydiff.Res, error)
}

// OracleOps computes the edit script which turns an
// example's prior caption into a reference caption.
// Operations after the end token is emitted are dropped.
func OracleOps(e *editcap.Example, ref []int) []editops.Op {
	target := ref[1:vocab.Length(ref)]
	ops := editops.Align(e.Editable(), target)
	for i, op := range ops {
		if op.Action.Emits() && op.Token == vocab.EndIndex {
			return ops[:i+1]
		}
	}
	return ops
}

// validateBatch checks every example of a batch, so that
// a bad example is reported before any work is done.
func validateBatch(m *editcap.Model, batch []*editcap.Example) error {
	for _, e := range batch {
		if err := m.Validate(e); err != nil {
			return err
		}
		if len(e.References) == 0 {
			return &editcap.InputError{Field: "references", Reason: "none given"}
		}
	}
	return nil
}

// CrossEntropy trains with teacher forcing along the oracle
// edit script of each reference.
//
// The loss is the mean negative log-likelihood of the
// oracle outcomes over every step in the batch, plus
// optional auxiliary terms.
type CrossEntropy struct {
	// ActionWeight scales the mean negative log-likelihood
	// of the oracle edit actions, which supervises the
	// action predictor directly.
	ActionWeight float64

	// AttentionReg scales the doubly stochastic attention
	// penalty: the mean over sequences and valid regions
	// of (1 - total attention on the region)^2.
	AttentionReg float64

	// AllReferences trains on every reference of each
	// example rather than the first one.
	AllReferences bool
}

// Loss computes the cross-entropy loss for a batch.
func (c *CrossEntropy) Loss(m *editcap.Model, batch []*editcap.Example) (anydiff.Res, error) {
	if err := validateBatch(m, batch); err != nil {
		return nil, err
	}
	var trajs []*editcap.Trajectory
	var valid []int
	var steps int
	for _, e := range batch {
		src, err := m.NewSource(e)
		if err != nil {
			return nil, err
		}
		refs := e.References
		if !c.AllReferences {
			refs = refs[:1]
		}
		for _, ref := range refs {
			traj := m.Unroll(src, editcap.Forced(OracleOps(e, ref)), 1)
			trajs = append(trajs, traj)
			valid = append(valid, e.Regions.Valid)
			steps += traj.Steps()
		}
	}

	var total anydiff.Res
	for i, traj := range trajs {
		weights := make([]float64, traj.Res.Output().Len())
		for t, o := range traj.Outcomes {
			weights[traj.OutcomeIndex(t, o)] = -1 / float64(steps)
			if c.ActionWeight != 0 {
				weights[traj.ActionIndex(t, traj.Actions[t])] = -c.ActionWeight / float64(steps)
			}
		}
		cr := traj.Res.Output().Creator()
		wRes := anydiff.NewConst(cr.MakeVectorData(cr.MakeNumericList(weights)))
		var loss anydiff.Res
		if c.AttentionReg == 0 {
			loss = anydiff.Sum(anydiff.Mul(traj.Res, wRes))
		} else {
			scale := c.AttentionReg / float64(len(trajs)*valid[i])
			loss = anydiff.Pool(traj.Res, func(r anydiff.Res) anydiff.Res {
				nll := anydiff.Sum(anydiff.Mul(r, wRes))
				return anydiff.Add(nll, attentionPenalty(traj, r, valid[i], scale))
			})
		}
		if total == nil {
			total = loss
		} else {
			total = anydiff.Add(total, loss)
		}
	}
	return total, nil
}

// attentionPenalty computes scale*sum((1-a_n)^2) over the
// first valid regions, where a_n is the attention a region
// received over the whole trajectory.
func attentionPenalty(traj *editcap.Trajectory, r anydiff.Res, valid int,
	scale float64) anydiff.Res {
	var totals anydiff.Res
	for t := 0; t < traj.Steps(); t++ {
		start := traj.AttentionIndex(t, 0)
		att := anydiff.Slice(r, start, start+valid)
		if totals == nil {
			totals = att
		} else {
			totals = anydiff.Add(totals, att)
		}
	}
	c := r.Output().Creator()
	diff := anydiff.AddScalar(anydiff.Scale(totals, c.MakeNumeric(-1)), c.MakeNumeric(1))
	return anydiff.Pool(diff, func(diff anydiff.Res) anydiff.Res {
		return anydiff.Scale(anydiff.Sum(anydiff.Mul(diff, diff)), c.MakeNumeric(scale))
	})
}

// SelfCritical trains on sampled captions, using the
// reward of the greedy caption as a baseline.
//
// The loss of an image is
//
//     -(r(sample) - r(greedy)) * log P(sample)
//
// and the batch loss is the mean over images.
type SelfCritical struct {
	Scorer *reward.Safe

	// Rand is used for sampling.
	// If it is nil, the global source is used.
	Rand *rand.Rand

	// Temperature is used for sampling.
	// Zero is treated like one.
	Temperature float64

	// After every Loss, these are set to the mean rewards
	// of the sampled and greedy captions.
	LastSampleReward   float64
	LastBaselineReward float64
}

// Loss computes the self-critical loss for a batch.
func (s *SelfCritical) Loss(m *editcap.Model, batch []*editcap.Example) (anydiff.Res, error) {
	if err := validateBatch(m, batch); err != nil {
		return nil, err
	}
	var total anydiff.Res
	var sampleSum, baselineSum float64
	for _, e := range batch {
		src, err := m.NewSource(e)
		if err != nil {
			return nil, err
		}
		traj := m.Unroll(src, editcap.Sampler{Prior: src.Prior, Rand: s.Rand}, s.Temperature)

		dropout := m.Dropout.Enabled
		m.Dropout.Enabled = false
		baseline := decode.Greedy(m, src, 1)
		m.Dropout.Enabled = dropout

		sampleReward := s.Scorer.Score(traj.Tokens, e.References)
		baselineReward := s.Scorer.Score(baseline.Tokens, e.References)
		sampleSum += sampleReward
		baselineSum += baselineReward
		adv := reward.Advantage(sampleReward, baselineReward)

		weights := make([]float64, traj.Res.Output().Len())
		for t, o := range traj.Outcomes {
			weights[traj.OutcomeIndex(t, o)] = -adv / float64(len(batch))
		}
		c := traj.Res.Output().Creator()
		wRes := anydiff.NewConst(c.MakeVectorData(c.MakeNumericList(weights)))
		loss := anydiff.Sum(anydiff.Mul(traj.Res, wRes))
		if total == nil {
			total = loss
		} else {
			total = anydiff.Add(total, loss)
		}
	}
	s.LastSampleReward = sampleSum / float64(len(batch))
	s.LastBaselineReward = baselineSum / float64(len(batch))
	return total, nil
}
