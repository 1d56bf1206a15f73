package editcap

import (
	"math"

	"github.com/gyq716/show-edit-tell/editops"
	"github.com/unixpickle/anydiff"
)

// StepInput describes a batch of rows to advance by one
// decoding step.
// Every row decodes the same Source.
type StepInput struct {
	// Tokens are the previously emitted tokens, one per row.
	Tokens []int

	// Pointers are the prior caption pointers, one per row.
	Pointers []int

	// Temperature divides the word logits.
	// Zero is treated like one.
	Temperature float64
}

// StepOutput is the result of a decoding step.
//
// Everything the step computed is stored in Packed, so
// that callers can pool it once and slice out the parts
// they need:
//
//     [hidden][cell][outcomes][actions][attention]
//
// with every part stored row by row.
type StepOutput struct {
	Packed anydiff.Res

	Rows        int
	StateSize   int
	NumOutcomes int
	NumRegions  int

	// Aligned holds the prior token under each row's
	// pointer, or editops.NoToken.
	Aligned []int
}

// NextState extracts the recurrent state after the step.
func (s *StepOutput) NextState() State {
	return UnpackState(anydiff.Slice(s.Packed, 0, s.stateEnd()))
}

// LogOutcomes extracts the outcome log-probabilities, with
// NumOutcomes entries per row.
func (s *StepOutput) LogOutcomes() anydiff.Res {
	return anydiff.Slice(s.Packed, s.stateEnd(), s.outcomeEnd())
}

// LogActions extracts the edit action log-probabilities,
// with editops.NumActions entries per row.
func (s *StepOutput) LogActions() anydiff.Res {
	return anydiff.Slice(s.Packed, s.outcomeEnd(), s.actionEnd())
}

// Attention extracts the visual attention weights, with
// NumRegions entries per row.
func (s *StepOutput) Attention() anydiff.Res {
	return anydiff.Slice(s.Packed, s.actionEnd(), s.Packed.Output().Len())
}

// OutcomeRows returns the numeric outcome log-probabilities
// of every row.
func (s *StepOutput) OutcomeRows() [][]float64 {
	data := vectorFloats(s.Packed.Output())[s.stateEnd():s.outcomeEnd()]
	return splitRows(data, s.Rows)
}

// ActionProbs returns the numeric action probabilities of
// every row.
func (s *StepOutput) ActionProbs() [][editops.NumActions]float64 {
	data := vectorFloats(s.Packed.Output())[s.outcomeEnd():s.actionEnd()]
	res := make([][editops.NumActions]float64, s.Rows)
	for i := range res {
		for j := range res[i] {
			res[i][j] = math.Exp(data[i*editops.NumActions+j])
		}
	}
	return res
}

// AttentionRows returns the numeric attention weights of
// every row.
func (s *StepOutput) AttentionRows() [][]float64 {
	data := vectorFloats(s.Packed.Output())[s.actionEnd():]
	return splitRows(data, s.Rows)
}

func (s *StepOutput) stateEnd() int {
	return 2 * s.Rows * s.StateSize
}

func (s *StepOutput) outcomeEnd() int {
	return s.stateEnd() + s.Rows*s.NumOutcomes
}

func (s *StepOutput) actionEnd() int {
	return s.outcomeEnd() + s.Rows*editops.NumActions
}

// Init computes the initial state of rows sequences
// decoding the same source.
// It is derived from the mean of the valid region
// features.
func (m *Model) Init(src *Source, rows int) State {
	mean := anydiff.NewConst(src.Regions.Mean())
	return State{
		Hidden: repeatRows(anydiff.Tanh(m.InitHidden.Apply(mean, 1)), rows),
		Cell:   repeatRows(anydiff.Tanh(m.InitCell.Apply(mean, 1)), rows),
	}
}

// Step runs one decoding step for a batch of rows.
//
// The step attends over the image regions with the
// previous hidden state, predicts an edit action from that
// state and the aligned prior token, feeds the previous
// token, the visual context, and the action distribution
// through the LSTM, and mixes the resulting word
// distribution with a copy of the aligned token.
//
// Source results are used directly; wrap a sequence of
// steps in Source.Pool when gradients are needed.
func (m *Model) Step(src *Source, s State, in *StepInput) *StepOutput {
	rows := len(in.Tokens)
	if len(in.Pointers) != rows {
		panic("token and pointer counts differ")
	}
	res := &StepOutput{
		Rows:        rows,
		StateSize:   m.Config.HiddenSize,
		NumOutcomes: m.Config.VocabSize + 1,
		NumRegions:  src.Regions.Count,
		Aligned:     make([]int, rows),
	}
	allowed := make([][editops.NumActions]bool, rows)
	alignedEmbs := make([]anydiff.Res, rows)
	for i, ptr := range in.Pointers {
		res.Aligned[i] = editops.Aligned(src.Prior, ptr)
		allowed[i] = editops.Allowed(ptr, len(src.Prior))
		if res.Aligned[i] == editops.NoToken {
			alignedEmbs[i] = m.Predictor.NoToken
		} else {
			alignedEmbs[i] = m.Embedding.Row(res.Aligned[i])
		}
	}

	res.Packed = anydiff.Pool(s.Hidden, func(hidden anydiff.Res) anydiff.Res {
		weights := m.Attention.Weights(src.Keys, src.Mask, hidden, rows)
		logActs := m.Predictor.Apply(hidden, anydiff.Concat(alignedEmbs...), allowed)
		return poolAll([]anydiff.Res{weights, logActs}, func(p []anydiff.Res) anydiff.Res {
			weights, logActs := p[0], p[1]
			inputs := []anydiff.Res{
				m.Embedding.Embed(in.Tokens),
				m.Attention.Context(weights, src.Features, rows),
			}
			if m.Encoder != nil {
				capWeights := m.CaptionAttention.Weights(src.EncodedKeys, nil, hidden, rows)
				inputs = append(inputs,
					m.CaptionAttention.Context(capWeights, src.Encoded, rows))
			}
			inputs = append(inputs, anydiff.Exp(logActs))
			lstmIn := concatRows(rows, inputs...)
			next := m.Cell.Step(lstmIn, State{Hidden: hidden, Cell: s.Cell}, rows)
			return anydiff.Pool(next, func(next anydiff.Res) anydiff.Res {
				newHidden := UnpackState(next).Hidden
				logits := m.Output.Apply(m.Dropout.Apply(newHidden, rows), rows)
				if t := in.Temperature; t != 0 && t != 1 {
					c := logits.Output().Creator()
					logits = anydiff.Scale(logits, c.MakeNumeric(1/t))
				}
				words := anydiff.LogSoftmax(logits, m.Config.VocabSize)
				outcomes := logMixture(logActs, words, res.Aligned)
				return anydiff.Concat(next, outcomes, logActs, weights)
			})
		})
	})
	return res
}

func splitRows(data []float64, rows int) [][]float64 {
	size := len(data) / rows
	res := make([][]float64, rows)
	for i := range res {
		res[i] = data[i*size : (i+1)*size]
	}
	return res
}
