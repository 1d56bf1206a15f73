package train

import (
	"fmt"
	"math"

	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/optim"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
)

// A DivergenceError is returned when a batch's loss is not
// finite.
// Training cannot continue past it.
type DivergenceError struct {
	// Batch is the index of the batch since training
	// started.
	Batch int
	Loss  float64
}

// Error returns the error message.
func (d *DivergenceError) Error() string {
	return fmt.Sprintf("training diverged at batch %d (loss %f)", d.Batch, d.Loss)
}

// A Trainer runs gradient descent on a Model with a
// Strategy.
//
// Nothing is held across batches, so the trainer may be
// checkpointed between any two batches.
type Trainer struct {
	Model    *editcap.Model
	Strategy Strategy

	// Optimizer, if non-nil, transforms every gradient.
	Optimizer optim.Optimizer

	// Rater determines the learning rate.
	Rater anysgd.Rater

	Samples SampleList

	// BatchSize is the mini-batch size.
	// If it is 0, every batch is the entire sample list.
	BatchSize int

	// ClipNorm, if non-zero, limits the norm of every
	// gradient before it is transformed.
	ClipNorm float64

	// StatusFunc, if non-nil, is called after every batch.
	StatusFunc func(batch int, loss float64)

	// Epoch counts the completed epochs.
	Epoch int

	// Batch counts the batches completed in the current
	// epoch.
	Batch int

	// NumBatches counts all batches completed so far.
	NumBatches int

	// LastLoss is the loss of the last batch.
	LastLoss float64
}

// Run trains for the given number of epochs.
//
// Training mode is enabled on the model while Run is
// active.
// If the current epoch was partly completed, only its
// remaining batches are run.
func (t *Trainer) Run(epochs int) error {
	if t.Samples.Len() == 0 {
		return fmt.Errorf("train: no samples")
	}
	t.Model.SetTraining(true)
	defer t.Model.SetTraining(false)

	batchSize := t.BatchSize
	if batchSize == 0 || batchSize > t.Samples.Len() {
		batchSize = t.Samples.Len()
	}
	numBatches := (t.Samples.Len() + batchSize - 1) / batchSize
	for i := 0; i < epochs; i++ {
		if t.Batch == 0 {
			anysgd.Shuffle(t.Samples)
		}
		for t.Batch < numBatches {
			start := t.Batch * batchSize
			end := start + batchSize
			if end > t.Samples.Len() {
				end = t.Samples.Len()
			}
			epoch := float64(t.Epoch) + float64(t.Batch)/float64(numBatches)
			if err := t.Step(t.Samples[start:end], t.Rater.Rate(epoch)); err != nil {
				return err
			}
			t.Batch++
			t.NumBatches++
			if t.StatusFunc != nil {
				t.StatusFunc(t.NumBatches-1, t.LastLoss)
			}
		}
		t.Batch = 0
		t.Epoch++
	}
	return nil
}

// Step runs one gradient step on a batch.
func (t *Trainer) Step(batch []*editcap.Example, rate float64) error {
	cost, err := t.Strategy.Loss(t.Model, batch)
	if err != nil {
		return err
	}
	loss := numericFloat(anyvec.Sum(cost.Output()))
	t.LastLoss = loss
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		return &DivergenceError{Batch: t.NumBatches, Loss: loss}
	}

	grad := anydiff.NewGrad(t.Model.Parameters()...)
	c := cost.Output().Creator()
	cost.Propagate(c.MakeVectorData(c.MakeNumericList([]float64{1})), grad)

	if t.ClipNorm != 0 {
		optim.ClipNorm(grad, t.ClipNorm)
	}
	if t.Optimizer != nil {
		grad = t.Optimizer.Transform(grad)
	}
	grad.Scale(c.MakeNumeric(-rate))
	grad.AddToVars()
	return nil
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	default:
		panic(fmt.Sprintf("unsupported numeric type: %T", n))
	}
}
