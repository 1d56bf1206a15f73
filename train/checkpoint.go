package train

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/optim"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Checkpoint
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCheckpoint)
}

// A Checkpoint is the complete state of a training run
// between two batches.
//
// Samples are not saved, so resuming in the middle of an
// epoch runs the remaining batches over the sample list in
// its current order rather than the order the interrupted
// epoch was shuffled into.
type Checkpoint struct {
	Model     *editcap.Model
	Optimizer *optim.State

	// Rater is the learning rate schedule, if the trainer's
	// Rater can be serialized.
	Rater serializer.Serializer

	Epoch      int
	Batch      int
	NumBatches int

	BestScore              float64
	EpochsSinceImprovement int
}

// DeserializeCheckpoint deserializes a Checkpoint.
func DeserializeCheckpoint(d []byte) (*Checkpoint, error) {
	var res Checkpoint
	var epoch, batch, numBatches, stale serializer.Int
	var best serializer.Float64
	err := serializer.DeserializeAny(d, &res.Model, &res.Optimizer, &res.Rater, &epoch,
		&batch, &numBatches, &best, &stale)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Checkpoint", err)
	}
	if _, ok := res.Rater.(serializer.Bytes); ok {
		res.Rater = nil
	}
	res.Epoch = int(epoch)
	res.Batch = int(batch)
	res.NumBatches = int(numBatches)
	res.BestScore = float64(best)
	res.EpochsSinceImprovement = int(stale)
	return &res, nil
}

// SerializerType returns the unique ID used to serialize
// a Checkpoint with the serializer package.
func (c *Checkpoint) SerializerType() string {
	return "github.com/gyq716/show-edit-tell/train.Checkpoint"
}

// Serialize serializes the Checkpoint.
func (c *Checkpoint) Serialize() ([]byte, error) {
	opt := c.Optimizer
	if opt == nil {
		opt = &optim.State{}
	}
	rater := c.Rater
	if rater == nil {
		rater = serializer.Bytes(nil)
	}
	return serializer.SerializeAny(c.Model, opt, rater, serializer.Int(c.Epoch),
		serializer.Int(c.Batch), serializer.Int(c.NumBatches),
		serializer.Float64(c.BestScore), serializer.Int(c.EpochsSinceImprovement))
}

// Checkpoint captures the trainer's state.
func (t *Trainer) Checkpoint(best float64, sinceImprovement int) (*Checkpoint, error) {
	res := &Checkpoint{
		Model:                  t.Model,
		Epoch:                  t.Epoch,
		Batch:                  t.Batch,
		NumBatches:             t.NumBatches,
		BestScore:              best,
		EpochsSinceImprovement: sinceImprovement,
	}
	if s, ok := t.Rater.(serializer.Serializer); ok {
		res.Rater = s
	}
	if t.Optimizer != nil {
		state, err := t.Optimizer.State(t.Model.Parameters())
		if err != nil {
			return nil, essentials.AddCtx("checkpoint", err)
		}
		res.Optimizer = state
	}
	return res, nil
}

// Restore resumes from a checkpoint, replacing the
// trainer's model.
// If the checkpoint has a learning rate schedule, it also
// replaces the trainer's Rater.
func (t *Trainer) Restore(c *Checkpoint) error {
	var rater anysgd.Rater
	if c.Rater != nil {
		var ok bool
		rater, ok = c.Rater.(anysgd.Rater)
		if !ok {
			return fmt.Errorf("restore: %T is not a rater", c.Rater)
		}
	}
	if t.Optimizer != nil && c.Optimizer != nil {
		if err := t.Optimizer.SetState(c.Model.Parameters(), c.Optimizer); err != nil {
			return essentials.AddCtx("restore", err)
		}
	}
	if rater != nil {
		t.Rater = rater
	}
	t.Model = c.Model
	t.Epoch = c.Epoch
	t.Batch = c.Batch
	t.NumBatches = c.NumBatches
	return nil
}

// A FileCheckpointer saves checkpoints to a directory.
//
// The latest checkpoint is kept in Name, and the best one
// in a copy prefixed with BEST_.
type FileCheckpointer struct {
	Dir string

	// Name is the checkpoint file name.
	// If it is empty, "checkpoint" is used.
	Name string
}

// Save writes a checkpoint, and also writes it as the best
// checkpoint if best is set.
func (f *FileCheckpointer) Save(c *Checkpoint, best bool) error {
	data, err := serializer.SerializeAny(c)
	if err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	if err := writeFile(f.path(false), data); err != nil {
		return essentials.AddCtx("save checkpoint", err)
	}
	if best {
		if err := writeFile(f.path(true), data); err != nil {
			return essentials.AddCtx("save checkpoint", err)
		}
	}
	return nil
}

// Load reads the latest checkpoint.
func (f *FileCheckpointer) Load() (*Checkpoint, error) {
	return f.load(false)
}

// LoadBest reads the best checkpoint.
func (f *FileCheckpointer) LoadBest() (*Checkpoint, error) {
	return f.load(true)
}

// Resume loads the latest checkpoint and restores t from
// it.
func (f *FileCheckpointer) Resume(t *Trainer) (*Checkpoint, error) {
	c, err := f.Load()
	if err != nil {
		return nil, err
	}
	if err := t.Restore(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (f *FileCheckpointer) load(best bool) (*Checkpoint, error) {
	data, err := ioutil.ReadFile(f.path(best))
	if err != nil {
		return nil, essentials.AddCtx("load checkpoint", err)
	}
	var res *Checkpoint
	if err := serializer.DeserializeAny(data, &res); err != nil {
		return nil, essentials.AddCtx("load checkpoint", err)
	}
	return res, nil
}

func (f *FileCheckpointer) path(best bool) string {
	name := f.Name
	if name == "" {
		name = "checkpoint"
	}
	if best {
		name = "BEST_" + name
	}
	return filepath.Join(f.Dir, name)
}

// writeFile replaces a file without leaving it partly
// written.
func writeFile(path string, data []byte) error {
	tmp := path + ".tmp"
	if err := ioutil.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
