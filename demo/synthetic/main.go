// Command synthetic trains a caption editor on a toy
// dataset.
//
// Every image has a color and a shape, encoded in its
// region features.
// The prior captions describe the image with one word
// wrong, and the model learns to fix them: first with
// teacher forcing, then with self-critical training
// against CIDEr.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"strings"

	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/decode"
	"github.com/gyq716/show-edit-tell/features"
	"github.com/gyq716/show-edit-tell/optim"
	"github.com/gyq716/show-edit-tell/reward"
	"github.com/gyq716/show-edit-tell/train"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/essentials"
)

var (
	Colors = []string{"red", "green", "blue", "yellow"}
	Shapes = []string{"circle", "square", "triangle"}
)

const regionsPerImage = 4

func main() {
	var numImages int
	var xeEpochs, scstEpochs int
	var batchSize int
	var beamWidth int
	var stepSize float64
	var checkpointDir string
	var resume bool
	var optimizer string
	var embeddingsPath string
	var freezeEmbeddings bool

	flag.IntVar(&numImages, "images", 200, "number of training images")
	flag.IntVar(&xeEpochs, "xe-epochs", 20, "cross-entropy epochs")
	flag.IntVar(&scstEpochs, "scst-epochs", 5, "self-critical epochs")
	flag.IntVar(&batchSize, "batch", 16, "mini-batch size")
	flag.IntVar(&beamWidth, "beam", 3, "beam width for evaluation")
	flag.Float64Var(&stepSize, "step", 0.005, "initial learning rate")
	flag.StringVar(&checkpointDir, "checkpoints", "", "checkpoint directory (optional)")
	flag.BoolVar(&resume, "resume", false, "resume from the latest checkpoint")
	flag.StringVar(&optimizer, "optimizer", "adam", "adam, rmsprop, or momentum")
	flag.StringVar(&embeddingsPath, "embeddings", "", "pretrained word vectors (optional)")
	flag.BoolVar(&freezeEmbeddings, "freeze-embeddings", false,
		"do not fine-tune the word embeddings")
	flag.Parse()

	if resume && checkpointDir == "" {
		essentials.Die("-resume requires -checkpoints")
	}

	log.Println("Setting up...")

	creator := anyvec32.CurrentCreator()
	words := append(append([]string{"a"}, Colors...), Shapes...)
	v := vocab.New(words)
	provider := &features.MemoryProvider{Vocab: v, Images: map[string]*features.Regions{}}

	trainSet := makeDataset(creator, provider, "train", numImages)
	valSet := makeDataset(creator, provider, "val", numImages/4+1)

	model, err := editcap.NewModel(creator, editcap.Config{
		VocabSize:     provider.VocabSize(),
		FeatureSize:   len(Colors) + len(Shapes),
		EmbedSize:     16,
		HiddenSize:    32,
		AttentionSize: 16,
		EncoderSize:   8,
		MaxLen:        8,
		Dropout:       0.1,
	}, nil)
	if err != nil {
		essentials.Die(err)
	}
	if embeddingsPath != "" {
		found, err := editcap.LoadEmbeddings(model.Embedding, embeddingsPath, v)
		if err != nil {
			essentials.Die(err)
		}
		log.Printf("Loaded %d of %d word vectors.", found, v.Len())
	}
	model.Embedding.Frozen = freezeEmbeddings

	opt, err := optim.New(optimizer)
	if err != nil {
		essentials.Die(err)
	}
	rater := &optim.Plateau{Initial: stepSize, Patience: 3}
	trainer := &train.Trainer{
		Model:     model,
		Strategy:  &train.CrossEntropy{ActionWeight: 0.5, AttentionReg: 0.01},
		Optimizer: opt,
		Rater:     rater,
		Samples:   trainSet,
		BatchSize: batchSize,
		ClipNorm:  5,
		StatusFunc: func(batch int, loss float64) {
			log.Printf("batch %d: loss=%f", batch, loss)
		},
	}

	var checkpointer *train.FileCheckpointer
	if checkpointDir != "" {
		checkpointer = &train.FileCheckpointer{Dir: checkpointDir}
	}
	if resume {
		cp, err := checkpointer.Resume(trainer)
		if err != nil {
			essentials.Die(err)
		}
		if p, ok := trainer.Rater.(*optim.Plateau); ok {
			rater = p
		}
		log.Printf("Resumed at epoch %d (best CIDEr %f).", trainer.Epoch, cp.BestScore)
	}
	cider := reward.NewCIDEr(corpus(trainSet))

	runPhase := func(name string, endEpoch int) {
		for trainer.Epoch < endEpoch {
			if err := trainer.Run(1); err != nil {
				essentials.Die(err)
			}
			score := evaluate(trainer.Model, valSet, cider, 1)
			best := rater.Report(score)
			log.Printf("%s epoch %d: val CIDEr=%f rate=%f", name, trainer.Epoch, score,
				rater.Rate(float64(trainer.Epoch)))
			if checkpointer != nil {
				cp, err := trainer.Checkpoint(rater.Best, rater.Stale)
				if err != nil {
					essentials.Die(err)
				}
				if err := checkpointer.Save(cp, best); err != nil {
					essentials.Die(err)
				}
			}
		}
	}

	log.Println("Training with cross-entropy...")
	runPhase("xe", xeEpochs)

	log.Println("Training with self-critical sequence training...")
	scst := &train.SelfCritical{Scorer: &reward.Safe{Scorer: cider}}
	trainer.Strategy = scst
	trainer.StatusFunc = func(batch int, loss float64) {
		log.Printf("batch %d: loss=%f sample=%f greedy=%f", batch, loss,
			scst.LastSampleReward, scst.LastBaselineReward)
	}
	if trainer.Epoch == xeEpochs {
		rater.Reset(stepSize / 10)
	}
	runPhase("scst", xeEpochs+scstEpochs)

	log.Println("Computing statistics...")
	log.Printf("Validation CIDEr (beam %d): %f", beamWidth,
		evaluate(trainer.Model, valSet, cider, beamWidth))
	shown := valSet
	if len(shown) > 5 {
		shown = shown[:5]
	}
	printSamples(trainer.Model, shown, v, beamWidth)
}

func makeDataset(c anyvec.Creator, p *features.MemoryProvider, prefix string,
	n int) train.SampleList {
	var res train.SampleList
	for i := 0; i < n; i++ {
		color := rand.Intn(len(Colors))
		shape := rand.Intn(len(Shapes))
		id := fmt.Sprintf("%s-%d", prefix, i)
		p.Images[id] = makeRegions(c, color, shape)

		regions, err := p.Features(id)
		if err != nil {
			essentials.Die(err)
		}
		ref := []string{"a", Colors[color], Shapes[shape]}
		prior := corrupt(ref)
		res = append(res, &editcap.Example{
			ImageID:    id,
			Regions:    regions,
			Prior:      p.Vocab.Caption(prior, 0),
			PriorLen:   len(prior) + 2,
			References: [][]int{p.Vocab.Caption(ref, 0)},
		})
	}
	return res
}

// makeRegions puts a noisy one-hot color in one region, a
// noisy one-hot shape in another, and pads the rest with
// noise.
func makeRegions(c anyvec.Creator, color, shape int) *features.Regions {
	size := len(Colors) + len(Shapes)
	data := make([]float64, regionsPerImage*size)
	for i := range data {
		data[i] = rand.NormFloat64() * 0.1
	}
	colorRegion := rand.Intn(regionsPerImage)
	shapeRegion := (colorRegion + 1) % regionsPerImage
	data[colorRegion*size+color] += 1
	data[shapeRegion*size+len(Colors)+shape] += 1
	vec := c.MakeVectorData(c.MakeNumericList(data))
	regions, err := features.New(vec, size)
	if err != nil {
		essentials.Die(err)
	}
	return regions
}

// corrupt replaces, deletes, or duplicates one word of a
// caption.
func corrupt(caption []string) []string {
	res := append([]string{}, caption...)
	idx := 1 + rand.Intn(len(res)-1)
	switch rand.Intn(3) {
	case 0:
		if idx == 1 {
			res[idx] = Colors[rand.Intn(len(Colors))]
		} else {
			res[idx] = Shapes[rand.Intn(len(Shapes))]
		}
	case 1:
		res = append(res[:idx], res[idx+1:]...)
	case 2:
		res = append(res[:idx], append([]string{res[idx]}, res[idx:]...)...)
	}
	return res
}

func corpus(samples train.SampleList) [][][]int {
	res := make([][][]int, len(samples))
	for i, s := range samples {
		res[i] = s.References
	}
	return res
}

func evaluate(m *editcap.Model, samples train.SampleList, cider *reward.CIDEr,
	width int) float64 {
	results, err := decode.SearchBatch(m, samples, &decode.Config{Width: width})
	if err != nil {
		essentials.Die(err)
	}
	scorer := &reward.Safe{Scorer: cider}
	var total float64
	for i, r := range results {
		total += scorer.Score(r.Tokens, samples[i].References)
	}
	return total / float64(len(results))
}

func printSamples(m *editcap.Model, samples train.SampleList, v *vocab.Vocab, width int) {
	results, err := decode.SearchBatch(m, samples, &decode.Config{Width: width})
	if err != nil {
		essentials.Die(err)
	}
	for i, r := range results {
		prior := v.Decode(vocab.Strip(samples[i].Prior))
		edited := v.Decode(r.Caption())
		log.Printf("%s: %q -> %q (actions %v)", samples[i].ImageID,
			strings.Join(prior, " "), strings.Join(edited, " "), r.Actions)
	}
}
