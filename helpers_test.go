package editcap

import (
	"math/rand"
	"testing"

	"github.com/gyq716/show-edit-tell/features"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

const testPrecision = 1e-3

func testConfig(encoder int) Config {
	return Config{
		VocabSize:     9,
		FeatureSize:   4,
		EmbedSize:     3,
		HiddenSize:    5,
		AttentionSize: 3,
		EncoderSize:   encoder,
		MaxLen:        8,
	}
}

func testModel(t *testing.T, encoder int) *Model {
	m, err := NewModel(anyvec64.DefaultCreator{}, testConfig(encoder), rand.New(rand.NewSource(1337)))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// testRegions creates valid random regions followed by
// padding.
func testRegions(r *rand.Rand, valid, count, size int) *features.Regions {
	c := anyvec64.DefaultCreator{}
	vec := c.MakeVector(valid * size)
	anyvec.Rand(vec, anyvec.Normal, r)
	regions, err := features.New(vec, size)
	if err != nil {
		panic(err)
	}
	regions, err = regions.Pad(count)
	if err != nil {
		panic(err)
	}
	return regions
}

// testExample creates an example editing "4 5 6" into
// "4 7 6 8".
func testExample(m *Model) *Example {
	r := rand.New(rand.NewSource(42))
	return &Example{
		ImageID:  "test",
		Regions:  testRegions(r, 3, 5, m.Config.FeatureSize),
		Prior:    []int{vocab.StartIndex, 4, 5, 6, vocab.EndIndex, vocab.PadIndex},
		PriorLen: 5,
		References: [][]int{
			{vocab.StartIndex, 4, 7, 6, 8, vocab.EndIndex},
		},
	}
}
