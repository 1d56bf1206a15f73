package decode

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	editcap "github.com/gyq716/show-edit-tell"
	"github.com/gyq716/show-edit-tell/features"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestWidthOneMatchesGreedy(t *testing.T) {
	for seed := int64(0); seed < 5; seed++ {
		r := rand.New(rand.NewSource(seed))
		m := testModel(t, r, int(seed%2)*3)
		src, err := m.NewSource(testExample(m, r))
		if err != nil {
			t.Fatal(err)
		}
		expected := Greedy(m, src, 1)
		for _, norm := range []bool{false, true} {
			actual := Beam(m, src, &Config{Width: 1, LengthNorm: norm})
			if !reflect.DeepEqual(actual, expected) {
				t.Errorf("seed %d norm %v: expected %v but got %v", seed, norm,
					expected, actual)
			}
		}
	}
}

func TestBeamDeterministic(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	m := testModel(t, r, 3)
	ex := testExample(m, r)
	c := &Config{Width: 4}
	first, err := Search(m, ex, c)
	if err != nil {
		t.Fatal(err)
	}
	second, err := Search(m, ex, c)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ: %v and %v", first, second)
	}
}

func TestSearchBatch(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	m := testModel(t, r, 0)
	examples := []*editcap.Example{testExample(m, r), testExample(m, r)}
	for _, norm := range []bool{false, true} {
		results, err := SearchBatch(m, examples, &Config{Width: 5, LengthNorm: norm})
		if err != nil {
			t.Fatal(err)
		}
		if len(results) != 2 {
			t.Fatalf("expected 2 results but got %d", len(results))
		}
		for i, res := range results {
			checkResult(t, m, res)
			if res.Finished && res.Tokens[len(res.Tokens)-1] != vocab.EndIndex {
				t.Errorf("result %d: finished without an end token", i)
			}
		}
	}
}

func TestSearchInvalid(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	m := testModel(t, r, 0)
	bad := testExample(m, r)
	bad.Prior[0] = 5
	_, err := SearchBatch(m, []*editcap.Example{testExample(m, r), bad}, &Config{Width: 2})
	if err == nil {
		t.Fatal("expected an error")
	}
}

func TestZeroFeatures(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	cfg := testConfig(0)
	cfg.FeatureSize = 2048
	cfg.MaxLen = 20
	m, err := editcap.NewModel(anyvec64.DefaultCreator{}, cfg, r)
	if err != nil {
		t.Fatal(err)
	}
	ex := &editcap.Example{
		ImageID:  "zeros",
		Regions:  features.Zeros(anyvec64.DefaultCreator{}, features.FixedCount, 2048),
		Prior:    []int{vocab.StartIndex, 4, 5, vocab.EndIndex},
		PriorLen: 4,
	}
	for _, width := range []int{1, 3} {
		res, err := Search(m, ex, &Config{Width: width})
		if err != nil {
			t.Fatal(err)
		}
		checkResult(t, m, res)
		if math.IsNaN(res.LogProb) || res.LogProb > 0 {
			t.Errorf("width %d: bad log probability %f", width, res.LogProb)
		}
	}
}

func checkResult(t *testing.T, m *editcap.Model, res *Result) {
	if res.Tokens[0] != vocab.StartIndex {
		t.Errorf("caption %v does not start with start token", res.Tokens)
	}
	if len(res.Tokens) > m.Config.MaxLength() {
		t.Errorf("caption of %d tokens exceeds cap %d", len(res.Tokens), m.Config.MaxLength())
	}
	if !res.Finished && len(res.Tokens) != m.Config.MaxLength() {
		t.Errorf("unfinished caption of %d tokens", len(res.Tokens))
	}
	for _, tok := range res.Caption() {
		if tok == vocab.StartIndex || tok == vocab.EndIndex {
			t.Errorf("caption %v contains reserved tokens", res.Caption())
		}
	}
}

func testConfig(encoder int) editcap.Config {
	return editcap.Config{
		VocabSize:     10,
		FeatureSize:   4,
		EmbedSize:     3,
		HiddenSize:    6,
		AttentionSize: 3,
		EncoderSize:   encoder,
		MaxLen:        7,
	}
}

func testModel(t *testing.T, r *rand.Rand, encoder int) *editcap.Model {
	m, err := editcap.NewModel(anyvec64.DefaultCreator{}, testConfig(encoder), r)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testExample(m *editcap.Model, r *rand.Rand) *editcap.Example {
	c := anyvec64.DefaultCreator{}
	vec := c.MakeVector(3 * m.Config.FeatureSize)
	anyvec.Rand(vec, anyvec.Normal, r)
	regions, err := features.New(vec, m.Config.FeatureSize)
	if err != nil {
		panic(err)
	}
	prior := []int{vocab.StartIndex}
	for i := 0; i < 1+r.Intn(3); i++ {
		prior = append(prior, 4+r.Intn(m.Config.VocabSize-4))
	}
	prior = append(prior, vocab.EndIndex)
	return &editcap.Example{
		ImageID:  "test",
		Regions:  regions,
		Prior:    prior,
		PriorLen: len(prior),
	}
}

func TestBestResult(t *testing.T) {
	hyps := arena{
		{Parent: -1, Token: 1, Length: 1},
		{Parent: 0, Token: 4, Length: 2, LogProb: -0.1},
		{Parent: 1, Token: 2, Length: 3, LogProb: -2, Finished: true},
		{Parent: 1, Token: 5, Length: 3, LogProb: -0.5},
		{Parent: 3, Token: 6, Length: 4, LogProb: -1},
		{Parent: 4, Token: 7, Length: 5, LogProb: -1.5},
		{Parent: 5, Token: 2, Length: 6, LogProb: -3, Finished: true},
		{Parent: 3, Token: 5, Length: 4, LogProb: -0.1},
	}
	short, long, capped := 2, 6, 7
	if res := bestResult(hyps, []int{capped, short, long}, false); !reflect.DeepEqual(res, hyps.Result(short)) {
		t.Errorf("unnormalized: expected %v but got %v", hyps.Result(short), res)
	}
	if res := bestResult(hyps, []int{capped, short, long}, true); !reflect.DeepEqual(res, hyps.Result(long)) {
		t.Errorf("normalized: expected %v but got %v", hyps.Result(long), res)
	}
	if res := bestResult(hyps, []int{capped}, true); !reflect.DeepEqual(res, hyps.Result(capped)) {
		t.Errorf("capped only: expected %v but got %v", hyps.Result(capped), res)
	}
	expected := []int{1, 4, 5, 6, 7, 2}
	if res := hyps.Result(long); !reflect.DeepEqual(res.Tokens, expected) {
		t.Errorf("expected tokens %v but got %v", expected, res.Tokens)
	}
}

func TestArenaDeletes(t *testing.T) {
	hyps := arena{
		{Parent: -1, Token: 1, Length: 1},
		{Parent: 0, Token: -1, Action: 1, Length: 1},
		{Parent: 1, Token: 4, Action: 0, Length: 2},
	}
	res := hyps.Result(2)
	if !reflect.DeepEqual(res.Tokens, []int{1, 4}) {
		t.Errorf("unexpected tokens %v", res.Tokens)
	}
	if len(res.Actions) != 2 || res.Actions[0] != 1 || res.Actions[1] != 0 {
		t.Errorf("unexpected actions %v", res.Actions)
	}
}
