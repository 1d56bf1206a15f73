package editcap

import (
	"math"
	"math/rand"
	"testing"

	"github.com/gyq716/show-edit-tell/features"
	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/serializer"
)

func TestNewModelConfig(t *testing.T) {
	cfg := testConfig(0)
	cfg.HiddenSize = 0
	if _, err := NewModel(anyvec64.DefaultCreator{}, cfg, nil); err == nil {
		t.Error("expected error for zero hidden size")
	}
	cfg = testConfig(0)
	cfg.Dropout = 1
	if _, err := NewModel(anyvec64.DefaultCreator{}, cfg, nil); err == nil {
		t.Error("expected error for dropout of 1")
	}
}

func TestModelSerialize(t *testing.T) {
	for _, encoder := range []int{0, 3} {
		m := testModel(t, encoder)
		data, err := serializer.SerializeAny(m)
		if err != nil {
			t.Fatal(err)
		}
		var m1 *Model
		if err := serializer.DeserializeAny(data, &m1); err != nil {
			t.Fatal(err)
		}
		if m1.Config != m.Config {
			t.Errorf("config mismatch: %v vs %v", m1.Config, m.Config)
		}
		if len(m1.Parameters()) != len(m.Parameters()) {
			t.Fatalf("parameter count %d vs %d", len(m1.Parameters()), len(m.Parameters()))
		}
		expected := stepOutcomes(t, m)
		actual := stepOutcomes(t, m1)
		for i, x := range expected {
			if math.Abs(x-actual[i]) > 1e-8 {
				t.Fatalf("encoder %d outcome %d: expected %f but got %f", encoder, i, x, actual[i])
			}
		}
	}
}

func TestValidate(t *testing.T) {
	m := testModel(t, 0)
	r := rand.New(rand.NewSource(1))
	tests := []func(e *Example){
		func(e *Example) { e.Regions = nil },
		func(e *Example) { e.Regions = testRegions(r, 2, 2, 7) },
		func(e *Example) { e.PriorLen = 1 },
		func(e *Example) { e.PriorLen = 7 },
		func(e *Example) { e.Prior[0] = 4 },
		func(e *Example) { e.Prior[2] = 100 },
		func(e *Example) { e.References = append(e.References, []int{4, vocab.EndIndex}) },
		func(e *Example) {
			e.References = append(e.References, []int{vocab.StartIndex, 4, 4, 4, 4, 4, 4, 4,
				vocab.EndIndex})
		},
	}
	if err := m.Validate(testExample(m)); err != nil {
		t.Fatal(err)
	}
	for i, f := range tests {
		ex := testExample(m)
		f(ex)
		err := m.Validate(ex)
		if _, ok := err.(*InputError); !ok {
			t.Errorf("test %d: expected *InputError but got %v", i, err)
		}
		if _, err := m.NewSource(ex); err == nil {
			t.Errorf("test %d: NewSource accepted an invalid example", i)
		}
	}
}

func TestZeroFeatures(t *testing.T) {
	cfg := testConfig(0)
	cfg.FeatureSize = 2048
	m, err := NewModel(anyvec64.DefaultCreator{}, cfg, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatal(err)
	}
	ex := &Example{
		Regions:  features.Zeros(anyvec64.DefaultCreator{}, features.FixedCount, 2048),
		Prior:    []int{vocab.StartIndex, 4, vocab.EndIndex},
		PriorLen: 3,
	}
	src, err := m.NewSource(ex)
	if err != nil {
		t.Fatal(err)
	}
	traj := m.Unroll(src, Greedy{Prior: src.Prior}, 1)
	if len(traj.Tokens) > m.Config.MaxLength() {
		t.Errorf("caption of %d tokens exceeds cap", len(traj.Tokens))
	}
	if math.IsNaN(traj.LogProb) {
		t.Error("NaN log probability")
	}
}

func stepOutcomes(t *testing.T, m *Model) []float64 {
	src, err := m.NewSource(testExample(m))
	if err != nil {
		t.Fatal(err)
	}
	out := m.Step(src, m.Init(src, 1), &StepInput{
		Tokens:   []int{vocab.StartIndex},
		Pointers: []int{1},
	})
	return out.OutcomeRows()[0]
}
