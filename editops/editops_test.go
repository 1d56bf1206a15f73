package editops

import (
	"math/rand"
	"reflect"
	"testing"
)

func TestAlignKnown(t *testing.T) {
	// "a dog runs" -> "a big dog sits"
	prior := []int{5, 6, 7, 2}
	target := []int{5, 9, 6, 8, 2}
	ops := Align(prior, target)
	expected := []Op{
		{Keep, 5},
		{Insert, 9},
		{Keep, 6},
		{Replace, 8},
		{Keep, 2},
	}
	if !reflect.DeepEqual(ops, expected) {
		t.Errorf("expected %v but got %v", expected, ops)
	}
	if d := Distance(ops); d != 2 {
		t.Errorf("expected distance 2 but got %d", d)
	}
}

func TestAlignDeletes(t *testing.T) {
	prior := []int{5, 6, 7, 2}
	target := []int{5, 2}
	ops := Align(prior, target)
	expected := []Op{
		{Keep, 5},
		{Delete, NoToken},
		{Delete, NoToken},
		{Keep, 2},
	}
	if !reflect.DeepEqual(ops, expected) {
		t.Errorf("expected %v but got %v", expected, ops)
	}
}

func TestAlignReplay(t *testing.T) {
	for i := 0; i < 200; i++ {
		prior := randomTokens(rand.Intn(8))
		target := randomTokens(rand.Intn(8))
		ops := Align(prior, target)
		actual := Apply(prior, ops)
		if len(actual) == 0 && len(target) == 0 {
			continue
		}
		if !reflect.DeepEqual(actual, target) {
			t.Fatalf("prior %v target %v: replay gave %v", prior, target, actual)
		}
		if d := Distance(ops); d > len(prior)+len(target) {
			t.Fatalf("distance %d too large", d)
		}
	}
}

func TestAlignAdvanceConsistent(t *testing.T) {
	// Replaying an oracle script through Advance must land
	// the pointer where the script does, given action probs
	// that agree with the script.
	for i := 0; i < 200; i++ {
		prior := randomTokens(rand.Intn(8))
		target := randomTokens(rand.Intn(8))
		ptr := 0
		for _, op := range Align(prior, target) {
			var probs [NumActions]float64
			probs[op.Action] = 1
			action, next := Advance(prior, ptr, op.Token, probs)
			if action != op.Action {
				t.Fatalf("prior %v target %v: expected %v but got %v", prior, target,
					op.Action, action)
			}
			ptr = next
		}
		if ptr != len(prior) {
			t.Fatalf("pointer ended at %d, expected %d", ptr, len(prior))
		}
	}
}

func TestAdvance(t *testing.T) {
	prior := []int{4, 5}
	var probs [NumActions]float64
	probs[Insert] = 0.6
	probs[Replace] = 0.3

	if a, p := Advance(prior, 0, 4, probs); a != Keep || p != 1 {
		t.Errorf("unexpected keep result: %v %d", a, p)
	}
	if a, p := Advance(prior, 0, 9, probs); a != Insert || p != 0 {
		t.Errorf("unexpected insert result: %v %d", a, p)
	}
	probs[Replace] = 0.6
	if a, p := Advance(prior, 1, 9, probs); a != Replace || p != 2 {
		t.Errorf("unexpected replace result: %v %d", a, p)
	}
	if a, p := Advance(prior, 2, 9, probs); a != Insert || p != 2 {
		t.Errorf("unexpected result past end: %v %d", a, p)
	}
	if a, p := Advance(prior, 1, NoToken, probs); a != Delete || p != 2 {
		t.Errorf("unexpected delete result: %v %d", a, p)
	}
}

func TestAllowed(t *testing.T) {
	inside := Allowed(1, 3)
	for a, ok := range inside {
		if !ok {
			t.Errorf("action %v should be allowed inside the prior", Action(a))
		}
	}
	past := Allowed(3, 3)
	if past[Keep] || past[Delete] || past[Replace] || !past[Insert] {
		t.Errorf("unexpected actions past the end: %v", past)
	}
	if Aligned([]int{1, 2}, 2) != NoToken || Aligned([]int{1, 2}, 1) != 2 {
		t.Error("unexpected aligned token")
	}
}

func randomTokens(n int) []int {
	res := make([]int, n)
	for i := range res {
		res[i] = rand.Intn(4)
	}
	return res
}
