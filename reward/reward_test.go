package reward

import (
	"errors"
	"math"
	"testing"

	"github.com/gyq716/show-edit-tell/vocab"
)

func TestSafe(t *testing.T) {
	var got []int
	var gotRefs [][]int
	s := &Safe{
		Scorer: Func(func(c []int, refs [][]int) (float64, error) {
			got, gotRefs = c, refs
			return float64(len(c)), nil
		}),
		Min: -1,
	}
	refs := [][]int{{vocab.StartIndex, 5, vocab.EndIndex, vocab.PadIndex}}
	if x := s.Score([]int{vocab.StartIndex, 4, 6, vocab.EndIndex}, refs); x != 2 {
		t.Errorf("expected 2 but got %f", x)
	}
	if len(got) != 2 || len(gotRefs) != 1 || len(gotRefs[0]) != 1 {
		t.Errorf("scorer saw %v and %v", got, gotRefs)
	}
	if x := s.Score([]int{vocab.StartIndex, vocab.EndIndex}, refs); x != -1 {
		t.Errorf("empty caption: expected -1 but got %f", x)
	}

	s.Scorer = Func(func(c []int, refs [][]int) (float64, error) {
		return 3, errors.New("failed")
	})
	if x := s.Score([]int{vocab.StartIndex, 4, vocab.EndIndex}, refs); x != -1 {
		t.Errorf("scorer error: expected -1 but got %f", x)
	}
	s.Scorer = Func(func(c []int, refs [][]int) (float64, error) {
		return math.NaN(), nil
	})
	if x := s.Score([]int{vocab.StartIndex, 4, vocab.EndIndex}, refs); x != -1 {
		t.Errorf("NaN score: expected -1 but got %f", x)
	}
}

func TestCIDEr(t *testing.T) {
	corpus := [][][]int{
		{{4, 5, 6, 7}, {4, 5, 6, 8}},
		{{9, 10, 11}, {9, 10, 12}},
		{{13, 14, 15, 16}},
	}
	c := NewCIDEr(corpus)
	match, err := c.Score([]int{4, 5, 6, 7}, corpus[0])
	if err != nil {
		t.Fatal(err)
	}
	partial, _ := c.Score([]int{4, 5, 13, 14}, corpus[0])
	unrelated, _ := c.Score([]int{9, 10, 11}, corpus[0])
	if !(match > partial && partial > unrelated) {
		t.Errorf("expected decreasing scores: %f, %f, %f", match, partial, unrelated)
	}
	if unrelated != 0 {
		t.Errorf("unrelated caption scored %f", unrelated)
	}
	if _, err := c.Score([]int{4}, nil); err == nil {
		t.Error("expected error without references")
	}
}

func TestAdvantage(t *testing.T) {
	if Advantage(0.75, 0.5) != 0.25 {
		t.Error("unexpected advantage")
	}
	if Advantage(0.5, 0.5) != 0 {
		t.Error("equal rewards should have zero advantage")
	}
}
