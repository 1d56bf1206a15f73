package vocab

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestReserved(t *testing.T) {
	v := New([]string{"a", Start, "dog", "a"})
	if v.Len() != 6 {
		t.Fatalf("expected 6 words but got %d", v.Len())
	}
	for word, idx := range map[string]int{
		Pad: PadIndex, Start: StartIndex, End: EndIndex, Unknown: UnknownIndex,
		"a": 4, "dog": 5,
	} {
		if v.Index(word) != idx {
			t.Errorf("word %q: expected index %d but got %d", word, idx, v.Index(word))
		}
		if v.Word(idx) != word {
			t.Errorf("index %d: expected word %q but got %q", idx, word, v.Word(idx))
		}
	}
}

func TestRoundTrip(t *testing.T) {
	v := New([]string{"a", "dog", "on", "the", "grass"})
	words := []string{"a", "dog", "on", "the", "grass"}
	if actual := v.Decode(v.Encode(words)); !reflect.DeepEqual(actual, words) {
		t.Errorf("expected %v but got %v", words, actual)
	}

	withUnknown := []string{"a", "cat", "on", "the", "grass"}
	expected := []string{"a", Unknown, "on", "the", "grass"}
	if actual := v.Decode(v.Encode(withUnknown)); !reflect.DeepEqual(actual, expected) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestCaption(t *testing.T) {
	v := New([]string{"a", "dog"})
	caption := v.Caption([]string{"a", "dog"}, 6)
	expected := []int{StartIndex, 4, 5, EndIndex, PadIndex, PadIndex}
	if !reflect.DeepEqual(caption, expected) {
		t.Errorf("expected %v but got %v", expected, caption)
	}
	if l := Length(caption); l != 4 {
		t.Errorf("expected length 4 but got %d", l)
	}
	if s := Strip(caption); !reflect.DeepEqual(s, []int{4, 5}) {
		t.Errorf("unexpected stripped caption: %v", s)
	}
	if s := Strip([]int{StartIndex, EndIndex}); len(s) != 0 {
		t.Errorf("expected empty caption but got %v", s)
	}
}

func TestJSON(t *testing.T) {
	dir, err := ioutil.TempDir("", "vocab")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)

	v := New([]string{"a", "dog", "runs"})
	path := filepath.Join(dir, "wordmap.json")
	if err := v.Save(path); err != nil {
		t.Fatal(err)
	}
	v1, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(v, v1) {
		t.Error("vocab changed after round trip")
	}

	var bad Vocab
	if err := bad.UnmarshalJSON([]byte(`{"a":0,"<start>":1}`)); err == nil {
		t.Error("expected error for missing reserved words")
	}
}
