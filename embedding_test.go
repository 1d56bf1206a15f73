package editcap

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/serializer"
)

func TestLoadEmbeddings(t *testing.T) {
	m := testModel(t, 0)
	v := vocab.New([]string{"cat", "dog", "red", "blue", "big"})
	before := vectorFloats(m.Embedding.Vectors.Vector)

	dir, err := ioutil.TempDir("", "embeddings")
	if err != nil {
		t.Fatal(err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "glove.txt")
	contents := "dog 1 2 3\nzebra 9 9 9\n\ncat -0.5 0 0.25\n"
	if err := ioutil.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatal(err)
	}
	found, err := LoadEmbeddings(m.Embedding, path, v)
	if err != nil {
		t.Fatal(err)
	}
	if found != 2 {
		t.Errorf("expected 2 rows but got %d", found)
	}

	after := vectorFloats(m.Embedding.Vectors.Vector)
	dim := m.Config.EmbedSize
	for word, expected := range map[string][]float64{
		"dog": {1, 2, 3},
		"cat": {-0.5, 0, 0.25},
	} {
		idx := v.Index(word)
		if actual := after[idx*dim : (idx+1)*dim]; !reflect.DeepEqual(actual, expected) {
			t.Errorf("%s: expected %v but got %v", word, expected, actual)
		}
	}
	idx := v.Index("red")
	if !reflect.DeepEqual(after[idx*dim:(idx+1)*dim], before[idx*dim:(idx+1)*dim]) {
		t.Error("row without a vector was changed")
	}

	_, err = ReadEmbeddings(m.Embedding, strings.NewReader("red 1 2\n"), v)
	if err == nil {
		t.Error("expected error for wrong dimension")
	}
	_, err = ReadEmbeddings(m.Embedding, strings.NewReader("red 1 x 2\n"), v)
	if err == nil {
		t.Error("expected error for bad number")
	}
}

func TestFrozenEmbedding(t *testing.T) {
	m := testModel(t, 0)
	params := m.Parameters()
	m.Embedding.Frozen = true
	frozen := m.Parameters()
	if len(frozen) != len(params)-1 {
		t.Fatalf("expected %d parameters but got %d", len(params)-1, len(frozen))
	}
	for _, p := range frozen {
		if p == m.Embedding.Vectors {
			t.Fatal("frozen embedding is still a parameter")
		}
	}

	data, err := serializer.SerializeAny(m)
	if err != nil {
		t.Fatal(err)
	}
	var m1 *Model
	if err := serializer.DeserializeAny(data, &m1); err != nil {
		t.Fatal(err)
	}
	if !m1.Embedding.Frozen {
		t.Error("frozen flag was not saved")
	}
	if len(m1.Parameters()) != len(frozen) {
		t.Errorf("expected %d parameters but got %d", len(frozen), len(m1.Parameters()))
	}
}
