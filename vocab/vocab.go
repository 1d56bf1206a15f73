// Package vocab maps between caption words and the token
// indices consumed by the model.
package vocab

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/ioutil"

	"github.com/unixpickle/essentials"
)

// Reserved words.
const (
	Pad     = "<pad>"
	Start   = "<start>"
	End     = "<end>"
	Unknown = "<unk>"
)

// Indices of the reserved words.
const (
	PadIndex = iota
	StartIndex
	EndIndex
	UnknownIndex
)

var reserved = []string{Pad, Start, End, Unknown}

// A Vocab is a bijection between words and indices.
//
// The reserved words always occupy the first indices.
type Vocab struct {
	words   []string
	indices map[string]int
}

// New creates a Vocab from a list of words.
// Duplicates and reserved words in the list are ignored.
func New(words []string) *Vocab {
	v := &Vocab{indices: map[string]int{}}
	for _, w := range append(append([]string{}, reserved...), words...) {
		if _, ok := v.indices[w]; ok {
			continue
		}
		v.indices[w] = len(v.words)
		v.words = append(v.words, w)
	}
	return v
}

// Load reads a JSON word map from a file.
func Load(path string) (*Vocab, error) {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, essentials.AddCtx("load vocab", err)
	}
	var v Vocab
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, essentials.AddCtx("load vocab", err)
	}
	return &v, nil
}

// Save writes the vocabulary as a JSON word map.
func (v *Vocab) Save(path string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return essentials.AddCtx("save vocab", err)
	}
	if err := ioutil.WriteFile(path, data, 0644); err != nil {
		return essentials.AddCtx("save vocab", err)
	}
	return nil
}

// Len returns the number of words, including reserved
// words.
func (v *Vocab) Len() int {
	return len(v.words)
}

// Index returns the index of a word, or UnknownIndex if
// the word is not in the vocabulary.
func (v *Vocab) Index(word string) int {
	if idx, ok := v.indices[word]; ok {
		return idx
	}
	return UnknownIndex
}

// Word returns the word for an index.
// Out of range indices map to Unknown.
func (v *Vocab) Word(idx int) string {
	if idx < 0 || idx >= len(v.words) {
		return Unknown
	}
	return v.words[idx]
}

// Encode converts words to indices.
func (v *Vocab) Encode(words []string) []int {
	res := make([]int, len(words))
	for i, w := range words {
		res[i] = v.Index(w)
	}
	return res
}

// Decode converts indices to words.
func (v *Vocab) Decode(tokens []int) []string {
	res := make([]string, len(tokens))
	for i, t := range tokens {
		res[i] = v.Word(t)
	}
	return res
}

// Caption encodes words as a model caption: a start
// token, the encoded words, an end token, and then padding
// up to length.
//
// If length is smaller than the unpadded caption, no
// padding is added.
func (v *Vocab) Caption(words []string, length int) []int {
	res := append([]int{StartIndex}, v.Encode(words)...)
	res = append(res, EndIndex)
	for len(res) < length {
		res = append(res, PadIndex)
	}
	return res
}

// Strip removes the start token, the end token and
// everything after it, and padding from a caption.
func Strip(caption []int) []int {
	res := []int{}
	for i, t := range caption {
		if i == 0 && t == StartIndex {
			continue
		}
		if t == EndIndex {
			break
		}
		if t != PadIndex {
			res = append(res, t)
		}
	}
	return res
}

// Length returns the length of a caption up to and
// including its end token, excluding padding.
func Length(caption []int) int {
	for i, t := range caption {
		if t == EndIndex {
			return i + 1
		}
		if t == PadIndex {
			return i
		}
	}
	return len(caption)
}

// MarshalJSON encodes the vocabulary as a map from words
// to indices.
func (v *Vocab) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.indices)
}

// UnmarshalJSON decodes a map from words to indices.
//
// The indices must be exactly 0 through len-1 and the
// reserved words must have their reserved indices.
func (v *Vocab) UnmarshalJSON(data []byte) error {
	var m map[string]int
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	words := make([]string, len(m))
	for w, idx := range m {
		if idx < 0 || idx >= len(m) || words[idx] != "" {
			return fmt.Errorf("bad index %d for word %q", idx, w)
		}
		words[idx] = w
	}
	for i, w := range reserved {
		if i >= len(words) || words[i] != w {
			return errors.New("missing reserved word " + w)
		}
	}
	v.words = words
	v.indices = m
	return nil
}
