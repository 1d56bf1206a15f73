package features

import (
	"fmt"

	"github.com/gyq716/show-edit-tell/vocab"
)

// A Provider supplies image features and the vocabulary
// used to interpret caption tokens.
type Provider interface {
	Features(imageID string) (*Regions, error)
	VocabSize() int
	TokenToWord(idx int) string
}

// MemoryProvider is a Provider backed by in-memory maps.
type MemoryProvider struct {
	Vocab  *vocab.Vocab
	Images map[string]*Regions
}

// Features returns the regions for an image.
func (m *MemoryProvider) Features(imageID string) (*Regions, error) {
	r, ok := m.Images[imageID]
	if !ok {
		return nil, fmt.Errorf("features: unknown image %q", imageID)
	}
	return r, nil
}

// VocabSize returns the vocabulary size.
func (m *MemoryProvider) VocabSize() int {
	return m.Vocab.Len()
}

// TokenToWord maps a token index to its word.
func (m *MemoryProvider) TokenToWord(idx int) string {
	return m.Vocab.Word(idx)
}
