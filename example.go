package editcap

import (
	"fmt"

	"github.com/gyq716/show-edit-tell/features"
	"github.com/gyq716/show-edit-tell/vocab"
)

// An InputError reports malformed input.
// It is returned before any computation takes place.
type InputError struct {
	Field  string
	Reason string
}

// Error returns the error message.
func (i *InputError) Error() string {
	return "invalid " + i.Field + ": " + i.Reason
}

// An Example is one image to caption.
type Example struct {
	ImageID string
	Regions *features.Regions

	// Prior is the caption to edit, starting with the
	// start token and possibly padded.
	Prior []int

	// PriorLen is the length of Prior up to and including
	// its end token.
	PriorLen int

	// References are ground-truth captions, wrapped like
	// Prior.
	// They are only needed for training.
	References [][]int
}

// Editable returns the part of the prior caption which the
// edit pointer walks over: everything after the start
// token, up to and including the end token.
func (e *Example) Editable() []int {
	return e.Prior[1:e.PriorLen]
}

// Validate checks an example against the model's shape.
func (m *Model) Validate(e *Example) error {
	if e.Regions == nil {
		return &InputError{Field: "features", Reason: "missing"}
	}
	if err := e.Regions.Validate(m.Config.FeatureSize, m.Config.MaxRegions); err != nil {
		return &InputError{Field: "features", Reason: err.Error()}
	}
	maxLen := m.Config.MaxLength()
	switch {
	case e.PriorLen < 2:
		return &InputError{Field: "prior caption", Reason: "too short for start and end tokens"}
	case e.PriorLen > len(e.Prior):
		return &InputError{Field: "prior caption", Reason: fmt.Sprintf(
			"length %d exceeds sequence of %d tokens", e.PriorLen, len(e.Prior))}
	case e.PriorLen > maxLen:
		return &InputError{Field: "prior caption", Reason: fmt.Sprintf(
			"length %d exceeds capacity %d", e.PriorLen, maxLen)}
	case e.Prior[0] != vocab.StartIndex:
		return &InputError{Field: "prior caption", Reason: "missing start token"}
	}
	if err := m.checkTokens(e.Prior); err != nil {
		return &InputError{Field: "prior caption", Reason: err.Error()}
	}
	for i, ref := range e.References {
		field := fmt.Sprintf("reference %d", i)
		if len(ref) == 0 || ref[0] != vocab.StartIndex {
			return &InputError{Field: field, Reason: "missing start token"}
		}
		if l := vocab.Length(ref); l > maxLen {
			return &InputError{Field: field, Reason: fmt.Sprintf(
				"length %d exceeds capacity %d", l, maxLen)}
		}
		if err := m.checkTokens(ref); err != nil {
			return &InputError{Field: field, Reason: err.Error()}
		}
	}
	return nil
}

func (m *Model) checkTokens(tokens []int) error {
	for _, t := range tokens {
		if t < 0 || t >= m.Config.VocabSize {
			return fmt.Errorf("token %d out of range [0, %d)", t, m.Config.VocabSize)
		}
	}
	return nil
}
