package editcap

import (
	"github.com/gyq716/show-edit-tell/features"
	"github.com/unixpickle/anydiff"
)

// A Source holds everything a decode needs to know about
// one image: its features, the caption being edited, and
// the parts of the network that only depend on them.
//
// A Source is shared by every row (hypothesis) decoded for
// the same image, but it is never modified by decoding.
type Source struct {
	Regions  *features.Regions
	Features anydiff.Res
	Mask     []float64

	// Prior is the editable part of the prior caption.
	Prior []int

	// Keys is the projection of the features used by the
	// visual attention.
	Keys anydiff.Res

	// Encoded and EncodedKeys are the prior caption's token
	// encodings and their attention projection.
	// They are nil if the model has no encoder.
	Encoded     anydiff.Res
	EncodedKeys anydiff.Res

	projectEncoded func(enc anydiff.Res) anydiff.Res
}

// NewSource validates an example and prepares it for
// decoding.
func (m *Model) NewSource(e *Example) (*Source, error) {
	if err := m.Validate(e); err != nil {
		return nil, err
	}
	regions := e.Regions
	res := &Source{
		Regions:  regions,
		Features: anydiff.NewConst(regions.Vector),
		Mask:     regions.Mask(maskValue),
		Prior:    e.Editable(),
	}
	res.Keys = m.Attention.Keys(res.Features, regions.Count)
	if m.Encoder != nil {
		n := len(res.Prior)
		res.projectEncoded = func(enc anydiff.Res) anydiff.Res {
			return m.CaptionAttention.Keys(enc, n)
		}
		res.Encoded = m.Encoder.Encode(m.Embedding.Embed(res.Prior), n)
		res.EncodedKeys = res.projectEncoded(res.Encoded)
	}
	return res, nil
}

// Pool evaluates f with a copy of the source whose
// parameter-dependent parts are pooled, so that f may use
// them at every step while back-propagating through them
// only once.
func (s *Source) Pool(f func(s *Source) anydiff.Res) anydiff.Res {
	if s.Encoded == nil {
		return anydiff.Pool(s.Keys, func(keys anydiff.Res) anydiff.Res {
			pooled := *s
			pooled.Keys = keys
			return f(&pooled)
		})
	}
	parts := []anydiff.Res{s.Keys, s.Encoded}
	return poolAll(parts, func(parts []anydiff.Res) anydiff.Res {
		encKeys := s.projectEncoded(parts[1])
		return anydiff.Pool(encKeys, func(encKeys anydiff.Res) anydiff.Res {
			pooled := *s
			pooled.Keys = parts[0]
			pooled.Encoded = parts[1]
			pooled.EncodedKeys = encKeys
			return f(&pooled)
		})
	})
}
