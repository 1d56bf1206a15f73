// Package features stores pre-computed image region
// features and supplies them to the caption model.
package features

import (
	"errors"
	"fmt"

	"github.com/unixpickle/anyvec"
)

// FixedCount is the number of regions per image in the
// fixed-size feature variant.
const FixedCount = 36

// Regions is the set of region feature vectors for one
// image.
//
// Regions are immutable once handed to the model.
type Regions struct {
	// Vector stores Count rows of Size components.
	Vector anyvec.Vector

	Count int
	Size  int

	// Valid is the number of leading rows which are real
	// regions.
	// Rows past Valid are padding and receive no attention.
	Valid int
}

// New wraps a row-major feature matrix with size columns.
func New(vec anyvec.Vector, size int) (*Regions, error) {
	if size <= 0 {
		return nil, errors.New("non-positive feature size")
	}
	if vec.Len() == 0 || vec.Len()%size != 0 {
		return nil, fmt.Errorf("feature length %d is not a positive multiple of %d",
			vec.Len(), size)
	}
	count := vec.Len() / size
	return &Regions{Vector: vec, Count: count, Size: size, Valid: count}, nil
}

// Zeros creates an all-zero feature set.
func Zeros(c anyvec.Creator, count, size int) *Regions {
	return &Regions{
		Vector: c.MakeVector(count * size),
		Count:  count,
		Size:   size,
		Valid:  count,
	}
}

// Validate checks the shape of the feature set against an
// expected feature size and an optional maximum number of
// regions (0 means unlimited).
func (r *Regions) Validate(size, maxCount int) error {
	switch {
	case r.Vector == nil:
		return errors.New("missing feature vector")
	case r.Size != size:
		return fmt.Errorf("feature size %d (expected %d)", r.Size, size)
	case r.Count <= 0 || r.Vector.Len() != r.Count*r.Size:
		return fmt.Errorf("feature vector length %d does not match %dx%d",
			r.Vector.Len(), r.Count, r.Size)
	case r.Valid <= 0 || r.Valid > r.Count:
		return fmt.Errorf("valid region count %d out of range [1, %d]", r.Valid, r.Count)
	case maxCount > 0 && r.Count > maxCount:
		return fmt.Errorf("region count %d exceeds maximum %d", r.Count, maxCount)
	}
	return nil
}

// Pad returns a copy of the feature set padded with zero
// rows up to count rows.
func (r *Regions) Pad(count int) (*Regions, error) {
	if count < r.Count {
		return nil, fmt.Errorf("cannot pad %d regions down to %d", r.Count, count)
	}
	c := r.Vector.Creator()
	padding := c.MakeVector((count - r.Count) * r.Size)
	return &Regions{
		Vector: c.Concat(r.Vector, padding),
		Count:  count,
		Size:   r.Size,
		Valid:  r.Valid,
	}, nil
}

// Mask returns, for every row, 0 if the row is a real
// region and negInf if it is padding.
//
// Adding the mask to attention scores before a softmax
// removes padding rows from the distribution.
func (r *Regions) Mask(negInf float64) []float64 {
	res := make([]float64, r.Count)
	for i := r.Valid; i < r.Count; i++ {
		res[i] = negInf
	}
	return res
}

// Mean computes the average of the valid rows.
func (r *Regions) Mean() anyvec.Vector {
	valid := r.Vector.Slice(0, r.Valid*r.Size)
	res := anyvec.SumRows(valid, r.Size)
	res.Scale(res.Creator().MakeNumeric(1 / float64(r.Valid)))
	return res
}
