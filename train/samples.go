package train

import (
	editcap "github.com/gyq716/show-edit-tell"
	"github.com/unixpickle/anynet/anysgd"
)

// A SampleList is an anysgd.SampleList of training
// examples.
type SampleList []*editcap.Example

// Len returns the number of examples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two examples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice copies a range of the list.
func (s SampleList) Slice(i, j int) anysgd.SampleList {
	return append(SampleList{}, s[i:j]...)
}
