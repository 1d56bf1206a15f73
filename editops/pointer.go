package editops

// Aligned returns the prior token under the pointer, or
// NoToken if the pointer is past the end.
func Aligned(prior []int, ptr int) int {
	if ptr < 0 || ptr >= len(prior) {
		return NoToken
	}
	return prior[ptr]
}

// Advance interprets the outcome of a decoding step and
// moves the prior caption pointer accordingly.
//
// The token is NoToken for a Delete step.
// An emitted token equal to the aligned prior token is a
// Keep.
// Any other token is a Replace if the pointer is inside
// the prior and probs rates Replace at least as high as
// Insert; otherwise it is an Insert.
func Advance(prior []int, ptr, token int, probs [NumActions]float64) (Action, int) {
	inside := ptr < len(prior)
	switch {
	case token == NoToken:
		if !inside {
			panic("delete past end of prior sequence")
		}
		return Delete, ptr + 1
	case inside && token == prior[ptr]:
		return Keep, ptr + 1
	case inside && probs[Replace] >= probs[Insert]:
		return Replace, ptr + 1
	default:
		return Insert, ptr
	}
}
