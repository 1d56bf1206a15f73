// Package editops implements the word-level edit actions
// which relate a prior caption to a revised caption.
package editops

import "fmt"

// NumActions is the number of edit actions.
const NumActions = 4

// NoToken is used in place of a token when an edit does
// not emit anything, or when a pointer is past the end of
// the prior caption.
const NoToken = -1

// An Action is a per-step edit decision.
//
// The numeric value of an Action is its index in action
// distributions.
type Action int

const (
	// Keep copies the aligned prior token.
	Keep Action = iota

	// Delete skips the aligned prior token without
	// emitting anything.
	Delete

	// Insert emits a new token before the aligned prior
	// token.
	Insert

	// Replace emits a new token in place of the aligned
	// prior token.
	Replace
)

// String returns the name of the action.
func (a Action) String() string {
	switch a {
	case Keep:
		return "KEEP"
	case Delete:
		return "DELETE"
	case Insert:
		return "INSERT"
	case Replace:
		return "REPLACE"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Emits returns true if the action produces an output
// token.
func (a Action) Emits() bool {
	return a != Delete
}

// Consumes returns true if the action moves the prior
// caption pointer forward.
func (a Action) Consumes() bool {
	return a != Insert
}

// Allowed reports which actions may be taken when the
// pointer is at ptr in a prior caption of length n.
//
// Past the end of the prior caption, every action except
// Insert refers to a token that does not exist.
func Allowed(ptr, n int) [NumActions]bool {
	inside := ptr < n
	return [NumActions]bool{
		Keep:    inside,
		Delete:  inside,
		Insert:  true,
		Replace: inside,
	}
}
