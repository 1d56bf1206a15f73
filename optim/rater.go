package optim

import (
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p Plateau
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePlateau)
}

// Plateau is an anysgd.Rater which shrinks the learning
// rate when a validation score stops improving.
type Plateau struct {
	// Initial is the starting learning rate.
	Initial float64

	// Shrink scales the rate on every shrink.
	// If it is 0, a default of 0.5 is used.
	Shrink float64

	// Patience is the number of epochs without improvement
	// between shrinks.
	// If it is 0, a default of 8 is used.
	Patience int

	// Best is the best score reported so far.
	Best float64

	// Stale counts the epochs since the best score.
	Stale int

	// Shrinks counts how many times the rate was shrunk.
	Shrinks int

	// Reported is set once a score has been reported.
	Reported bool
}

// Rate returns the current learning rate.
func (p *Plateau) Rate(epoch float64) float64 {
	rate := p.Initial
	shrink := valueOrDefault(p.Shrink, 0.5)
	for i := 0; i < p.Shrinks; i++ {
		rate *= shrink
	}
	return rate
}

// Report records an epoch's validation score, where
// higher is better.
// It returns true if the score is a new best.
func (p *Plateau) Report(score float64) bool {
	if !p.Reported || score > p.Best {
		p.Reported = true
		p.Best = score
		p.Stale = 0
		return true
	}
	p.Stale++
	patience := p.Patience
	if patience == 0 {
		patience = 8
	}
	if p.Stale%patience == 0 {
		p.Shrinks++
	}
	return false
}

// Reset sets a new initial rate and forgets every shrink,
// as when switching to a new training phase.
func (p *Plateau) Reset(initial float64) {
	p.Initial = initial
	p.Shrinks = 0
}

// DeserializePlateau deserializes a Plateau.
func DeserializePlateau(d []byte) (*Plateau, error) {
	var res Plateau
	var patience, stale, shrinks serializer.Int
	var reported serializer.Bool
	err := serializer.DeserializeAny(d, &res.Initial, &res.Shrink, &patience, &res.Best,
		&stale, &shrinks, &reported)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Plateau", err)
	}
	res.Patience = int(patience)
	res.Stale = int(stale)
	res.Shrinks = int(shrinks)
	res.Reported = bool(reported)
	return &res, nil
}

// SerializerType returns the unique ID used to serialize
// a Plateau with the serializer package.
func (p *Plateau) SerializerType() string {
	return "github.com/gyq716/show-edit-tell/optim.Plateau"
}

// Serialize serializes the Plateau.
func (p *Plateau) Serialize() ([]byte, error) {
	return serializer.SerializeAny(p.Initial, p.Shrink, serializer.Int(p.Patience), p.Best,
		serializer.Int(p.Stale), serializer.Int(p.Shrinks), serializer.Bool(p.Reported))
}
