package editcap

import (
	"errors"
	"fmt"

	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

// DefaultMaxLen is the caption length cap used when a
// Config leaves MaxLen at 0.
const DefaultMaxLen = 20

func init() {
	var c Config
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeConfig)
}

// Config describes the shape of a Model.
type Config struct {
	VocabSize     int
	FeatureSize   int
	EmbedSize     int
	HiddenSize    int
	AttentionSize int

	// EncoderSize is the state size of each direction of
	// the prior caption encoder.
	// If it is 0, the prior caption is only seen through
	// the edit-action predictor.
	EncoderSize int

	// MaxLen caps the number of tokens in a caption,
	// counting the start and end tokens.
	// If it is 0, DefaultMaxLen is used.
	MaxLen int

	// MaxRegions, if non-zero, limits the number of
	// regions per image.
	MaxRegions int

	// Dropout is the probability of dropping a hidden unit
	// before the output layer during training.
	Dropout float64
}

// DeserializeConfig deserializes a Config.
func DeserializeConfig(d []byte) (*Config, error) {
	var vocab, feature, embed, hidden, att, enc, maxLen, maxRegions serializer.Int
	var dropout serializer.Float64
	err := serializer.DeserializeAny(d, &vocab, &feature, &embed, &hidden, &att, &enc,
		&maxLen, &maxRegions, &dropout)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Config", err)
	}
	return &Config{
		VocabSize:     int(vocab),
		FeatureSize:   int(feature),
		EmbedSize:     int(embed),
		HiddenSize:    int(hidden),
		AttentionSize: int(att),
		EncoderSize:   int(enc),
		MaxLen:        int(maxLen),
		MaxRegions:    int(maxRegions),
		Dropout:       float64(dropout),
	}, nil
}

// Validate checks that the configuration describes a
// usable model.
func (c *Config) Validate() error {
	for _, x := range []struct {
		name  string
		value int
	}{
		{"vocab size", c.VocabSize},
		{"feature size", c.FeatureSize},
		{"embedding size", c.EmbedSize},
		{"hidden size", c.HiddenSize},
		{"attention size", c.AttentionSize},
	} {
		if x.value <= 0 {
			return fmt.Errorf("config: %s must be positive", x.name)
		}
	}
	if c.EncoderSize < 0 || c.MaxLen < 0 || c.MaxRegions < 0 {
		return errors.New("config: negative size")
	}
	if c.MaxLen == 1 {
		return errors.New("config: max length must leave room for an end token")
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return errors.New("config: dropout must be in [0, 1)")
	}
	return nil
}

// MaxLength returns MaxLen or its default.
func (c *Config) MaxLength() int {
	if c.MaxLen == 0 {
		return DefaultMaxLen
	}
	return c.MaxLen
}

// SerializerType returns the unique ID used to serialize
// a Config with the serializer package.
func (c *Config) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.Config"
}

// Serialize serializes the Config.
func (c *Config) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(c.VocabSize),
		serializer.Int(c.FeatureSize),
		serializer.Int(c.EmbedSize),
		serializer.Int(c.HiddenSize),
		serializer.Int(c.AttentionSize),
		serializer.Int(c.EncoderSize),
		serializer.Int(c.MaxLen),
		serializer.Int(c.MaxRegions),
		serializer.Float64(c.Dropout),
	)
}
