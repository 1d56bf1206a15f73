// Package editcap implements a caption-editing model.
//
// Given the region features of an image and an existing
// caption, the model decodes a revised caption one step at
// a time.
// At each step an edit-action predictor decides between
// keeping the prior caption's token under a pointer,
// deleting it, replacing it, or inserting a new token, and
// the decoder's word distribution is mixed with a copy of
// the prior token accordingly.
package editcap

import (
	"fmt"
	"math/rand"

	"github.com/gyq716/show-edit-tell/editops"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var m Model
	serializer.RegisterTypedDeserializer(m.SerializerType(), DeserializeModel)
}

// A Model is the complete caption-editing network.
type Model struct {
	Config Config

	Embedding *Embedding
	Attention *Attention
	Predictor *Predictor
	Cell      *LSTM

	InitHidden *anynet.FC
	InitCell   *anynet.FC
	Output     *anynet.FC
	Dropout    *anynet.Dropout

	// Encoder and CaptionAttention are nil unless
	// Config.EncoderSize is non-zero.
	Encoder          *Encoder
	CaptionAttention *Attention
}

// NewModel creates a randomized Model.
// If r is nil, the global random source is used.
func NewModel(c anyvec.Creator, cfg Config, r *rand.Rand) (*Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cellIn := cfg.EmbedSize + cfg.FeatureSize + editops.NumActions
	res := &Model{
		Config:     cfg,
		Embedding:  NewEmbedding(c, cfg.VocabSize, cfg.EmbedSize, r),
		Attention:  NewAttention(c, cfg.FeatureSize, cfg.HiddenSize, cfg.AttentionSize, r),
		Predictor:  NewPredictor(c, cfg.HiddenSize, cfg.EmbedSize, r),
		InitHidden: newFC(c, cfg.FeatureSize, cfg.HiddenSize, r),
		InitCell:   newFC(c, cfg.FeatureSize, cfg.HiddenSize, r),
		Output:     newFC(c, cfg.HiddenSize, cfg.VocabSize, r),
		Dropout:    &anynet.Dropout{KeepProb: 1 - cfg.Dropout},
	}
	if cfg.EncoderSize > 0 {
		res.Encoder = NewEncoder(c, cfg.EmbedSize, cfg.EncoderSize, r)
		res.CaptionAttention = NewAttention(c, res.Encoder.OutSize(), cfg.HiddenSize,
			cfg.AttentionSize, r)
		cellIn += res.Encoder.OutSize()
	}
	res.Cell = NewLSTM(c, cellIn, cfg.HiddenSize, r)
	return res, nil
}

// DeserializeModel deserializes a Model.
func DeserializeModel(d []byte) (*Model, error) {
	slice, err := serializer.DeserializeSlice(d)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Model", err)
	}
	if len(slice) != 9 && len(slice) != 11 {
		return nil, fmt.Errorf("deserialize Model: unexpected part count %d", len(slice))
	}
	var res Model
	var cfg *Config
	var ok [11]bool
	cfg, ok[0] = slice[0].(*Config)
	res.Embedding, ok[1] = slice[1].(*Embedding)
	res.Attention, ok[2] = slice[2].(*Attention)
	res.Predictor, ok[3] = slice[3].(*Predictor)
	res.Cell, ok[4] = slice[4].(*LSTM)
	res.InitHidden, ok[5] = slice[5].(*anynet.FC)
	res.InitCell, ok[6] = slice[6].(*anynet.FC)
	res.Output, ok[7] = slice[7].(*anynet.FC)
	res.Dropout, ok[8] = slice[8].(*anynet.Dropout)
	if len(slice) == 11 {
		res.Encoder, ok[9] = slice[9].(*Encoder)
		res.CaptionAttention, ok[10] = slice[10].(*Attention)
	} else {
		ok[9], ok[10] = true, true
	}
	for i, x := range ok {
		if !x {
			return nil, fmt.Errorf("deserialize Model: unexpected type %T for part %d",
				slice[i], i)
		}
	}
	res.Config = *cfg
	return &res, nil
}

// DeleteOutcome is the outcome index of a Delete step.
// Outcomes below it are vocabulary tokens.
func (m *Model) DeleteOutcome() int {
	return m.Config.VocabSize
}

// Parameters returns the model's parameters in a fixed
// order.
func (m *Model) Parameters() []*anydiff.Var {
	parts := []interface{}{m.Embedding, m.Attention, m.Predictor, m.Cell,
		m.InitHidden, m.InitCell, m.Output}
	if m.Encoder != nil {
		parts = append(parts, m.Encoder, m.CaptionAttention)
	}
	return allParameters(parts...)
}

// SetTraining enables or disables training-only behavior
// such as dropout.
func (m *Model) SetTraining(training bool) {
	m.Dropout.Enabled = training && m.Config.Dropout > 0
}

// SerializerType returns the unique ID used to serialize
// a Model with the serializer package.
func (m *Model) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.Model"
}

// Serialize serializes the Model.
func (m *Model) Serialize() ([]byte, error) {
	parts := []serializer.Serializer{&m.Config, m.Embedding, m.Attention, m.Predictor,
		m.Cell, m.InitHidden, m.InitCell, m.Output, m.Dropout}
	if m.Encoder != nil {
		parts = append(parts, m.Encoder, m.CaptionAttention)
	}
	return serializer.SerializeSlice(parts)
}
