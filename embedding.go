package editcap

import (
	"bufio"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/gyq716/show-edit-tell/vocab"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

const embeddingInitScale = 0.1

func init() {
	var e Embedding
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEmbedding)
}

// Embedding maps token indices to learned vectors.
type Embedding struct {
	Tokens int
	Dim    int

	// Vectors stores one row of Dim components per token.
	Vectors *anydiff.Var

	// Frozen excludes Vectors from the parameters, so that
	// pretrained vectors are not fine-tuned.
	Frozen bool
}

// DeserializeEmbedding deserializes an Embedding.
func DeserializeEmbedding(d []byte) (*Embedding, error) {
	var tokens serializer.Int
	var vecs *anyvecsave.S
	var frozen serializer.Bool
	if err := serializer.DeserializeAny(d, &tokens, &vecs, &frozen); err != nil {
		return nil, essentials.AddCtx("deserialize Embedding", err)
	}
	if tokens <= 0 || vecs.Vector.Len()%int(tokens) != 0 {
		return nil, fmt.Errorf("deserialize Embedding: %d values for %d tokens",
			vecs.Vector.Len(), tokens)
	}
	return &Embedding{
		Tokens:  int(tokens),
		Dim:     vecs.Vector.Len() / int(tokens),
		Vectors: anydiff.NewVar(vecs.Vector),
		Frozen:  bool(frozen),
	}, nil
}

// NewEmbedding creates a randomized Embedding.
func NewEmbedding(c anyvec.Creator, tokens, dim int, r *rand.Rand) *Embedding {
	vecs := c.MakeVector(tokens * dim)
	anyvec.Rand(vecs, anyvec.Normal, r)
	vecs.Scale(c.MakeNumeric(embeddingInitScale))
	return &Embedding{Tokens: tokens, Dim: dim, Vectors: anydiff.NewVar(vecs)}
}

// Embed looks up a batch of tokens.
// The result has one row per token.
func (e *Embedding) Embed(tokens []int) anydiff.Res {
	rows := make([]anydiff.Res, len(tokens))
	for i, t := range tokens {
		rows[i] = e.Row(t)
	}
	return anydiff.Concat(rows...)
}

// Row returns the vector for a single token.
func (e *Embedding) Row(token int) anydiff.Res {
	if token < 0 || token >= e.Tokens {
		panic(fmt.Sprintf("token %d out of range [0, %d)", token, e.Tokens))
	}
	return anydiff.Slice(e.Vectors, token*e.Dim, (token+1)*e.Dim)
}

// Parameters returns the embedding matrix, or nothing if
// the embedding is frozen.
func (e *Embedding) Parameters() []*anydiff.Var {
	if e.Frozen {
		return nil
	}
	return []*anydiff.Var{e.Vectors}
}

// LoadEmbeddings reads pretrained word vectors from a text
// file into e.
// See ReadEmbeddings for the format.
func LoadEmbeddings(e *Embedding, path string, v *vocab.Vocab) (found int, err error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, essentials.AddCtx("load embeddings", err)
	}
	defer f.Close()
	found, err = ReadEmbeddings(e, f, v)
	if err != nil {
		return found, essentials.AddCtx("load embeddings", err)
	}
	return found, nil
}

// ReadEmbeddings reads word vectors in the GloVe text
// format: one word per line, followed by Dim
// space-separated components.
//
// Rows for words in v are overwritten.
// Other words are skipped, and tokens with no line keep
// their current vectors.
// It returns the number of rows that were overwritten.
func ReadEmbeddings(e *Embedding, r io.Reader, v *vocab.Vocab) (int, error) {
	c := e.Vectors.Vector.Creator()
	seen := map[int]bool{}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		idx := v.Index(fields[0])
		if idx == vocab.UnknownIndex && fields[0] != vocab.Unknown {
			continue
		}
		if idx >= e.Tokens {
			return len(seen), fmt.Errorf("line %d: token %d out of range", lineNum, idx)
		}
		if len(fields)-1 != e.Dim {
			return len(seen), fmt.Errorf("line %d: expected %d components but got %d",
				lineNum, e.Dim, len(fields)-1)
		}
		row := make([]float64, e.Dim)
		for i, field := range fields[1:] {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return len(seen), fmt.Errorf("line %d: %s", lineNum, err)
			}
			row[i] = x
		}
		e.Vectors.Vector.Slice(idx*e.Dim, (idx+1)*e.Dim).SetData(c.MakeNumericList(row))
		seen[idx] = true
	}
	return len(seen), scanner.Err()
}

// SerializerType returns the unique ID used to serialize
// an Embedding with the serializer package.
func (e *Embedding) SerializerType() string {
	return "github.com/gyq716/show-edit-tell.Embedding"
}

// Serialize serializes the Embedding.
func (e *Embedding) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		serializer.Int(e.Tokens),
		&anyvecsave.S{Vector: e.Vectors.Vector},
		serializer.Bool(e.Frozen),
	)
}
