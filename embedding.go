package han

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Embedding
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEmbedding)
}

// An Embedding is a table of trainable vectors indexed
// by integer IDs.
//
// Weights stores the rows of the table one after
// another.
type Embedding struct {
	Width   int
	Weights *anydiff.Var
}

// NewEmbedding creates a table of the given size with
// normally distributed entries.
func NewEmbedding(c anyvec.Creator, rows, width int, mean, stddev float64) *Embedding {
	vals := make([]float64, rows*width)
	for i := range vals {
		vals[i] = rand.NormFloat64()*stddev + mean
	}
	return &Embedding{
		Width:   width,
		Weights: anydiff.NewVar(c.MakeVectorData(c.MakeNumericList(vals))),
	}
}

// DeserializeEmbedding deserializes an Embedding.
func DeserializeEmbedding(d []byte) (*Embedding, error) {
	var width serializer.Int
	var weights *anyvecsave.S
	if err := serializer.DeserializeAny(d, &width, &weights); err != nil {
		return nil, essentials.AddCtx("deserialize Embedding", err)
	}
	if width <= 0 || weights.Vector.Len()%int(width) != 0 {
		return nil, errors.New("deserialize Embedding: invalid table size")
	}
	return &Embedding{Width: int(width), Weights: anydiff.NewVar(weights.Vector)}, nil
}

// Rows returns the number of vectors in the table.
func (e *Embedding) Rows() int {
	return e.Weights.Vector.Len() / e.Width
}

// Lookup produces a row-major [len(ids) x Width] matrix
// with the vectors for the IDs.
//
// Every ID must be in the range [0, Rows()).
func (e *Embedding) Lookup(ids []int) anydiff.Res {
	rows := e.Rows()
	table := make([]int, 0, len(ids)*e.Width)
	for _, id := range ids {
		if id < 0 || id >= rows {
			panic(fmt.Sprintf("embedding ID %d out of range [0, %d)", id, rows))
		}
		for j := 0; j < e.Width; j++ {
			table = append(table, id*e.Width+j)
		}
	}
	return gather(e.Weights, table)
}

// SetRows overwrites the table with new vectors, for
// example with pretrained word embeddings.
//
// There must be exactly one row per table entry.
func (e *Embedding) SetRows(rows [][]float64) error {
	if len(rows) != e.Rows() {
		return fmt.Errorf("set embedding rows: expected %d rows but got %d", e.Rows(), len(rows))
	}
	vals := make([]float64, 0, len(rows)*e.Width)
	for _, row := range rows {
		if len(row) != e.Width {
			return errors.New("set embedding rows: row width mismatch")
		}
		vals = append(vals, row...)
	}
	c := e.Weights.Vector.Creator()
	e.Weights.Vector.SetData(c.MakeNumericList(vals))
	return nil
}

// Parameters returns the table as a parameter.
func (e *Embedding) Parameters() []*anydiff.Var {
	return []*anydiff.Var{e.Weights}
}

// SerializerType returns the unique ID used to serialize
// an Embedding with the serializer package.
func (e *Embedding) SerializerType() string {
	return "github.com/unixpickle/han.Embedding"
}

// Serialize serializes the Embedding.
func (e *Embedding) Serialize() ([]byte, error) {
	return serializer.SerializeAny(serializer.Int(e.Width),
		&anyvecsave.S{Vector: e.Weights.Vector})
}
