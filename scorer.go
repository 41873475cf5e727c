package han

import (
	"math"
	"math/rand"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvecsave"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var p PlainScorer
	serializer.RegisterTypedDeserializer(p.SerializerType(), DeserializePlainScorer)
	var c CondScorer
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCondScorer)
}

// A Scorer produces attention scores (in the log domain)
// for the positions of an encoded batch.
type Scorer interface {
	serializer.Serializer
	anynet.Parameterizer

	// Score computes one score per row of the time-major
	// [steps*batch x width] hidden matrix.
	//
	// The ctx argument has one row per sequence, or is nil
	// for scorers that do not use a context.
	Score(hidden, ctx anydiff.Res, batch, steps int) anydiff.Res
}

// A PlainScorer scores each position from its hidden
// state alone, computing u·tanh(W*h + b).
type PlainScorer struct {
	Proj    *anynet.FC
	Context *anydiff.Var
}

// NewPlainScorer creates a randomly initialized
// PlainScorer for hidden states of the given size.
func NewPlainScorer(c anyvec.Creator, hiddenSize int) *PlainScorer {
	return &PlainScorer{
		Proj:    anynet.NewFC(c, hiddenSize, hiddenSize),
		Context: randomContext(c, hiddenSize),
	}
}

// DeserializePlainScorer deserializes a PlainScorer.
func DeserializePlainScorer(d []byte) (*PlainScorer, error) {
	var p PlainScorer
	var context *anyvecsave.S
	if err := serializer.DeserializeAny(d, &p.Proj, &context); err != nil {
		return nil, essentials.AddCtx("deserialize PlainScorer", err)
	}
	p.Context = anydiff.NewVar(context.Vector)
	return &p, nil
}

// Score computes the attention scores.
// The ctx argument is ignored.
func (p *PlainScorer) Score(hidden, ctx anydiff.Res, batch, steps int) anydiff.Res {
	n := batch * steps
	return dotRows(anydiff.Tanh(p.Proj.Apply(hidden, n)), p.Context, n)
}

// Parameters returns the scorer's parameters.
func (p *PlainScorer) Parameters() []*anydiff.Var {
	return append(p.Proj.Parameters(), p.Context)
}

// SerializerType returns the unique ID used to serialize
// a PlainScorer with the serializer package.
func (p *PlainScorer) SerializerType() string {
	return "github.com/unixpickle/han.PlainScorer"
}

// Serialize serializes the PlainScorer.
func (p *PlainScorer) Serialize() ([]byte, error) {
	return serializer.SerializeAny(p.Proj, &anyvecsave.S{Vector: p.Context.Vector})
}

func (p *PlainScorer) namedParameters(prefix string, m map[string]*anydiff.Var) {
	namedFC(prefix+"proj", p.Proj, m)
	m[prefix+"context"] = p.Context
}

// A CondScorer scores each position from its hidden
// state together with a context vector for the entire
// sequence, such as subject and object embeddings.
//
// The score is u·tanh(W_c*ctx + W_h*h + b).
type CondScorer struct {
	Combiner *Combiner
	Context  *anydiff.Var
}

// NewCondScorer creates a randomly initialized
// CondScorer.
func NewCondScorer(c anyvec.Creator, ctxSize, hiddenSize int) *CondScorer {
	return &CondScorer{
		Combiner: NewCombiner(c, ctxSize, hiddenSize, hiddenSize),
		Context:  randomContext(c, hiddenSize),
	}
}

// DeserializeCondScorer deserializes a CondScorer.
func DeserializeCondScorer(d []byte) (*CondScorer, error) {
	var s CondScorer
	var context *anyvecsave.S
	if err := serializer.DeserializeAny(d, &s.Combiner, &context); err != nil {
		return nil, essentials.AddCtx("deserialize CondScorer", err)
	}
	s.Context = anydiff.NewVar(context.Vector)
	return &s, nil
}

// Score computes the attention scores.
// The ctx argument must not be nil.
func (s *CondScorer) Score(hidden, ctx anydiff.Res, batch, steps int) anydiff.Res {
	if ctx == nil {
		panic("conditioned scorer requires a context")
	}
	joined := s.Combiner.ApplyBroadcast(ctx, hidden, batch, steps)
	return dotRows(joined, s.Context, batch*steps)
}

// Parameters returns the scorer's parameters.
func (s *CondScorer) Parameters() []*anydiff.Var {
	return append(s.Combiner.Parameters(), s.Context)
}

// SerializerType returns the unique ID used to serialize
// a CondScorer with the serializer package.
func (s *CondScorer) SerializerType() string {
	return "github.com/unixpickle/han.CondScorer"
}

// Serialize serializes the CondScorer.
func (s *CondScorer) Serialize() ([]byte, error) {
	return serializer.SerializeAny(s.Combiner, &anyvecsave.S{Vector: s.Context.Vector})
}

func (s *CondScorer) namedParameters(prefix string, m map[string]*anydiff.Var) {
	s.Combiner.namedParameters(prefix, m)
	m[prefix+"context"] = s.Context
}

func randomContext(c anyvec.Creator, size int) *anydiff.Var {
	bound := 1 / math.Sqrt(float64(size))
	vals := make([]float64, size)
	for i := range vals {
		vals[i] = (rand.Float64()*2 - 1) * bound
	}
	return anydiff.NewVar(c.MakeVectorData(c.MakeNumericList(vals)))
}
