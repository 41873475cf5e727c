package han

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Combiner
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeCombiner)
}

// A Combiner is a feed-forward network that takes a
// per-sequence context vector and a per-position vector
// and produces one output vector per position.
//
// The first layer is split up into two separate
// transformations, so the context only has to be
// transformed once per sequence rather than once per
// position.
// The vectors from these two transformations are added
// and then fed to OutTrans.
type Combiner struct {
	InTrans  [2]anynet.Layer
	OutTrans anynet.Layer
}

// NewCombiner creates a Combiner with tanh outputs.
func NewCombiner(c anyvec.Creator, ctxSize, inSize, outSize int) *Combiner {
	return &Combiner{
		InTrans: [2]anynet.Layer{
			anynet.NewFC(c, ctxSize, outSize),
			anynet.NewFC(c, inSize, outSize),
		},
		OutTrans: anynet.Tanh,
	}
}

// DeserializeCombiner deserializes a Combiner.
func DeserializeCombiner(d []byte) (*Combiner, error) {
	var c Combiner
	err := serializer.DeserializeAny(d, &c.InTrans[0], &c.InTrans[1], &c.OutTrans)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Combiner", err)
	}
	return &c, nil
}

// ApplyBroadcast applies the Combiner to a time-major
// batch of inputs with steps*batch rows, pairing every
// input row with the context of its sequence.
// The ctx argument has one row per sequence.
func (c *Combiner) ApplyBroadcast(ctx, in anydiff.Res, batch, steps int) anydiff.Res {
	n := batch * steps
	return c.OutTrans.Apply(anydiff.Add(
		tile(c.InTrans[0].Apply(ctx, batch), steps),
		c.InTrans[1].Apply(in, n),
	), n)
}

// Parameters returns the network's parameters.
func (c *Combiner) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, l := range []anynet.Layer{c.InTrans[0], c.InTrans[1], c.OutTrans} {
		if p, ok := l.(anynet.Parameterizer); ok {
			res = append(res, p.Parameters()...)
		}
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Combiner with the serializer package.
func (c *Combiner) SerializerType() string {
	return "github.com/unixpickle/han.Combiner"
}

// Serialize serializes a Combiner.
func (c *Combiner) Serialize() ([]byte, error) {
	return serializer.SerializeAny(
		c.InTrans[0],
		c.InTrans[1],
		c.OutTrans,
	)
}

func (c *Combiner) namedParameters(prefix string, m map[string]*anydiff.Var) {
	for i, name := range []string{"context_trans", "hidden_trans"} {
		if fc, ok := c.InTrans[i].(*anynet.FC); ok {
			namedFC(prefix+name, fc, m)
		}
	}
}
