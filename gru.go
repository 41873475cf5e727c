package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var g GRU
	serializer.RegisterTypedDeserializer(g.SerializerType(), DeserializeGRU)
}

// A GRU is a gated recurrent unit block.
//
// Every gate has a separate input and hidden
// transformation, each with its own biases.
// The start state is all zeros.
type GRU struct {
	InReset   *anynet.FC
	HidReset  *anynet.FC
	InUpdate  *anynet.FC
	HidUpdate *anynet.FC
	InCand    *anynet.FC
	HidCand   *anynet.FC
}

// NewGRU creates a randomly initialized GRU.
func NewGRU(c anyvec.Creator, inSize, hiddenSize int) *GRU {
	return &GRU{
		InReset:   anynet.NewFC(c, inSize, hiddenSize),
		HidReset:  anynet.NewFC(c, hiddenSize, hiddenSize),
		InUpdate:  anynet.NewFC(c, inSize, hiddenSize),
		HidUpdate: anynet.NewFC(c, hiddenSize, hiddenSize),
		InCand:    anynet.NewFC(c, inSize, hiddenSize),
		HidCand:   anynet.NewFC(c, hiddenSize, hiddenSize),
	}
}

// DeserializeGRU deserializes a GRU.
func DeserializeGRU(d []byte) (*GRU, error) {
	var g GRU
	err := serializer.DeserializeAny(d, &g.InReset, &g.HidReset, &g.InUpdate, &g.HidUpdate,
		&g.InCand, &g.HidCand)
	if err != nil {
		return nil, essentials.AddCtx("deserialize GRU", err)
	}
	return &g, nil
}

// InSize returns the size of input vectors.
func (g *GRU) InSize() int {
	return g.InReset.InCount
}

// HiddenSize returns the size of the hidden state.
func (g *GRU) HiddenSize() int {
	return g.HidReset.OutCount
}

// Start produces a batch of n zero states.
func (g *GRU) Start(n int) anyrnn.State {
	return g.funcBlock().Start(n)
}

// PropagateStart propagates through the start state.
func (g *GRU) PropagateStart(s anyrnn.StateGrad, grad anydiff.Grad) {
	g.funcBlock().PropagateStart(s, grad)
}

// Step applies the block for a single timestep.
// The output of the block is its new state.
func (g *GRU) Step(s anyrnn.State, in anyvec.Vector) anyrnn.Res {
	return g.funcBlock().Step(s, in)
}

// Parameters returns the GRU's parameters.
func (g *GRU) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, l := range g.layers() {
		res = append(res, l.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a GRU with the serializer package.
func (g *GRU) SerializerType() string {
	return "github.com/unixpickle/han.GRU"
}

// Serialize serializes the GRU.
func (g *GRU) Serialize() ([]byte, error) {
	return serializer.SerializeAny(g.InReset, g.HidReset, g.InUpdate, g.HidUpdate,
		g.InCand, g.HidCand)
}

func (g *GRU) funcBlock() *anyrnn.FuncBlock {
	return &anyrnn.FuncBlock{
		Func: func(in, state anydiff.Res, n int) (out, newState anydiff.Res) {
			return nil, g.apply(state, in, n)
		},
		MakeStart: func(n int) anydiff.Res {
			c := g.HidReset.Biases.Vector.Creator()
			return anydiff.NewConst(c.MakeVector(n * g.HiddenSize()))
		},
	}
}

// apply computes the n new states for a batch of n
// states and n inputs.
func (g *GRU) apply(state, in anydiff.Res, n int) anydiff.Res {
	return anydiff.Pool(state, func(state anydiff.Res) anydiff.Res {
		reset := anydiff.Sigmoid(anydiff.Add(g.InReset.Apply(in, n), g.HidReset.Apply(state, n)))
		update := anydiff.Sigmoid(anydiff.Add(g.InUpdate.Apply(in, n), g.HidUpdate.Apply(state, n)))
		cand := anydiff.Tanh(anydiff.Add(
			g.InCand.Apply(in, n),
			anydiff.Mul(reset, g.HidCand.Apply(state, n)),
		))
		return anydiff.Pool(cand, func(cand anydiff.Res) anydiff.Res {
			// h' = (1-z)*cand + z*h = cand + z*(h-cand)
			return anydiff.Add(cand, anydiff.Mul(update, anydiff.Sub(state, cand)))
		})
	})
}

func (g *GRU) layers() []*anynet.FC {
	return []*anynet.FC{g.InReset, g.HidReset, g.InUpdate, g.HidUpdate, g.InCand, g.HidCand}
}

func (g *GRU) namedParameters(prefix string, m map[string]*anydiff.Var) {
	names := []string{"in_reset", "hid_reset", "in_update", "hid_update", "in_cand", "hid_cand"}
	for i, l := range g.layers() {
		namedFC(prefix+names[i], l, m)
	}
}

// newBidir joins two blocks into a bidirectional RNN
// whose outputs are the forward output followed by the
// backward output.
func newBidir(forward, backward anyrnn.Block) *anyrnn.Bidir {
	return &anyrnn.Bidir{Forward: forward, Backward: backward, Mixer: anynet.ConcatMixer{}}
}

// blockSizes returns the input and output sizes of a
// recurrent block.
func blockSizes(b anyrnn.Block) (in, out int) {
	switch b := b.(type) {
	case *GRU:
		return b.InSize(), b.HiddenSize()
	case *anyrnn.LSTM:
		out = b.InitLastOut.Vector.Len()
		return b.InValue.InputWeights.Vector.Len() / out, out
	default:
		panic(fmt.Sprintf("unsupported recurrent block: %T", b))
	}
}

func namedBlock(prefix string, b anyrnn.Block, m map[string]*anydiff.Var) {
	switch b := b.(type) {
	case *GRU:
		b.namedParameters(prefix, m)
	case *anyrnn.LSTM:
		gates := []*anyrnn.LSTMGate{b.InValue, b.In, b.Remember, b.Output}
		for i, name := range []string{"in_value", "in_gate", "remember", "out_gate"} {
			gate := gates[i]
			m[prefix+name+".state_weights"] = gate.StateWeights
			m[prefix+name+".input_weights"] = gate.InputWeights
			m[prefix+name+".peephole"] = gate.Peephole
			m[prefix+name+".biases"] = gate.Biases
		}
		m[prefix+"init_out"] = b.InitLastOut
		m[prefix+"init_internal"] = b.InitInternal
	}
}

func namedFC(prefix string, fc *anynet.FC, m map[string]*anydiff.Var) {
	m[prefix+".weights"] = fc.Weights
	m[prefix+".biases"] = fc.Biases
}
