package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var e Encoder
	serializer.RegisterTypedDeserializer(e.SerializerType(), DeserializeEncoder)
}

// An Encoder reduces each sequence in a batch to a single
// vector using attention.
//
// A bidirectional RNN encodes the sequences, the Scorer
// assigns a score to every encoded position, and the
// scores are turned into weights with MaskedSoftmax.
// The output for a sequence is the weighted sum of the
// raw RNN states of that sequence.
//
// The blocks of RNN must be *GRU or *anyrnn.LSTM.
type Encoder struct {
	RNN    *anyrnn.Bidir
	Scorer Scorer
}

// NewEncoder creates an Encoder with GRU blocks and a
// PlainScorer.
//
// The output size is 2*hiddenSize.
func NewEncoder(c anyvec.Creator, inSize, hiddenSize int) *Encoder {
	return &Encoder{
		RNN:    newBidir(NewGRU(c, inSize, hiddenSize), NewGRU(c, inSize, hiddenSize)),
		Scorer: NewPlainScorer(c, 2*hiddenSize),
	}
}

// NewCondEncoder creates an Encoder with LSTM blocks and
// a CondScorer which expects contexts of size ctxSize.
func NewCondEncoder(c anyvec.Creator, inSize, hiddenSize, ctxSize int) *Encoder {
	return &Encoder{
		RNN: newBidir(anyrnn.NewLSTM(c, inSize, hiddenSize),
			anyrnn.NewLSTM(c, inSize, hiddenSize)),
		Scorer: NewCondScorer(c, ctxSize, 2*hiddenSize),
	}
}

// DeserializeEncoder deserializes an Encoder.
func DeserializeEncoder(d []byte) (*Encoder, error) {
	var e Encoder
	if err := serializer.DeserializeAny(d, &e.RNN, &e.Scorer); err != nil {
		return nil, essentials.AddCtx("deserialize Encoder", err)
	}
	return &e, nil
}

// OutSize returns the size of the encoded vectors.
func (e *Encoder) OutSize() int {
	_, fwd := blockSizes(e.RNN.Forward)
	_, bwd := blockSizes(e.RNN.Backward)
	return fwd + bwd
}

// Apply encodes the batch, producing a row-major
// [batch x OutSize()] matrix with rows in the same order
// as the input sequences.
//
// The ctx argument is passed to the Scorer.
func (e *Encoder) Apply(in *Padded, ctx anydiff.Res) anydiff.Res {
	maxLen := in.MaxLen()
	return anydiff.Pool(e.Encode(in), func(hidden anydiff.Res) anydiff.Res {
		weights := e.weights(hidden, ctx, in.Lengths, maxLen)
		return weightedSum(hidden, weights, maxLen, e.OutSize())
	})
}

// Weights computes the time-major [maxLen x batch]
// attention weights that Apply uses for the batch.
func (e *Encoder) Weights(in *Padded, ctx anydiff.Res) anydiff.Res {
	return e.weights(e.Encode(in), ctx, in.Lengths, in.MaxLen())
}

// Encode runs the RNN over the batch.
//
// The result is a time-major [maxLen*batch x OutSize()]
// matrix whose rows are the forward state followed by the
// backward state of every position.
// Rows for padded positions are zero, and padding never
// influences the states of the real positions.
func (e *Encoder) Encode(in *Padded) anydiff.Res {
	in.check()
	if inSize, _ := blockSizes(e.RNN.Forward); in.VecSize != inSize {
		panic(fmt.Sprintf("input size %d does not match RNN input size %d", in.VecSize,
			inSize))
	}
	return padSeq(e.RNN.Apply(in.Seq()), in.MaxLen())
}

// Parameters returns the encoder's parameters.
func (e *Encoder) Parameters() []*anydiff.Var {
	return append(e.RNN.Parameters(), e.Scorer.Parameters()...)
}

// SerializerType returns the unique ID used to serialize
// an Encoder with the serializer package.
func (e *Encoder) SerializerType() string {
	return "github.com/unixpickle/han.Encoder"
}

// Serialize serializes the Encoder.
func (e *Encoder) Serialize() ([]byte, error) {
	return serializer.SerializeAny(e.RNN, e.Scorer)
}

func (e *Encoder) namedParameters(prefix string, m map[string]*anydiff.Var) {
	namedBlock(prefix+"rnn.forward.", e.RNN.Forward, m)
	namedBlock(prefix+"rnn.backward.", e.RNN.Backward, m)
	if n, ok := e.Scorer.(namedParameterizer); ok {
		n.namedParameters(prefix+"attention.", m)
	}
}

func (e *Encoder) weights(hidden, ctx anydiff.Res, lengths []int, maxLen int) anydiff.Res {
	scores := e.Scorer.Score(hidden, ctx, len(lengths), maxLen)
	return MaskedSoftmax(scores, lengths, maxLen)
}

// weightedSum scales every row of the time-major hidden
// matrix by its weight and sums over time.
func weightedSum(hidden, weights anydiff.Res, steps, width int) anydiff.Res {
	return sumSteps(anydiff.Mul(hidden, repeatEach(weights, width)), steps)
}

type namedParameterizer interface {
	namedParameters(prefix string, m map[string]*anydiff.Var)
}
