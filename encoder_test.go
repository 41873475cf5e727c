package han

import (
	"math"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestEncoderPadding(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewEncoder(c, 3, 4)
	seqs := randomSequences([]int{5, 3, 3, 1}, 3)
	out := matrixRows(enc.Apply(padSequences(c, seqs, 7, 3), nil).Output(), enc.OutSize())
	for i, seq := range seqs {
		alone := enc.Apply(padSequences(c, [][][]float64{seq}, len(seq), 3), nil).Output()
		if !vectorsClose(out[i], vectorFloats(alone), 1e-8) {
			t.Errorf("sequence %d: expected %v but got %v", i, vectorFloats(alone), out[i])
		}
	}
}

func TestEncoderWeights(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewCondEncoder(c, 3, 4, 2)
	lengths := []int{4, 2, 1}
	seqs := randomSequences(lengths, 3)
	ctx := constVector(c, []float64{1, -1, 0.5, 0.3, -2, 0})
	weights := vectorFloats(enc.Weights(padSequences(c, seqs, 5, 3), ctx).Output())

	for i, length := range lengths {
		var sum float64
		for step := 0; step < 5; step++ {
			w := weights[step*len(lengths)+i]
			if step >= length && w != 0 {
				t.Errorf("sequence %d: padded step %d has weight %f", i, step, w)
			}
			if w < 0 || math.IsNaN(w) {
				t.Errorf("sequence %d: bad weight %f", i, w)
			}
			sum += w
		}
		if math.Abs(sum-1) > 1e-3 {
			t.Errorf("sequence %d: weights sum to %f", i, sum)
		}
	}
	if math.Abs(weights[2]-1) > 1e-3 {
		t.Errorf("single-step sequence should have weight 1, got %f", weights[2])
	}
}

func TestCondEncoderContext(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewCondEncoder(c, 3, 4, 2)
	seqs := randomSequences([]int{4}, 3)
	in := padSequences(c, seqs, 4, 3)

	w1 := vectorFloats(enc.Weights(in, constVector(c, []float64{1, -1})).Output())
	w2 := vectorFloats(enc.Weights(in, constVector(c, []float64{-1, 1})).Output())
	if vectorsClose(w1, w2, 1e-8) {
		t.Error("swapping the context did not change the weights")
	}

	permuted := [][][]float64{{seqs[0][3], seqs[0][1], seqs[0][2], seqs[0][0]}}
	ctx := constVector(c, []float64{1, -1})
	out1 := vectorFloats(enc.Apply(in, ctx).Output())
	out2 := vectorFloats(enc.Apply(padSequences(c, permuted, 4, 3), ctx).Output())
	if vectorsClose(out1, out2, 1e-8) {
		t.Error("permuting the words did not change the output")
	}
}

func TestCondEncoderRequiresContext(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewCondEncoder(c, 3, 4, 2)
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	enc.Apply(padSequences(c, randomSequences([]int{2}, 3), 2, 3), nil)
}

func TestEncoderGradients(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewCondEncoder(c, 2, 3, 2)
	in := padSequences(c, randomSequences([]int{3, 2}, 2), 3, 2)
	ctx := anydiff.NewVar(c.MakeVectorData(c.MakeNumericList([]float64{0.5, -0.3, 1, 0.2})))
	checker := &anydifftest.ResChecker{
		F: func() anydiff.Res {
			return enc.Apply(in, ctx)
		},
		V: append(enc.Parameters(), ctx),
	}
	checker.FullCheck(t)
}
