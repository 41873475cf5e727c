package han

import (
	"math"
	"math/rand"
	"testing"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anydiff/anydifftest"
	"github.com/unixpickle/anydiff/anyseq"
	"github.com/unixpickle/anynet/anyrnn"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec64"
)

func TestEncodePadding(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	for _, enc := range []*Encoder{NewEncoder(c, 3, 4), NewCondEncoder(c, 3, 4, 2)} {
		seqs := randomSequences([]int{4, 2, 1}, 3)
		batch := enc.Encode(padSequences(c, seqs, 6, 3)).Output()
		batchRows := matrixRows(batch, enc.OutSize())

		for i, seq := range seqs {
			alone := enc.Encode(padSequences(c, [][][]float64{seq}, len(seq), 3)).Output()
			aloneRows := matrixRows(alone, enc.OutSize())
			for step := range seq {
				expected := aloneRows[step]
				actual := batchRows[step*len(seqs)+i]
				if !vectorsClose(expected, actual, 1e-8) {
					t.Errorf("%T sequence %d step %d: expected %v but got %v",
						enc.RNN.Forward, i, step, expected, actual)
				}
			}
			for step := len(seq); step < 6; step++ {
				for _, x := range batchRows[step*len(seqs)+i] {
					if x != 0 {
						t.Fatalf("sequence %d step %d: padded output is not zero", i, step)
					}
				}
			}
		}
	}
}

func TestEncodeBackwardStartsAtEnd(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewEncoder(c, 2, 3)
	seq := randomSequences([]int{3}, 2)[0]
	out := matrixRows(enc.Encode(padSequences(c, [][][]float64{seq}, 3, 2)).Output(), 6)

	// The backward half of the last step only sees the last
	// input, just like the forward half of the first step
	// only sees the first input.
	reversed := [][]float64{seq[2], seq[1], seq[0]}
	swapped := &Encoder{RNN: newBidir(enc.RNN.Backward, enc.RNN.Forward)}
	revOut := matrixRows(swapped.Encode(padSequences(c, [][][]float64{reversed}, 3, 2)).Output(), 6)
	for step := 0; step < 3; step++ {
		if !vectorsClose(out[step][3:], revOut[2-step][:3], 1e-8) {
			t.Errorf("step %d: backward state does not match reversed forward state", step)
		}
	}
}

func TestGRUStep(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	g := NewGRU(c, 2, 3)
	in := constVector(c, []float64{1, -1, 0.5, 2})
	state := g.Start(2)
	res := g.Step(state, in.Output())
	expected := vectorFloats(g.apply(zeroVector(c, 6), in, 2).Output())
	if actual := vectorFloats(res.Output()); !vectorsClose(actual, expected, 1e-8) {
		t.Errorf("expected %v but got %v", expected, actual)
	}

	// Dropping the second sequence keeps the first state.
	next := g.Step(res.State().Reduce(anyrnn.PresentMap{true, false}), in.Output().Slice(0, 2))
	first := constVector(c, vectorFloats(res.Output())[:3])
	expected = vectorFloats(g.apply(first, constVector(c, []float64{1, -1}), 1).Output())
	if actual := vectorFloats(next.Output()); !vectorsClose(actual, expected, 1e-8) {
		t.Errorf("expected %v but got %v", expected, actual)
	}
}

func TestEncodeGradients(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	for _, enc := range []*Encoder{NewEncoder(c, 2, 3), NewCondEncoder(c, 2, 3, 2)} {
		seqs := randomSequences([]int{3, 3, 1}, 2)
		in := padSequences(c, seqs, 4, 2)
		inVar := anydiff.NewVar(in.Data.Output())
		in.Data = inVar
		checker := &anydifftest.ResChecker{
			F: func() anydiff.Res {
				return enc.Encode(in)
			},
			V: append(enc.RNN.Parameters(), inVar),
		}
		checker.FullCheck(t)
	}
}

func TestPaddedPreconditions(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	enc := NewEncoder(c, 2, 2)
	for name, in := range map[string]*Padded{
		"unsorted": {Data: zeroVector(c, 12), Lengths: []int{1, 2}, VecSize: 2},
		"empty":    {Data: zeroVector(c, 12), Lengths: []int{2, 0}, VecSize: 2},
		"too long": {Data: zeroVector(c, 12), Lengths: []int{4, 1}, VecSize: 2},
		"width":    {Data: zeroVector(c, 18), Lengths: []int{3, 1}, VecSize: 3},
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", name)
				}
			}()
			enc.Encode(in)
		}()
	}
}

func TestPaddedSeq(t *testing.T) {
	c := anyvec64.DefaultCreator{}
	seqs := [][][]float64{{{1}, {2}, {3}}, {{4}}}
	in := padSequences(c, seqs, 4, 1)
	steps := in.Seq().Output()
	if len(steps) != 3 {
		t.Fatalf("expected 3 steps but got %d", len(steps))
	}
	if actual := anyseq.SeparateSeqs(steps); len(actual) != 2 || len(actual[0]) != 3 ||
		len(actual[1]) != 1 {
		t.Fatalf("unexpected sequence shapes")
	}
	padded := vectorFloats(padSeq(in.Seq(), 4).Output())
	expected := []float64{1, 4, 2, 0, 3, 0, 0, 0}
	if !vectorsClose(padded, expected, 0) {
		t.Errorf("expected %v but got %v", expected, padded)
	}
}

// randomSequences creates one sequence of random vectors
// per length.
func randomSequences(lengths []int, vecSize int) [][][]float64 {
	res := make([][][]float64, len(lengths))
	for i, l := range lengths {
		for j := 0; j < l; j++ {
			vec := make([]float64, vecSize)
			for k := range vec {
				vec[k] = rand.NormFloat64()
			}
			res[i] = append(res[i], vec)
		}
	}
	return res
}

// padSequences creates a Padded batch, filling padded
// slots with junk.
func padSequences(c anyvec.Creator, seqs [][][]float64, maxLen, vecSize int) *Padded {
	var data []float64
	lengths := make([]int, len(seqs))
	for t := 0; t < maxLen; t++ {
		for i, seq := range seqs {
			lengths[i] = len(seq)
			if t < len(seq) {
				data = append(data, seq[t]...)
			} else {
				for k := 0; k < vecSize; k++ {
					data = append(data, 3.5)
				}
			}
		}
	}
	return &Padded{Data: constVector(c, data), Lengths: lengths, VecSize: vecSize}
}

func vectorsClose(v1, v2 []float64, prec float64) bool {
	if len(v1) != len(v2) {
		return false
	}
	for i, x := range v1 {
		if math.IsNaN(v2[i]) || math.Abs(x-v2[i]) > prec {
			return false
		}
	}
	return true
}
