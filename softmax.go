package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
)

// maskEpsilon is added to every softmax denominator so
// that very negative scores never produce a division by
// zero.
const maskEpsilon = 1e-4

// MaskedSoftmax applies the softmax over the time
// dimension of a time-major [maxLen x batch] score matrix.
//
// Positions at or beyond lengths[b] are masked out
// explicitly, so they get a weight of exactly zero no
// matter what their scores are.
// Every length must be at least 1.
func MaskedSoftmax(scores anydiff.Res, lengths []int, maxLen int) anydiff.Res {
	batch := len(lengths)
	if scores.Output().Len() != batch*maxLen {
		panic(fmt.Sprintf("score count %d does not match %d steps of batch %d",
			scores.Output().Len(), maxLen, batch))
	}
	c := scores.Output().Creator()
	mask := anydiff.NewConst(lengthMask(c, lengths, maxLen))
	exps := anydiff.Mul(anydiff.Exp(scores), mask)
	return anydiff.Pool(exps, func(exps anydiff.Res) anydiff.Res {
		eps := c.MakeVector(batch)
		eps.AddScalar(c.MakeNumeric(maskEpsilon))
		sums := anydiff.Add(sumSteps(exps, maxLen), anydiff.NewConst(eps))
		return anydiff.Div(exps, tile(sums, maxLen))
	})
}

// lengthMask creates a time-major mask which is 1 for
// every position inside a sequence and 0 elsewhere.
func lengthMask(c anyvec.Creator, lengths []int, maxLen int) anyvec.Vector {
	mask := make([]float64, maxLen*len(lengths))
	for t := 0; t < maxLen; t++ {
		for b, l := range lengths {
			if t < l {
				mask[t*len(lengths)+b] = 1
			}
		}
	}
	return c.MakeVectorData(c.MakeNumericList(mask))
}
