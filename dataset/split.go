package dataset

import (
	"math/rand"

	"github.com/pkg/errors"
)

// Split assigns each of n records to one of numSplits
// random splits.
func Split(n, numSplits int, seed int64) []int {
	gen := rand.New(rand.NewSource(seed))
	res := make([]int, n)
	for i := range res {
		res[i] = gen.Intn(numSplits)
	}
	return res
}

// TrainValTest divides record indices into training,
// validation, and test sets.
//
// Records in testSplit are held out; the first
// valFraction of them are used for validation and the
// rest for testing.
// All other records are used for training.
func TrainValTest(splits []int, testSplit int, valFraction float64) (train, val,
	test []int, err error) {
	if valFraction < 0 || valFraction > 1 {
		return nil, nil, nil, errors.Errorf("invalid validation fraction: %f", valFraction)
	}
	var heldOut []int
	for i, s := range splits {
		if s == testSplit {
			heldOut = append(heldOut, i)
		} else {
			train = append(train, i)
		}
	}
	if len(heldOut) == 0 {
		return nil, nil, nil, errors.Errorf("split %d is empty", testSplit)
	}
	numVal := int(float64(len(heldOut)) * valFraction)
	return train, heldOut[:numVal], heldOut[numVal:], nil
}

// RecordSplits lists the Split field of every record.
func RecordSplits(recs []*Record) []int {
	res := make([]int, len(recs))
	for i, r := range recs {
		res[i] = r.Split
	}
	return res
}

// Select returns the records at the given indices.
func Select(recs []*Record, indices []int) []*Record {
	res := make([]*Record, len(indices))
	for i, idx := range indices {
		res[i] = recs[idx]
	}
	return res
}
