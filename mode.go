package han

import (
	"math/rand"

	"github.com/unixpickle/anydiff"
)

// Mode determines whether a forward pass is part of
// training or inference.
type Mode int

const (
	Inference Mode = iota
	Training
)

// String returns a human-readable name for the mode.
func (m Mode) String() string {
	if m == Training {
		return "training"
	}
	return "inference"
}

// dropout zeroes each component with probability rate
// and scales the remaining ones by 1/(1-rate).
// It is the identity outside of Training mode.
func dropout(in anydiff.Res, rate float64, mode Mode) anydiff.Res {
	if mode != Training || rate <= 0 {
		return in
	}
	keep := 1 - rate
	mask := make([]float64, in.Output().Len())
	for i := range mask {
		if rand.Float64() < keep {
			mask[i] = 1 / keep
		}
	}
	return anydiff.Mul(in, constVector(in.Output().Creator(), mask))
}
