package han

import (
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
)

// A SampleList wraps a slice of Samples for training.
type SampleList []*Sample

// Len returns the number of samples.
func (s SampleList) Len() int {
	return len(s)
}

// Swap swaps two samples.
func (s SampleList) Swap(i, j int) {
	s[i], s[j] = s[j], s[i]
}

// Slice returns a subset of the sample list.
func (s SampleList) Slice(i, j int) anysgd.SampleList {
	return append(SampleList{}, s[i:j]...)
}

// A Trainer creates batches, computes gradients, and adds
// up costs for a Classifier.
//
// The cost is the cross entropy between the predicted
// class distribution and the label, averaged over the
// batch.
type Trainer struct {
	Model *Classifier

	// After every call to TotalCost (and thus Gradient),
	// LastCost is set to the batch cost and LastLogits to
	// the logits of every document in batch order.
	LastCost   anyvec.Numeric
	LastLogits anyvec.Vector
}

// Fetch produces a *Batch for the subset of samples.
// The s argument must be a SampleList.
func (t *Trainer) Fetch(s anysgd.SampleList) (anysgd.Batch, error) {
	b, err := BuildBatch(s.(SampleList))
	if err != nil {
		return nil, essentials.AddCtx("fetch batch", err)
	}
	return b, nil
}

// TotalCost computes the cost of a *Batch in training
// mode.
func (t *Trainer) TotalCost(batch anysgd.Batch) anydiff.Res {
	return t.Cost(batch.(*Batch), Training)
}

// Cost computes the averaged cost of a batch in the given
// mode.
func (t *Trainer) Cost(b *Batch, mode Mode) anydiff.Res {
	logits := t.Model.Apply(b, mode)
	t.LastLogits = logits.Output()

	c := logits.Output().Creator()
	n := b.NumDocs()
	numClasses := t.Model.Config.NumClasses
	oneHot := make([]float64, n*numClasses)
	for i, label := range b.Labels {
		if label < 0 || label >= numClasses {
			panic("label out of range")
		}
		oneHot[i*numClasses+label] = 1
	}
	desired := constVector(c, oneHot)
	cost := anynet.DotCost{}.Cost(desired, anydiff.LogSoftmax(logits, numClasses), n)
	total := anydiff.Scale(anydiff.Sum(cost), c.MakeNumeric(1/float64(n)))
	t.LastCost = c.MakeNumeric(vectorFloats(total.Output())[0])
	return total
}

// Gradient computes the gradient of the batch cost.
//
// The b argument must be a *Batch.
func (t *Trainer) Gradient(b anysgd.Batch) anydiff.Grad {
	grad, lc := anysgd.CosterGrad(t, b, t.Model.Parameters())
	t.LastCost = lc
	return grad
}

// LastPredictions returns the argmax of LastLogits for
// every document, in batch order.
func (t *Trainer) LastPredictions() []int {
	rows := matrixRows(t.LastLogits, t.Model.Config.NumClasses)
	res := make([]int, len(rows))
	for i, row := range rows {
		res[i] = argmax(row)
	}
	return res
}

// LastCostFloat returns LastCost as a float64.
func (t *Trainer) LastCostFloat() float64 {
	return numericFloat(t.LastCost)
}
