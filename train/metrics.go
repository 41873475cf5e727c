package train

import (
	"math"

	"github.com/montanaflynn/stats"
)

// Metrics summarizes the performance of a model over one
// pass through a dataset.
//
// MSE and RMSE compare predicted class indices with the
// labels, treating classes as ordinal ratings.
// CrossEntropy, MSE, and RMSE are averaged over batches.
type Metrics struct {
	Samples      int
	Accuracy     float64
	CrossEntropy float64
	MSE          float64
	RMSE         float64
}

type metricsTracker struct {
	samples int
	correct int
	costs   stats.Float64Data
	mses    stats.Float64Data
	rmses   stats.Float64Data
}

func (m *metricsTracker) Add(cost float64, predictions, labels []int) {
	errs := make(stats.Float64Data, len(labels))
	for i, label := range labels {
		if predictions[i] == label {
			m.correct++
		}
		diff := float64(predictions[i] - label)
		errs[i] = diff * diff
	}
	mse, _ := stats.Mean(errs)
	m.samples += len(labels)
	m.costs = append(m.costs, cost)
	m.mses = append(m.mses, mse)
	m.rmses = append(m.rmses, math.Sqrt(mse))
}

func (m *metricsTracker) Metrics() *Metrics {
	res := &Metrics{Samples: m.samples}
	if m.samples == 0 {
		return res
	}
	res.Accuracy = float64(m.correct) / float64(m.samples)
	res.CrossEntropy, _ = stats.Mean(m.costs)
	res.MSE, _ = stats.Mean(m.mses)
	res.RMSE, _ = stats.Mean(m.rmses)
	return res
}
