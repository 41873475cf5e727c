package train

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"github.com/pkg/errors"
	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet/anysgd"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/han"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// A Loop trains the Classifier of a Snapshot with Adam
// and reports metrics along the way.
type Loop struct {
	Snapshot *han.Snapshot
	Trainer  *han.Trainer
	Config   *Config
	Logger   *zap.SugaredLogger

	adam *anysgd.Adam
	gen  *rand.Rand
}

// NewLoop creates a Loop for the snapshot's model.
func NewLoop(snap *han.Snapshot, cfg *Config, logger *zap.SugaredLogger) *Loop {
	return &Loop{
		Snapshot: snap,
		Trainer:  &han.Trainer{Model: snap.Classifier},
		Config:   cfg,
		Logger:   logger,
		adam:     &anysgd.Adam{},
		gen:      rand.New(rand.NewSource(cfg.Seed)),
	}
}

// Run trains for Config.Epochs epochs, evaluating on the
// validation and test sets after every epoch.
//
// If savePath is not empty, the final snapshot is saved
// there, and per-epoch snapshots go to savePath plus
// "_snapshot" when Config.Snapshot is set.
func (l *Loop) Run(ctx context.Context, trainSet, val, test []*han.Sample,
	savePath string) error {
	for epoch := 1; epoch <= l.Config.Epochs; epoch++ {
		log := l.Logger.With("epoch", epoch)

		m, err := l.RunEpoch(ctx, trainSet, true)
		if err != nil {
			return errors.Wrapf(err, "epoch %d", epoch)
		}
		logMetrics(log, "training", m)

		if l.Config.Snapshot && savePath != "" {
			path := savePath + "_snapshot"
			if err := l.Snapshot.Save(path); err != nil {
				return errors.Wrapf(err, "epoch %d", epoch)
			}
			log.Infow("saved snapshot", "path", path)
		}

		for _, phase := range []struct {
			name    string
			samples []*han.Sample
		}{{"validation", val}, {"evaluation", test}} {
			if len(phase.samples) == 0 {
				continue
			}
			m, err := l.RunEpoch(ctx, phase.samples, false)
			if err != nil {
				return errors.Wrapf(err, "epoch %d: %s", epoch, phase.name)
			}
			logMetrics(log, phase.name, m)
		}
	}

	if savePath != "" {
		if err := l.Snapshot.Save(savePath); err != nil {
			return err
		}
		l.Logger.Infow("saved model", "path", savePath)
	}
	return nil
}

// RunEpoch makes one pass over the samples.
//
// If optimize is true, the samples are shuffled and the
// model is updated after every batch.
// Otherwise, the model runs in inference mode.
func (l *Loop) RunEpoch(ctx context.Context, samples []*han.Sample,
	optimize bool) (*Metrics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	if optimize {
		order = l.gen.Perm(len(samples))
	}
	var chunks []han.SampleList
	for i := 0; i < len(order); i += l.Config.BatchSize {
		var chunk han.SampleList
		for _, idx := range order[i:minInt(i+l.Config.BatchSize, len(order))] {
			chunk = append(chunk, samples[idx])
		}
		chunks = append(chunks, chunk)
	}

	phase := "evaluation"
	if optimize {
		phase = "training"
	}
	var tracker metricsTracker
	err := l.prefetch(ctx, chunks, func(i int, b *han.Batch) {
		if optimize {
			l.optimize(b)
		} else {
			l.Trainer.Cost(b, han.Inference)
		}
		cost := l.Trainer.LastCostFloat()
		tracker.Add(cost, l.Trainer.LastPredictions(), b.Labels)
		if l.Config.LogEvery > 0 && (i+1)%l.Config.LogEvery == 0 {
			l.Logger.Debugw("batch", "phase", phase, "batch", i+1, "of", len(chunks),
				"cost", cost)
		}
	})
	if err != nil {
		return nil, err
	}
	return tracker.Metrics(), nil
}

func (l *Loop) optimize(b *han.Batch) {
	grad := l.Trainer.Gradient(b)
	clipGradient(grad, l.Config.ClipGrad)
	grad = l.adam.Transform(grad)
	c := l.Snapshot.Classifier.Words.Weights.Vector.Creator()
	grad.Scale(c.MakeNumeric(-l.Config.LearningRate))
	grad.AddToVars()
}

// prefetch builds the batches in the background and
// passes them to use in order.
//
// At most 2*Config.Workers batches are built ahead of
// use.
func (l *Loop) prefetch(ctx context.Context, chunks []han.SampleList,
	use func(i int, b *han.Batch)) error {
	g, ctx := errgroup.WithContext(ctx)
	window := make(chan struct{}, 2*l.Config.Workers)
	jobs := make(chan int)
	results := make([]chan *han.Batch, len(chunks))
	for i := range results {
		results[i] = make(chan *han.Batch, 1)
	}

	g.Go(func() error {
		defer close(jobs)
		for i := range chunks {
			select {
			case window <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case jobs <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < l.Config.Workers; w++ {
		g.Go(func() error {
			for i := range jobs {
				b, err := l.Trainer.Fetch(chunks[i])
				if err != nil {
					return errors.Wrapf(err, "batch %d", i)
				}
				results[i] <- b.(*han.Batch)
			}
			return nil
		})
	}
	g.Go(func() error {
		for i := range chunks {
			select {
			case b := <-results[i]:
				<-window
				use(i, b)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	return g.Wait()
}

// clipGradient scales the gradient so that its total
// norm is at most maxNorm.
// A non-positive maxNorm disables clipping.
func clipGradient(g anydiff.Grad, maxNorm float64) {
	if maxNorm <= 0 {
		return
	}
	var sqNorm float64
	for _, v := range g {
		sqNorm += numericFloat(v.Dot(v))
	}
	norm := math.Sqrt(sqNorm)
	if norm <= maxNorm {
		return
	}
	for _, v := range g {
		v.Scale(v.Creator().MakeNumeric(maxNorm / norm))
	}
}

func logMetrics(log *zap.SugaredLogger, phase string, m *Metrics) {
	log.Infow(phase, "samples", m.Samples, "accuracy", m.Accuracy, "cross_entropy",
		m.CrossEntropy, "mse", m.MSE, "rmse", m.RMSE)
}

func numericFloat(n anyvec.Numeric) float64 {
	switch n := n.(type) {
	case float32:
		return float64(n)
	case float64:
		return n
	default:
		panic(fmt.Sprintf("unsupported numeric: %T", n))
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
