// Command han-prep tokenizes raw reviews and assigns them
// to random splits.
package main

import (
	"context"
	"math/rand"
	"runtime"

	arg "github.com/alexflint/go-arg"
	"github.com/unixpickle/han/dataset"
	"github.com/unixpickle/han/internal/logger"
	"golang.org/x/sync/errgroup"
)

func main() {
	args := struct {
		Input    string `arg:"positional,required" help:"raw reviews (JSON lines, optionally gzipped)"`
		Output   string `arg:"positional,required" help:"output records (.gz to compress)"`
		NbSplits int    `arg:"--nb-splits" help:"number of random splits"`
		Seed     int64  `help:"random seed for shuffling and splits"`
		Workers  int    `help:"tokenizer goroutines"`
		LogMode  string `arg:"--log-mode" help:"dev or prod"`
	}{
		NbSplits: 5,
		Seed:     1,
		Workers:  runtime.NumCPU(),
		LogMode:  "dev",
	}
	p := arg.MustParse(&args)
	if args.NbSplits <= 0 || args.Workers <= 0 {
		p.Fail("split and worker counts must be positive")
	}

	log, err := logger.New(args.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	log.Infow("reading reviews", "path", args.Input)
	reviews, err := dataset.ReadReviews(args.Input)
	if err != nil {
		log.Fatalw("failed to read reviews", "error", err)
	}

	recs := make([]*dataset.Record, len(reviews))
	g, ctx := errgroup.WithContext(context.Background())
	indices := make(chan int)
	g.Go(func() error {
		defer close(indices)
		for i := range reviews {
			select {
			case indices <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	for w := 0; w < args.Workers; w++ {
		g.Go(func() error {
			for i := range indices {
				r := reviews[i]
				recs[i] = &dataset.Record{
					User:      r.ReviewerID,
					Item:      r.ASIN,
					Sentences: dataset.Tokenize(r.Text),
					Rating:    r.Overall,
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalw("failed to tokenize reviews", "error", err)
	}

	var kept []*dataset.Record
	for _, rec := range recs {
		if len(rec.Sentences) > 0 {
			kept = append(kept, rec)
		}
	}
	log.Infow("tokenized reviews", "reviews", len(recs), "empty", len(recs)-len(kept))

	gen := rand.New(rand.NewSource(args.Seed))
	gen.Shuffle(len(kept), func(i, j int) {
		kept[i], kept[j] = kept[j], kept[i]
	})
	counts := make([]int, args.NbSplits)
	for i, s := range dataset.Split(len(kept), args.NbSplits, args.Seed) {
		kept[i].Split = s
		counts[s]++
	}
	log.Infow("assigned splits", "distribution", counts)

	if err := dataset.WriteRecords(args.Output, kept); err != nil {
		log.Fatalw("failed to write records", "error", err)
	}
	log.Infow("wrote records", "path", args.Output, "count", len(kept))
}
