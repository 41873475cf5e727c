// Command han-train trains a hierarchical attention
// network on preprocessed review records.
package main

import (
	"context"
	"os"
	"os/signal"

	arg "github.com/alexflint/go-arg"
	"github.com/pkg/errors"
	"github.com/unixpickle/han"
	"github.com/unixpickle/han/dataset"
	"github.com/unixpickle/han/internal/logger"
	"github.com/unixpickle/han/train"
	"go.uber.org/zap"
)

type Args struct {
	Data   string `arg:"positional,required" help:"records produced by han-prep"`
	Config string `help:"YAML hyper-parameter file"`

	Emb  string `help:"pretrained word vectors (word2vec/GloVe text format)"`
	Load string `help:"snapshot to resume from"`
	Save string `help:"path for the trained snapshot"`

	Snapshot    bool `help:"save a snapshot after every epoch"`
	Conditioned bool `help:"condition attention on users and items"`
	Epochs      int  `help:"override the number of epochs"`
	BatchSize   int  `arg:"--b-size" help:"override the batch size"`
	Split       int  `help:"override the held-out split"`

	LogMode string `arg:"--log-mode" help:"dev or prod"`
}

func main() {
	args := Args{Epochs: -1, BatchSize: -1, Split: -1, LogMode: "dev"}
	arg.MustParse(&args)

	log, err := logger.New(args.LogMode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	cfg, err := loadConfig(&args)
	if err != nil {
		log.Fatalw("invalid configuration", "error", err)
	}

	recs, err := dataset.ReadRecords(args.Data)
	if err != nil {
		log.Fatalw("failed to read records", "error", err)
	}
	trainIdx, valIdx, testIdx, err := dataset.TrainValTest(dataset.RecordSplits(recs),
		cfg.Split, cfg.ValFraction)
	if err != nil {
		log.Fatalw("failed to split records", "error", err)
	}
	trainRecs := dataset.Select(recs, trainIdx)
	log.Infow("loaded records", "train", len(trainIdx), "validation", len(valIdx),
		"test", len(testIdx))

	snap, enc, err := setupModel(&args, cfg, recs, trainRecs, log)
	if err != nil {
		log.Fatalw("failed to set up model", "error", err)
	}
	modelCfg := snap.Classifier.Config
	log.Infow("model ready", "vocab", modelCfg.VocabSize, "classes", modelCfg.NumClasses,
		"conditioned", modelCfg.Conditioned, "parameters", len(snap.Classifier.Parameters()))

	var sets [3][]*han.Sample
	for i, idx := range [][]int{trainIdx, valIdx, testIdx} {
		var skipped int
		sets[i], skipped = enc.EncodeAll(dataset.Select(recs, idx))
		if skipped > 0 {
			log.Warnw("skipped records", "set", i, "count", skipped)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	loop := train.NewLoop(snap, cfg, log)
	if err := loop.Run(ctx, sets[0], sets[1], sets[2], args.Save); err != nil {
		log.Fatalw("training failed", "error", err)
	}
}

func loadConfig(args *Args) (*train.Config, error) {
	cfg := train.DefaultConfig()
	if args.Config != "" {
		var err error
		cfg, err = train.LoadConfig(args.Config)
		if err != nil {
			return nil, err
		}
	}
	if args.Conditioned {
		cfg.Conditioned = true
	}
	if args.Snapshot {
		cfg.Snapshot = true
	}
	if args.Epochs >= 0 {
		cfg.Epochs = args.Epochs
	}
	if args.BatchSize >= 0 {
		cfg.BatchSize = args.BatchSize
	}
	if args.Split >= 0 {
		cfg.Split = args.Split
	}
	return cfg, cfg.Validate()
}

// setupModel loads or creates the snapshot, along with an
// encoder using its vocabularies.
func setupModel(args *Args, cfg *train.Config, recs, trainRecs []*dataset.Record,
	log *zap.SugaredLogger) (*han.Snapshot, *dataset.Encoder, error) {
	if args.Load != "" {
		snap, err := han.LoadSnapshot(args.Load)
		if err != nil {
			return nil, nil, err
		}
		enc, err := snapshotEncoder(snap, cfg)
		if err != nil {
			return nil, nil, errors.Wrap(err, args.Load)
		}
		log.Infow("loaded snapshot", "path", args.Load)
		return snap, enc, nil
	}

	enc := &dataset.Encoder{
		Classes:  dataset.BuildClassMap(trainRecs),
		MaxSents: cfg.MaxSents,
		MaxWords: cfg.MaxWords,
	}
	var pretrained [][]float64
	if args.Emb != "" {
		var err error
		enc.Words, pretrained, err = dataset.LoadEmbeddings(args.Emb)
		if err != nil {
			return nil, nil, err
		}
		cfg.EmbedSize = len(pretrained[0])
		log.Infow("loaded embeddings", "words", enc.Words.Len(), "size", cfg.EmbedSize)
	} else {
		enc.Words = dataset.BuildVocab(trainRecs, cfg.MaxFeatures)
	}
	if cfg.Conditioned {
		enc.Subjects = dataset.BuildIdentityMap(dataset.Users(recs))
		enc.Objects = dataset.BuildIdentityMap(dataset.Items(recs))
	}

	snap := &han.Snapshot{
		Words:   enc.Words.Words(),
		Classes: enc.Classes.Names(),
	}
	var numSubjects, numObjects int
	if cfg.Conditioned {
		snap.Subjects = enc.Subjects.Names()
		snap.Objects = enc.Objects.Names()
		numSubjects, numObjects = len(snap.Subjects), len(snap.Objects)
	}
	modelCfg := cfg.ModelConfig(enc.Words.Len(), enc.Classes.Len(), numSubjects, numObjects)
	model, err := han.NewClassifier(cfg.Creator(), modelCfg)
	if err != nil {
		return nil, nil, err
	}
	if pretrained != nil {
		if err := model.Words.SetRows(pretrained); err != nil {
			return nil, nil, err
		}
	}
	snap.Classifier = model
	return snap, enc, nil
}

func snapshotEncoder(snap *han.Snapshot, cfg *train.Config) (*dataset.Encoder, error) {
	words, err := dataset.NewVocab(snap.Words)
	if err != nil {
		return nil, err
	}
	classes, err := dataset.ParseClassMap(snap.Classes)
	if err != nil {
		return nil, err
	}
	enc := &dataset.Encoder{
		Words:    words,
		Classes:  classes,
		MaxSents: cfg.MaxSents,
		MaxWords: cfg.MaxWords,
	}
	if snap.Classifier.Config.Conditioned {
		if enc.Subjects, err = dataset.NewIdentityMap(snap.Subjects); err != nil {
			return nil, err
		}
		if enc.Objects, err = dataset.NewIdentityMap(snap.Objects); err != nil {
			return nil, err
		}
	}
	return enc, nil
}
