// Package train runs the training loop for hierarchical
// attention networks.
package train

import (
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvec/anyvec32"
	"github.com/unixpickle/anyvec/anyvec64"
	"github.com/unixpickle/han"
	"gopkg.in/yaml.v3"
)

// Config stores the hyper-parameters of a training run.
type Config struct {
	EmbedSize   int  `yaml:"emb_size"`
	HiddenSize  int  `yaml:"hid_size"`
	MaxFeatures int  `yaml:"max_feat"`
	Conditioned bool `yaml:"conditioned"`

	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"lr"`
	ClipGrad     float64 `yaml:"clip_grad"`
	Dropout      float64 `yaml:"dropout"`

	// MaxSents and MaxWords truncate documents when
	// positive.
	MaxSents int `yaml:"max_sents"`
	MaxWords int `yaml:"max_words"`

	// Split is the held-out split; ValFraction of it is
	// used for validation and the rest for testing.
	Split       int     `yaml:"split"`
	ValFraction float64 `yaml:"val_fraction"`

	// Workers is the number of goroutines building batches
	// ahead of the optimizer.
	Workers int `yaml:"workers"`

	// Snapshot saves the model after every epoch.
	Snapshot bool  `yaml:"snapshot"`
	Seed     int64 `yaml:"seed"`
	LogEvery int   `yaml:"log_every"`

	// Precision is 32 or 64.
	Precision int `yaml:"precision"`
}

// DefaultConfig returns the default hyper-parameters.
func DefaultConfig() *Config {
	return &Config{
		EmbedSize:    200,
		HiddenSize:   100,
		MaxFeatures:  10000,
		Epochs:       10,
		BatchSize:    32,
		LearningRate: 0.001,
		ClipGrad:     1,
		Dropout:      0.5,
		ValFraction:  0.5,
		Workers:      3,
		LogEvery:     100,
		Precision:    32,
	}
}

// LoadConfig reads a YAML config file.
// Missing fields keep their default values.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	defer f.Close()

	cfg := DefaultConfig()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrapf(err, "load config %s", path)
	}
	return cfg, nil
}

// Validate checks the hyper-parameters.
func (c *Config) Validate() error {
	switch {
	case c.EmbedSize <= 0 || c.HiddenSize <= 0:
		return errors.New("layer sizes must be positive")
	case c.Epochs < 0:
		return errors.Errorf("invalid epoch count: %d", c.Epochs)
	case c.BatchSize <= 0:
		return errors.Errorf("invalid batch size: %d", c.BatchSize)
	case c.LearningRate <= 0:
		return errors.Errorf("invalid learning rate: %f", c.LearningRate)
	case c.ClipGrad < 0:
		return errors.Errorf("invalid gradient clip: %f", c.ClipGrad)
	case c.Dropout < 0 || c.Dropout >= 1:
		return errors.Errorf("invalid dropout rate: %f", c.Dropout)
	case c.ValFraction < 0 || c.ValFraction > 1:
		return errors.Errorf("invalid validation fraction: %f", c.ValFraction)
	case c.Workers <= 0:
		return errors.Errorf("invalid worker count: %d", c.Workers)
	case c.Precision != 32 && c.Precision != 64:
		return errors.Errorf("unsupported precision: %d", c.Precision)
	}
	return nil
}

// Creator returns the vector creator for the configured
// precision.
func (c *Config) Creator() anyvec.Creator {
	if c.Precision == 64 {
		return anyvec64.DefaultCreator{}
	}
	return anyvec32.DefaultCreator{}
}

// ModelConfig creates the architecture for a model with
// the given vocabulary sizes.
// The subject and object counts are ignored unless the
// config is conditioned.
func (c *Config) ModelConfig(vocab, classes, subjects, objects int) *han.Config {
	res := &han.Config{
		Version:    han.ConfigVersion,
		VocabSize:  vocab,
		EmbedSize:  c.EmbedSize,
		HiddenSize: c.HiddenSize,
		NumClasses: classes,
		Dropout:    c.Dropout,
	}
	if c.Conditioned {
		res.Conditioned = true
		res.NumSubjects = subjects
		res.NumObjects = objects
		res.IdentitySize = c.EmbedSize
	}
	return res
}
