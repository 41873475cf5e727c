package han

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ConfigVersion is the version of the Config record
// written by this package.
const ConfigVersion = 1

// Config describes the architecture of a Classifier.
//
// It is stored next to the parameters of a saved model,
// so that a model can be rebuilt without looking at the
// shapes of its parameters.
type Config struct {
	Version int `json:"version"`

	VocabSize  int `json:"vocab_size"`
	EmbedSize  int `json:"embed_size"`
	HiddenSize int `json:"hidden_size"`
	NumClasses int `json:"num_classes"`

	// Conditioned enables subject/object embeddings and
	// conditioned attention at both levels.
	Conditioned  bool `json:"conditioned"`
	NumSubjects  int  `json:"num_subjects,omitempty"`
	NumObjects   int  `json:"num_objects,omitempty"`
	IdentitySize int  `json:"identity_size,omitempty"`

	// Dropout is the dropout rate for embeddings during
	// training.
	Dropout float64 `json:"dropout"`
}

// Validate checks that the config describes a valid
// network.
func (c *Config) Validate() error {
	if c.Version != ConfigVersion {
		return fmt.Errorf("unsupported config version: %d", c.Version)
	}
	for _, x := range []struct {
		name  string
		value int
	}{
		{"vocabulary size", c.VocabSize},
		{"embedding size", c.EmbedSize},
		{"hidden size", c.HiddenSize},
		{"class count", c.NumClasses},
	} {
		if x.value <= 0 {
			return fmt.Errorf("invalid %s: %d", x.name, x.value)
		}
	}
	if c.Conditioned {
		if c.NumSubjects <= 0 || c.NumObjects <= 0 || c.IdentitySize <= 0 {
			return errors.New("conditioned model needs subject, object, and identity sizes")
		}
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("invalid dropout rate: %f", c.Dropout)
	}
	return nil
}

func (c *Config) encode() ([]byte, error) {
	return json.Marshal(c)
}

func decodeConfig(d []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(d, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}
