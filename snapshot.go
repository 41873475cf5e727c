package han

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var s Snapshot
	serializer.RegisterTypedDeserializer(s.SerializerType(), DeserializeSnapshot)
}

// NamedParameters maps a path for each parameter, such as
// "word.rnn.forward.in_reset.weights", to the parameter.
func (c *Classifier) NamedParameters() map[string]*anydiff.Var {
	res := map[string]*anydiff.Var{
		"embed.weight": c.Words.Weights,
	}
	if c.Config.Conditioned {
		res["subjects.weight"] = c.Subjects.Weights
		res["objects.weight"] = c.Objects.Weights
	}
	c.WordEnc.namedParameters("word.", res)
	c.SentEnc.namedParameters("sent.", res)
	namedFC("out", c.Out, res)
	return res
}

// ParameterValues copies the value of every named
// parameter.
func (c *Classifier) ParameterValues() map[string][]float64 {
	res := map[string][]float64{}
	for name, v := range c.NamedParameters() {
		res[name] = vectorFloats(v.Vector)
	}
	return res
}

// NewClassifierFromParameters builds a Classifier from a
// Config and the values of all of its named parameters.
//
// It fails if a parameter is missing, unknown, or has the
// wrong size.
func NewClassifierFromParameters(c anyvec.Creator, cfg *Config,
	params map[string][]float64) (*Classifier, error) {
	res, err := NewClassifier(c, cfg)
	if err != nil {
		return nil, err
	}
	named := res.NamedParameters()
	for name := range params {
		if _, ok := named[name]; !ok {
			return nil, fmt.Errorf("load parameters: unknown parameter %q", name)
		}
	}
	names := make([]string, 0, len(named))
	for name := range named {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := named[name]
		vals, ok := params[name]
		if !ok {
			return nil, fmt.Errorf("load parameters: missing parameter %q", name)
		}
		if len(vals) != v.Vector.Len() {
			return nil, fmt.Errorf("load parameters: %q has size %d, expected %d", name,
				len(vals), v.Vector.Len())
		}
		v.Vector.SetData(c.MakeNumericList(vals))
	}
	return res, nil
}

// A Snapshot bundles a Classifier with the vocabularies
// needed to turn raw data into Samples.
//
// Words[i] is the word with ID i, and likewise for the
// other lists.
// Classes lists the label names in class order.
type Snapshot struct {
	Classifier *Classifier

	Words    []string
	Subjects []string
	Objects  []string
	Classes  []string
}

type snapshotVocab struct {
	Words    []string `json:"words"`
	Subjects []string `json:"subjects,omitempty"`
	Objects  []string `json:"objects,omitempty"`
	Classes  []string `json:"classes"`
}

// LoadSnapshot reads a Snapshot from a file.
func LoadSnapshot(path string) (*Snapshot, error) {
	var s *Snapshot
	if err := serializer.LoadAny(path, &s); err != nil {
		return nil, essentials.AddCtx("load snapshot", err)
	}
	return s, nil
}

// DeserializeSnapshot deserializes a Snapshot.
func DeserializeSnapshot(d []byte) (*Snapshot, error) {
	var res Snapshot
	var vocabData serializer.Bytes
	if err := serializer.DeserializeAny(d, &res.Classifier, &vocabData); err != nil {
		return nil, essentials.AddCtx("deserialize Snapshot", err)
	}
	var vocab snapshotVocab
	if err := json.Unmarshal(vocabData, &vocab); err != nil {
		return nil, essentials.AddCtx("deserialize Snapshot", err)
	}
	res.Words = vocab.Words
	res.Subjects = vocab.Subjects
	res.Objects = vocab.Objects
	res.Classes = vocab.Classes
	if err := res.check(); err != nil {
		return nil, essentials.AddCtx("deserialize Snapshot", err)
	}
	return &res, nil
}

// Save writes the Snapshot to a file.
func (s *Snapshot) Save(path string) error {
	if err := s.check(); err != nil {
		return essentials.AddCtx("save snapshot", err)
	}
	if err := serializer.SaveAny(path, s); err != nil {
		return essentials.AddCtx("save snapshot", err)
	}
	return nil
}

// SerializerType returns the unique ID used to serialize
// a Snapshot with the serializer package.
func (s *Snapshot) SerializerType() string {
	return "github.com/unixpickle/han.Snapshot"
}

// Serialize serializes the Snapshot.
func (s *Snapshot) Serialize() ([]byte, error) {
	vocabData, err := json.Marshal(&snapshotVocab{
		Words:    s.Words,
		Subjects: s.Subjects,
		Objects:  s.Objects,
		Classes:  s.Classes,
	})
	if err != nil {
		return nil, essentials.AddCtx("serialize Snapshot", err)
	}
	return serializer.SerializeAny(s.Classifier, serializer.Bytes(vocabData))
}

// check makes sure the vocabularies agree with the
// Classifier's Config.
func (s *Snapshot) check() error {
	cfg := s.Classifier.Config
	if len(s.Words) != cfg.VocabSize {
		return fmt.Errorf("vocabulary has %d words but model expects %d", len(s.Words),
			cfg.VocabSize)
	}
	if len(s.Classes) != cfg.NumClasses {
		return fmt.Errorf("snapshot has %d classes but model expects %d", len(s.Classes),
			cfg.NumClasses)
	}
	if cfg.Conditioned && (len(s.Subjects) != cfg.NumSubjects ||
		len(s.Objects) != cfg.NumObjects) {
		return errors.New("identity vocabularies do not match model")
	}
	return nil
}
