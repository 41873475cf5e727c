// Package han implements hierarchical attention networks
// for document classification.
package han

import (
	"fmt"

	"github.com/unixpickle/anydiff"
	"github.com/unixpickle/anynet"
	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/serializer"
)

func init() {
	var c Classifier
	serializer.RegisterTypedDeserializer(c.SerializerType(), DeserializeClassifier)
}

// A Classifier encodes the words of each sentence into a
// sentence vector, encodes the sentence vectors of each
// document into a document vector, and classifies the
// document vectors.
//
// If Config.Conditioned is set, both encoders use
// attention conditioned on subject and object
// embeddings.
type Classifier struct {
	Config *Config

	Words    *Embedding
	Subjects *Embedding
	Objects  *Embedding

	WordEnc *Encoder
	SentEnc *Encoder
	Out     *anynet.FC
}

// NewClassifier creates a randomly initialized
// Classifier.
func NewClassifier(c anyvec.Creator, cfg *Config) (*Classifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, essentials.AddCtx("new classifier", err)
	}
	cfgCopy := *cfg
	docSize := 2 * cfg.HiddenSize
	res := &Classifier{
		Config: &cfgCopy,
		Words:  NewEmbedding(c, cfg.VocabSize, cfg.EmbedSize, 0, 1),
		Out:    anynet.NewFC(c, docSize, cfg.NumClasses),
	}
	if cfg.Conditioned {
		ctxSize := 2 * cfg.IdentitySize
		res.Subjects = NewEmbedding(c, cfg.NumSubjects, cfg.IdentitySize, 0.01, 0.01)
		res.Objects = NewEmbedding(c, cfg.NumObjects, cfg.IdentitySize, 0.01, 0.01)
		res.WordEnc = NewCondEncoder(c, cfg.EmbedSize, cfg.HiddenSize, ctxSize)
		res.SentEnc = NewCondEncoder(c, docSize, cfg.HiddenSize, ctxSize)
	} else {
		res.WordEnc = NewEncoder(c, cfg.EmbedSize, cfg.HiddenSize)
		res.SentEnc = NewEncoder(c, docSize, cfg.HiddenSize)
	}
	return res, nil
}

// DeserializeClassifier deserializes a Classifier.
func DeserializeClassifier(d []byte) (*Classifier, error) {
	var cfgData, body serializer.Bytes
	if err := serializer.DeserializeAny(d, &cfgData, &body); err != nil {
		return nil, essentials.AddCtx("deserialize Classifier", err)
	}
	cfg, err := decodeConfig(cfgData)
	if err != nil {
		return nil, essentials.AddCtx("deserialize Classifier", err)
	}
	res := &Classifier{Config: cfg}
	targets := []interface{}{&res.Words, &res.WordEnc, &res.SentEnc, &res.Out}
	if cfg.Conditioned {
		targets = append(targets, &res.Subjects, &res.Objects)
	}
	if err := serializer.DeserializeAny(body, targets...); err != nil {
		return nil, essentials.AddCtx("deserialize Classifier", err)
	}
	return res, nil
}

// Apply computes the class logits for the batch, giving
// a row-major [b.NumDocs() x NumClasses] matrix.
//
// Rows are in the document order of the batch; see
// b.Order to map them back to the original samples.
func (c *Classifier) Apply(b *Batch, mode Mode) anydiff.Res {
	words := dropout(c.Words.Lookup(b.timeMajorWords()), c.Config.Dropout, mode)

	var wordCtx, docCtx anydiff.Res
	if c.Config.Conditioned {
		subjects, objects := b.sentenceIdentities()
		wordCtx = c.identityContext(subjects, objects, mode)
		docCtx = c.identityContext(b.Subjects, b.Objects, mode)
	}

	sents := c.WordEnc.Apply(&Padded{
		Data:    words,
		Lengths: b.SentLens,
		VecSize: c.Config.EmbedSize,
	}, wordCtx)

	width := c.WordEnc.OutSize()
	docs := c.SentEnc.Apply(&Padded{
		Data:    reorderSentences(sents, b.Reorder, width),
		Lengths: b.DocLens,
		VecSize: width,
	}, docCtx)

	return c.Out.Apply(docs, b.NumDocs())
}

// Scores computes the class logits for every document in
// inference mode.
// The rows are in the order of the samples that were
// used to build the batch.
func (c *Classifier) Scores(b *Batch) [][]float64 {
	rows := matrixRows(c.Apply(b, Inference).Output(), c.Config.NumClasses)
	res := make([][]float64, len(rows))
	for i, row := range rows {
		res[b.Order[i]] = row
	}
	return res
}

// Predict returns the most likely class for every
// document, in the order of the original samples.
func (c *Classifier) Predict(b *Batch) []int {
	scores := c.Scores(b)
	res := make([]int, len(scores))
	for i, row := range scores {
		res[i] = argmax(row)
	}
	return res
}

// Parameters returns all of the trainable parameters.
func (c *Classifier) Parameters() []*anydiff.Var {
	var res []*anydiff.Var
	for _, p := range c.components() {
		res = append(res, p.Parameters()...)
	}
	return res
}

// SerializerType returns the unique ID used to serialize
// a Classifier with the serializer package.
func (c *Classifier) SerializerType() string {
	return "github.com/unixpickle/han.Classifier"
}

// Serialize serializes the Classifier along with its
// Config.
func (c *Classifier) Serialize() ([]byte, error) {
	cfgData, err := c.Config.encode()
	if err != nil {
		return nil, essentials.AddCtx("serialize Classifier", err)
	}
	parts := []interface{}{c.Words, c.WordEnc, c.SentEnc, c.Out}
	if c.Config.Conditioned {
		parts = append(parts, c.Subjects, c.Objects)
	}
	body, err := serializer.SerializeAny(parts...)
	if err != nil {
		return nil, essentials.AddCtx("serialize Classifier", err)
	}
	return serializer.SerializeAny(serializer.Bytes(cfgData), serializer.Bytes(body))
}

func (c *Classifier) components() []anynet.Parameterizer {
	res := []anynet.Parameterizer{c.Words, c.WordEnc, c.SentEnc, c.Out}
	if c.Config.Conditioned {
		res = append(res, c.Subjects, c.Objects)
	}
	return res
}

func (c *Classifier) identityContext(subjects, objects []int, mode Mode) anydiff.Res {
	subj := dropout(c.Subjects.Lookup(subjects), c.Config.Dropout, mode)
	obj := dropout(c.Objects.Lookup(objects), c.Config.Dropout, mode)
	return concatCols(subj, obj, len(subjects))
}

// reorderSentences arranges a row-major matrix of
// sentence vectors into a time-major Padded layout, with
// step s of document d holding the sentence numbered
// reorder[d][s]-1, or zeros if reorder[d][s] is 0.
func reorderSentences(sents anydiff.Res, reorder [][]int, width int) anydiff.Res {
	numSents := sents.Output().Len() / width
	maxSents := len(reorder[0])
	table := make([]int, 0, maxSents*len(reorder)*width)
	for s := 0; s < maxSents; s++ {
		for d, row := range reorder {
			if len(row) != maxSents {
				panic(fmt.Sprintf("reorder row %d has length %d, expected %d", d, len(row),
					maxSents))
			}
			idx := row[s]
			if idx < 0 || idx > numSents {
				panic(fmt.Sprintf("reorder index %d out of range [0, %d]", idx, numSents))
			}
			for j := 0; j < width; j++ {
				table = append(table, idx*width+j)
			}
		}
	}
	withZero := anydiff.Concat(zeroVector(sents.Output().Creator(), width), sents)
	return gather(withZero, table)
}
