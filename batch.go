package han

import (
	"errors"
	"fmt"
	"sort"

	"github.com/unixpickle/essentials"
)

// PadID is the word ID used for padding.
const PadID = 0

// A Sample is a labeled document.
type Sample struct {
	// Subject and Object identify the author and the item
	// of a document.
	// They are only used by conditioned models.
	Subject int
	Object  int

	// Sentences stores the word IDs of each sentence.
	Sentences [][]int

	Label int
}

// A Batch is a group of documents arranged for the
// Classifier.
//
// Documents are sorted by descending sentence count, and
// all of the sentences are pooled together and sorted by
// descending word count.
type Batch struct {
	// Words stores the padded word IDs of every sentence,
	// one row per sentence.
	Words [][]int

	// SentLens stores the word count of every row of Words.
	SentLens []int

	// DocLens stores the sentence count of every document.
	DocLens []int

	// Reorder maps document d and sentence s to 1 plus the
	// row of the sentence in Words, or to 0 if document d
	// has no sentence s.
	Reorder [][]int

	// SentDocs stores the document index of every row of
	// Words.
	SentDocs []int

	Labels   []int
	Subjects []int
	Objects  []int

	// Order maps each document to its index in the list of
	// samples used to build the batch.
	Order []int
}

// BuildBatch arranges samples into a Batch.
//
// Ties are broken by the original order, so the result is
// deterministic.
func BuildBatch(samples []*Sample) (*Batch, error) {
	if len(samples) == 0 {
		return nil, errors.New("build batch: empty batch")
	}
	for i, s := range samples {
		if err := checkSample(s); err != nil {
			return nil, essentials.AddCtx(fmt.Sprintf("build batch: sample %d", i), err)
		}
	}

	order := make([]int, len(samples))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return len(samples[order[i]].Sentences) > len(samples[order[j]].Sentences)
	})

	type flatSentence struct {
		doc   int
		index int
		words []int
	}
	var flat []flatSentence
	b := &Batch{
		DocLens:  make([]int, len(samples)),
		Labels:   make([]int, len(samples)),
		Subjects: make([]int, len(samples)),
		Objects:  make([]int, len(samples)),
		Order:    order,
	}
	for doc, idx := range order {
		s := samples[idx]
		b.DocLens[doc] = len(s.Sentences)
		b.Labels[doc] = s.Label
		b.Subjects[doc] = s.Subject
		b.Objects[doc] = s.Object
		for i, sent := range s.Sentences {
			flat = append(flat, flatSentence{doc: doc, index: i, words: sent})
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		return len(flat[i].words) > len(flat[j].words)
	})

	maxWords := len(flat[0].words)
	b.Reorder = make([][]int, len(samples))
	for i := range b.Reorder {
		b.Reorder[i] = make([]int, b.DocLens[0])
	}
	b.Words = make([][]int, len(flat))
	b.SentLens = make([]int, len(flat))
	b.SentDocs = make([]int, len(flat))
	for i, s := range flat {
		row := make([]int, maxWords)
		copy(row, s.words)
		b.Words[i] = row
		b.SentLens[i] = len(s.words)
		b.SentDocs[i] = s.doc
		b.Reorder[s.doc][s.index] = i + 1
	}

	return b, nil
}

// MaxWords returns the padded sentence length.
func (b *Batch) MaxWords() int {
	return b.SentLens[0]
}

// MaxSents returns the padded document length.
func (b *Batch) MaxSents() int {
	return b.DocLens[0]
}

// NumDocs returns the number of documents.
func (b *Batch) NumDocs() int {
	return len(b.DocLens)
}

// timeMajorWords lists the word IDs of Words step by
// step, the way a Padded batch lays out its vectors.
func (b *Batch) timeMajorWords() []int {
	res := make([]int, 0, len(b.Words)*b.MaxWords())
	for t := 0; t < b.MaxWords(); t++ {
		for _, row := range b.Words {
			res = append(res, row[t])
		}
	}
	return res
}

// sentenceIdentities looks up the subject and object of
// the document of every sentence.
func (b *Batch) sentenceIdentities() (subjects, objects []int) {
	subjects = make([]int, len(b.SentDocs))
	objects = make([]int, len(b.SentDocs))
	for i, doc := range b.SentDocs {
		subjects[i] = b.Subjects[doc]
		objects[i] = b.Objects[doc]
	}
	return
}

func checkSample(s *Sample) error {
	if len(s.Sentences) == 0 {
		return errors.New("document has no sentences")
	}
	for i, sent := range s.Sentences {
		if len(sent) == 0 {
			return fmt.Errorf("sentence %d is empty", i)
		}
		for _, id := range sent {
			if id < 0 {
				return fmt.Errorf("sentence %d has negative word ID %d", i, id)
			}
		}
	}
	return nil
}
