package dataset

import (
	"github.com/pkg/errors"
	"github.com/unixpickle/han"
)

// An Encoder converts Records into han.Samples.
type Encoder struct {
	Words   *Vocab
	Classes *ClassMap

	// Subjects and Objects map users and items to
	// identities.
	// They may be nil for unconditioned models.
	Subjects *IdentityMap
	Objects  *IdentityMap

	// If positive, documents are truncated to MaxSents
	// sentences and sentences to MaxWords words.
	MaxSents int
	MaxWords int
}

// Encode converts a record into a sample.
//
// It fails if the rating or an identity is unknown, or if
// the record has no words.
func (e *Encoder) Encode(rec *Record) (*han.Sample, error) {
	label, ok := e.Classes.Class(rec.Rating)
	if !ok {
		return nil, errors.Errorf("encode: unknown rating %v", rec.Rating)
	}
	res := &han.Sample{Label: label}
	if e.Subjects != nil {
		if res.Subject, ok = e.Subjects.ID(rec.User); !ok {
			return nil, errors.Errorf("encode: unknown user %q", rec.User)
		}
	}
	if e.Objects != nil {
		if res.Object, ok = e.Objects.ID(rec.Item); !ok {
			return nil, errors.Errorf("encode: unknown item %q", rec.Item)
		}
	}

	sents := rec.Sentences
	if e.MaxSents > 0 && len(sents) > e.MaxSents {
		sents = sents[:e.MaxSents]
	}
	for _, sent := range sents {
		if e.MaxWords > 0 && len(sent) > e.MaxWords {
			sent = sent[:e.MaxWords]
		}
		if len(sent) == 0 {
			continue
		}
		ids := make([]int, len(sent))
		for i, w := range sent {
			ids[i] = e.Words.ID(w)
		}
		res.Sentences = append(res.Sentences, ids)
	}
	if len(res.Sentences) == 0 {
		return nil, errors.New("encode: empty document")
	}
	return res, nil
}

// EncodeAll encodes every record, skipping the ones that
// cannot be encoded.
// It returns the samples along with the number of
// skipped records.
func (e *Encoder) EncodeAll(recs []*Record) ([]*han.Sample, int) {
	var res []*han.Sample
	var skipped int
	for _, rec := range recs {
		s, err := e.Encode(rec)
		if err != nil {
			skipped++
			continue
		}
		res = append(res, s)
	}
	return res, skipped
}
