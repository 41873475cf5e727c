package dataset

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/unixpickle/han"
)

// Reserved vocabulary entries.
const (
	PadWord = "_pad_"
	UnkWord = "_unk_"

	PadID = han.PadID
	UnkID = 1
)

// A Vocab maps words to IDs and back.
//
// The first two IDs are always PadWord and UnkWord.
type Vocab struct {
	words []string
	ids   map[string]int
}

// NewVocab creates a Vocab from a list of words, where
// words[i] has ID i.
//
// The list must start with PadWord and UnkWord and must
// not contain duplicates.
func NewVocab(words []string) (*Vocab, error) {
	if len(words) < 2 || words[PadID] != PadWord || words[UnkID] != UnkWord {
		return nil, errors.New("new vocab: missing reserved words")
	}
	v := &Vocab{words: append([]string{}, words...), ids: map[string]int{}}
	for i, w := range words {
		if _, ok := v.ids[w]; ok {
			return nil, errors.Errorf("new vocab: duplicate word %q", w)
		}
		v.ids[w] = i
	}
	return v, nil
}

// BuildVocab creates a Vocab from the most frequent
// lower-case words of the records.
//
// If maxFeatures is positive, at most maxFeatures words
// are kept besides the reserved ones.
// Ties are broken alphabetically.
func BuildVocab(recs []*Record, maxFeatures int) *Vocab {
	counts := map[string]int{}
	for _, rec := range recs {
		for _, sent := range rec.Sentences {
			for _, w := range sent {
				counts[strings.ToLower(w)]++
			}
		}
	}
	delete(counts, PadWord)
	delete(counts, UnkWord)

	words := make([]string, 0, len(counts))
	for w := range counts {
		words = append(words, w)
	}
	sort.Slice(words, func(i, j int) bool {
		ci, cj := counts[words[i]], counts[words[j]]
		if ci != cj {
			return ci > cj
		}
		return words[i] < words[j]
	})
	if maxFeatures > 0 && len(words) > maxFeatures {
		words = words[:maxFeatures]
	}

	v, err := NewVocab(append([]string{PadWord, UnkWord}, words...))
	if err != nil {
		panic(err)
	}
	return v
}

// ID returns the ID of the lower-cased word, or UnkID.
func (v *Vocab) ID(word string) int {
	if id, ok := v.ids[strings.ToLower(word)]; ok {
		return id
	}
	return UnkID
}

// Word returns the word with the given ID.
func (v *Vocab) Word(id int) string {
	return v.words[id]
}

// Len returns the number of words, including the
// reserved ones.
func (v *Vocab) Len() int {
	return len(v.words)
}

// Words returns a copy of the word list.
func (v *Vocab) Words() []string {
	return append([]string{}, v.words...)
}

// An IdentityMap assigns IDs to subjects (users) or
// objects (items).
type IdentityMap struct {
	names []string
	ids   map[string]int
}

// NewIdentityMap creates an IdentityMap where names[i]
// has ID i.
func NewIdentityMap(names []string) (*IdentityMap, error) {
	m := &IdentityMap{names: append([]string{}, names...), ids: map[string]int{}}
	for i, name := range names {
		if _, ok := m.ids[name]; ok {
			return nil, errors.Errorf("new identity map: duplicate name %q", name)
		}
		m.ids[name] = i
	}
	return m, nil
}

// BuildIdentityMap creates an IdentityMap from the sorted
// set of names.
func BuildIdentityMap(names []string) *IdentityMap {
	set := map[string]bool{}
	for _, n := range names {
		set[n] = true
	}
	sorted := make([]string, 0, len(set))
	for n := range set {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	m, _ := NewIdentityMap(sorted)
	return m
}

// Users lists the user of every record.
func Users(recs []*Record) []string {
	res := make([]string, len(recs))
	for i, r := range recs {
		res[i] = r.User
	}
	return res
}

// Items lists the item of every record.
func Items(recs []*Record) []string {
	res := make([]string, len(recs))
	for i, r := range recs {
		res[i] = r.Item
	}
	return res
}

// ID looks up the ID of a name.
func (m *IdentityMap) ID(name string) (int, bool) {
	id, ok := m.ids[name]
	return id, ok
}

// Len returns the number of names.
func (m *IdentityMap) Len() int {
	return len(m.names)
}

// Names returns a copy of the name list.
func (m *IdentityMap) Names() []string {
	return append([]string{}, m.names...)
}

// A ClassMap maps ratings to class indices, in ascending
// order of rating.
type ClassMap struct {
	ratings []float64
}

// BuildClassMap creates a ClassMap from the distinct
// ratings of the records.
func BuildClassMap(recs []*Record) *ClassMap {
	set := map[float64]bool{}
	for _, r := range recs {
		set[r.Rating] = true
	}
	res := &ClassMap{}
	for r := range set {
		res.ratings = append(res.ratings, r)
	}
	sort.Float64s(res.ratings)
	return res
}

// ParseClassMap recreates a ClassMap from the output of
// Names.
func ParseClassMap(names []string) (*ClassMap, error) {
	res := &ClassMap{}
	for i, name := range names {
		r, err := strconv.ParseFloat(name, 64)
		if err != nil {
			return nil, errors.Wrap(err, "parse class map")
		}
		if i > 0 && r <= res.ratings[i-1] {
			return nil, errors.New("parse class map: ratings must be increasing")
		}
		res.ratings = append(res.ratings, r)
	}
	return res, nil
}

// Class returns the class index of a rating.
func (c *ClassMap) Class(rating float64) (int, bool) {
	idx := sort.SearchFloat64s(c.ratings, rating)
	if idx < len(c.ratings) && c.ratings[idx] == rating {
		return idx, true
	}
	return 0, false
}

// Rating returns the rating of a class index.
func (c *ClassMap) Rating(class int) float64 {
	return c.ratings[class]
}

// Len returns the number of classes.
func (c *ClassMap) Len() int {
	return len(c.ratings)
}

// Names formats the rating of every class.
func (c *ClassMap) Names() []string {
	res := make([]string, len(c.ratings))
	for i, r := range c.ratings {
		res[i] = strconv.FormatFloat(r, 'g', -1, 64)
	}
	return res
}
