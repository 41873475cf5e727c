package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRecords() []*Record {
	return []*Record{
		{
			User:      "u1",
			Item:      "i1",
			Sentences: [][]string{{"Great", "phone", "."}, {"great", "battery"}},
			Rating:    5,
		},
		{
			User:      "u2",
			Item:      "i1",
			Sentences: [][]string{{"bad", "phone"}},
			Rating:    1,
			Split:     2,
		},
		{
			User:      "u1",
			Item:      "i2",
			Sentences: [][]string{{"ok", "."}},
			Rating:    3,
			Split:     1,
		},
	}
}

func TestRecordsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"records.json", "records.json.gz"} {
		path := filepath.Join(dir, name)
		require.NoError(t, WriteRecords(path, testRecords()))
		recs, err := ReadRecords(path)
		require.NoError(t, err)
		assert.Equal(t, testRecords(), recs)
	}
}

func TestReadReviews(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reviews.json")
	data := `{"reviewerID": "A1", "asin": "B1", "reviewText": "Nice.", "overall": 4.0}
{"reviewerID": "A2", "asin": "B1", "reviewText": "", "overall": 2.0, "summary": "meh"}
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	reviews, err := ReadReviews(path)
	require.NoError(t, err)
	assert.Equal(t, []*Review{
		{ReviewerID: "A1", ASIN: "B1", Text: "Nice.", Overall: 4},
		{ReviewerID: "A2", ASIN: "B1", Overall: 2},
	}, reviews)

	require.NoError(t, os.WriteFile(path, []byte(data+"{bad"), 0644))
	_, err = ReadReviews(path)
	assert.Error(t, err)
}

func TestTokenize(t *testing.T) {
	actual := Tokenize("I didn't like it... The screen, though, is GREAT! 10/10")
	expected := [][]string{
		{"i", "didn't", "like", "it", ".", ".", "."},
		{"the", "screen", ",", "though", ",", "is", "great", "!"},
		{"10", "/", "10"},
	}
	assert.Equal(t, expected, actual)
	assert.Empty(t, Tokenize("   \n "))
}

func TestBuildVocab(t *testing.T) {
	v := BuildVocab(testRecords(), 2)
	assert.Equal(t, []string{PadWord, UnkWord, ".", "great"}, v.Words())
	assert.Equal(t, 3, v.ID("GREAT"))
	assert.Equal(t, UnkID, v.ID("phone"))
	assert.Equal(t, "great", v.Word(3))

	full := BuildVocab(testRecords(), 0)
	assert.Equal(t, 8, full.Len())
	assert.Equal(t, []string{PadWord, UnkWord, ".", "great", "phone", "bad", "battery", "ok"},
		full.Words())

	_, err := NewVocab([]string{"a", "b"})
	assert.Error(t, err)
	_, err = NewVocab([]string{PadWord, UnkWord, "x", "x"})
	assert.Error(t, err)
}

func TestMaps(t *testing.T) {
	users := BuildIdentityMap(Users(testRecords()))
	assert.Equal(t, []string{"u1", "u2"}, users.Names())
	id, ok := users.ID("u2")
	assert.True(t, ok)
	assert.Equal(t, 1, id)
	_, ok = users.ID("u3")
	assert.False(t, ok)

	classes := BuildClassMap(testRecords())
	assert.Equal(t, []string{"1", "3", "5"}, classes.Names())
	c, ok := classes.Class(5)
	assert.True(t, ok)
	assert.Equal(t, 2, c)
	_, ok = classes.Class(4)
	assert.False(t, ok)

	parsed, err := ParseClassMap(classes.Names())
	require.NoError(t, err)
	assert.Equal(t, classes, parsed)
	_, err = ParseClassMap([]string{"3", "1"})
	assert.Error(t, err)
}

func TestLoadEmbeddings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "vecs.txt")
	data := "3 2\nthe 0.5 1\nThe 3 3\ncat -1 2.5\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	vocab, rows, err := LoadEmbeddings(path)
	require.NoError(t, err)
	assert.Equal(t, []string{PadWord, UnkWord, "the", "cat"}, vocab.Words())
	assert.Equal(t, [][]float64{{0, 0}, {0, 0}, {0.5, 1}, {-1, 2.5}}, rows)

	require.NoError(t, os.WriteFile(path, []byte("a 1 2\nb 1\n"), 0644))
	_, _, err = LoadEmbeddings(path)
	assert.Error(t, err)
}

func TestSplits(t *testing.T) {
	splits := Split(1000, 5, 1)
	assert.Equal(t, splits, Split(1000, 5, 1))
	counts := make([]int, 5)
	for _, s := range splits {
		counts[s]++
	}
	for _, c := range counts {
		assert.True(t, c > 100, "split sizes %v", counts)
	}

	train, val, test, err := TrainValTest([]int{0, 1, 0, 0, 2, 0}, 0, 0.5)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 4}, train)
	assert.Equal(t, []int{0, 2}, val)
	assert.Equal(t, []int{3, 5}, test)

	_, _, _, err = TrainValTest([]int{1, 1}, 0, 0.5)
	assert.Error(t, err)

	assert.Equal(t, []int{0, 2, 1}, RecordSplits(testRecords()))
	assert.Equal(t, "u2", Select(testRecords(), []int{1})[0].User)
}

func TestEncoder(t *testing.T) {
	recs := testRecords()
	enc := &Encoder{
		Words:    BuildVocab(recs, 0),
		Classes:  BuildClassMap(recs),
		Subjects: BuildIdentityMap(Users(recs)),
		Objects:  BuildIdentityMap(Items(recs)),
		MaxSents: 1,
		MaxWords: 2,
	}
	sample, err := enc.Encode(recs[0])
	require.NoError(t, err)
	assert.Equal(t, 2, sample.Label)
	assert.Equal(t, 0, sample.Subject)
	assert.Equal(t, 0, sample.Object)
	assert.Equal(t, [][]int{{3, 4}}, sample.Sentences)

	bad := *recs[1]
	bad.Rating = 2
	_, err = enc.Encode(&bad)
	assert.Error(t, err)

	empty := *recs[1]
	empty.Sentences = [][]string{{}}
	_, err = enc.Encode(&empty)
	assert.Error(t, err)

	samples, skipped := enc.EncodeAll([]*Record{recs[0], &bad, recs[2]})
	assert.Len(t, samples, 2)
	assert.Equal(t, 1, skipped)
}
