package dataset

import (
	"bufio"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// LoadEmbeddings reads pretrained word vectors in the
// text format used by word2vec and GloVe: one word per
// line followed by its components.
// An optional word2vec header ("count size") is skipped.
//
// Words are lower-cased, and only the first vector of a
// word is kept.
// The result has one row per vocabulary entry, with
// zero rows for PadWord and UnkWord.
func LoadEmbeddings(path string) (*Vocab, [][]float64, error) {
	r, err := openFile(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load embeddings")
	}
	defer r.Close()

	words := []string{PadWord, UnkWord}
	var rows [][]float64
	seen := map[string]bool{PadWord: true, UnkWord: true}
	width := -1

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<16), 1<<24)
	for lineNum := 1; scanner.Scan(); lineNum++ {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		if lineNum == 1 && len(fields) == 2 {
			if _, err := strconv.Atoi(fields[0]); err == nil {
				continue
			}
		}
		if len(fields) < 2 {
			return nil, nil, errors.Errorf("load embeddings: line %d: no components", lineNum)
		}
		if width == -1 {
			width = len(fields) - 1
		} else if len(fields)-1 != width {
			return nil, nil, errors.Errorf("load embeddings: line %d: expected %d components "+
				"but got %d", lineNum, width, len(fields)-1)
		}
		word := strings.ToLower(fields[0])
		if seen[word] {
			continue
		}
		row := make([]float64, width)
		for i, f := range fields[1:] {
			row[i], err = strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, nil, errors.Wrapf(err, "load embeddings: line %d", lineNum)
			}
		}
		seen[word] = true
		words = append(words, word)
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, errors.Wrap(err, "load embeddings")
	}
	if width == -1 {
		return nil, nil, errors.New("load embeddings: no vectors")
	}

	vocab, err := NewVocab(words)
	if err != nil {
		return nil, nil, errors.Wrap(err, "load embeddings")
	}
	reserved := [][]float64{make([]float64, width), make([]float64, width)}
	return vocab, append(reserved, rows...), nil
}
