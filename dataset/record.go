// Package dataset turns raw reviews into training samples
// for hierarchical attention networks.
package dataset

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// A Record is a tokenized review.
type Record struct {
	User      string     `json:"user"`
	Item      string     `json:"item"`
	Sentences [][]string `json:"sentences"`
	Rating    float64    `json:"rating"`

	// Split is the random split the record was assigned
	// to during preprocessing.
	Split int `json:"split"`
}

// A Review is a raw review, as found in the Amazon
// review dumps.
type Review struct {
	ReviewerID string  `json:"reviewerID"`
	ASIN       string  `json:"asin"`
	Text       string  `json:"reviewText"`
	Overall    float64 `json:"overall"`
}

// ReadRecords reads a file of JSON records, one per line.
// Files ending in ".gz" are decompressed.
func ReadRecords(path string) ([]*Record, error) {
	var res []*Record
	err := readJSONLines(path, func(dec *json.Decoder) error {
		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		res = append(res, &rec)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "read records")
	}
	return res, nil
}

// WriteRecords writes records as JSON lines, compressing
// them if the path ends in ".gz".
func WriteRecords(path string, recs []*Record) (err error) {
	w, err := createFile(path)
	if err != nil {
		return errors.Wrap(err, "write records")
	}
	defer func() {
		if closeErr := w.Close(); err == nil && closeErr != nil {
			err = errors.Wrap(closeErr, "write records")
		}
	}()
	enc := json.NewEncoder(w)
	for _, rec := range recs {
		if err := enc.Encode(rec); err != nil {
			return errors.Wrap(err, "write records")
		}
	}
	return nil
}

// ReadReviews reads a file of raw JSON reviews, one per
// line.
func ReadReviews(path string) ([]*Review, error) {
	var res []*Review
	err := readJSONLines(path, func(dec *json.Decoder) error {
		var r Review
		if err := dec.Decode(&r); err != nil {
			return err
		}
		res = append(res, &r)
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "read reviews")
	}
	return res, nil
}

func readJSONLines(path string, decode func(dec *json.Decoder) error) error {
	r, err := openFile(path)
	if err != nil {
		return err
	}
	defer r.Close()
	dec := json.NewDecoder(r)
	for i := 0; ; i++ {
		if err := decode(dec); err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "%s: entry %d", path, i)
		}
	}
}

type multiCloser struct {
	io.Reader
	io.Writer
	closers []io.Closer
}

func (m *multiCloser) Close() error {
	var firstErr error
	for _, c := range m.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func openFile(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, errors.Wrap(err, path)
	}
	return &multiCloser{Reader: gz, closers: []io.Closer{gz, f}}, nil
}

func createFile(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz := gzip.NewWriter(f)
	return &multiCloser{Writer: gz, closers: []io.Closer{gz, f}}, nil
}
