package dataset

import (
	"strings"
	"unicode"
)

// Tokenize splits text into sentences of lower-case
// tokens.
//
// Words are runs of letters, digits, and inner
// apostrophes.
// Other symbols become tokens of their own, and a run of
// '.', '!', or '?' ends a sentence.
func Tokenize(text string) [][]string {
	var res [][]string
	var sentence []string
	var word strings.Builder
	var ending bool

	flushWord := func() {
		if word.Len() > 0 {
			sentence = append(sentence, strings.ToLower(word.String()))
			word.Reset()
		}
	}
	flushSentence := func() {
		flushWord()
		if len(sentence) > 0 {
			res = append(res, sentence)
			sentence = nil
		}
		ending = false
	}

	runes := []rune(text)
	for i, r := range runes {
		switch {
		case unicode.IsSpace(r):
			flushWord()
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if ending {
				flushSentence()
			}
			word.WriteRune(r)
		case r == '\'' && word.Len() > 0 && i+1 < len(runes) && unicode.IsLetter(runes[i+1]):
			word.WriteRune(r)
		case r == '.' || r == '!' || r == '?':
			flushWord()
			sentence = append(sentence, string(r))
			ending = true
		default:
			if ending {
				flushSentence()
			}
			flushWord()
			if !unicode.IsControl(r) {
				sentence = append(sentence, string(r))
			}
		}
	}
	flushSentence()
	return res
}
