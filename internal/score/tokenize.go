package score

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-ego/gse"
	"golang.org/x/text/width"
)

var stopwords = map[string]struct{}{
	"的": {}, "了": {}, "和": {}, "与": {}, "及": {}, "或": {}, "等": {}, "在": {},
	"是": {}, "对": {}, "于": {}, "为": {}, "中": {}, "以": {}, "其": {}, "之": {},
	"a": {}, "an": {}, "the": {}, "and": {}, "or": {}, "of": {}, "in": {}, "on": {},
	"for": {}, "to": {}, "with": {}, "by": {}, "is": {}, "are": {}, "based": {},
}

var (
	dictOnce sync.Once
	dict     *gse.Segmenter
	dictErr  error
)

// segmenter loads the Chinese dictionary once
func segmenter() (*gse.Segmenter, error) {
	dictOnce.Do(func() {
		seg := new(gse.Segmenter)
		seg.SkipLog = true
		if err := seg.LoadDict(); err != nil {
			dictErr = err
			return
		}
		dict = seg
	})
	return dict, dictErr
}

// Tokenize splits mixed Chinese and English text into index terms.
// Full-width forms are folded and Latin text is lowercased. Latin letters and
// digits form word tokens. Runs of Han characters are cut in full mode: every
// dictionary word inside the run is a term, overlapping words included, so
// "信息论" yields both "信息" and "信息论". Stopwords are dropped.
func Tokenize(text string) []string {
	text = strings.ToLower(width.Fold.String(text))

	var tokens []string
	var word []rune
	var han []rune

	flushWord := func() {
		if len(word) > 0 {
			tokens = appendToken(tokens, string(word))
			word = word[:0]
		}
	}
	flushHan := func() {
		if len(han) > 0 {
			for _, w := range cutHan(han) {
				tokens = appendToken(tokens, w)
			}
			han = han[:0]
		}
	}

	for _, r := range text {
		switch {
		case unicode.Is(unicode.Han, r):
			flushWord()
			han = append(han, r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			flushHan()
			word = append(word, r)
		default:
			flushWord()
			flushHan()
		}
	}
	flushWord()
	flushHan()

	return tokens
}

// cutHan cuts one run of Han characters. Without a dictionary the run falls
// back to overlapping bigrams.
func cutHan(run []rune) []string {
	seg, err := segmenter()
	if err != nil {
		return bigrams(run)
	}

	var words []string
	for _, w := range seg.CutAll(string(run)) {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}

// bigrams returns the overlapping character pairs of run, or the run itself
// when it is a single character
func bigrams(run []rune) []string {
	if len(run) == 1 {
		return []string{string(run)}
	}
	out := make([]string, 0, len(run))
	for i := 0; i+1 < len(run); i++ {
		out = append(out, string(run[i:i+2]))
	}
	return out
}

func appendToken(tokens []string, token string) []string {
	if _, stop := stopwords[token]; stop {
		return tokens
	}
	return append(tokens, token)
}
