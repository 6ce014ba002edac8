// Package tokenizer maps raw document text to an ordered sequence of
// normalised word tokens. Term positions stored in the index are offsets
// into this output, so every implementation must be deterministic: the same
// text always yields the same tokens in the same order.
package tokenizer

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/reiver/go-porterstemmer"
	"golang.org/x/text/unicode/norm"
)

// Tokenizer turns text into tokens.
type Tokenizer interface {
	Tokenize(text string) []string
}

// Func adapts an ordinary function to the Tokenizer interface.
type Func func(text string) []string

// Tokenize calls f(text).
func (f Func) Tokenize(text string) []string {
	return f(text)
}

// Whitespace splits on Unicode white space and applies no normalisation.
var Whitespace Tokenizer = Func(strings.Fields)

const zwnj = "\u200c"

var (
	// Persian verbal prefix and plural/comparative suffixes are written
	// either detached or joined with a zero-width non-joiner; both forms are
	// folded to the joined form so they produce one token.
	detachedPrefix = regexp.MustCompile(`(^|\s)(می|نمی)\s+`)
	detachedSuffix = regexp.MustCompile(`\s+(ترین|های|ها|تر)(\s|$)`)
	diacritics     = regexp.MustCompile(`[\x{064B}-\x{0652}\x{0670}\x{0653}-\x{0656}]`)
	whitespaceRun  = regexp.MustCompile(`\s+`)
)

var letterFolds = strings.NewReplacer(
	"ك", "ک",
	"ي", "ی",
	"ى", "ی",
	"ة", "ه",
	"أ", "ا",
	"إ", "ا",
	"ٱ", "ا",
	"ـ", "",
	",", "",
	"،", "",
	":", "",
	".", "",
)

// Normalizer is the default Tokenizer. It folds Arabic letter variants to
// their Persian forms, joins detached affixes to their word, strips
// diacritics and punctuation, lower-cases Latin text and stems every token.
type Normalizer struct {
	stem bool
}

// New returns a Normalizer that stems tokens.
func New() *Normalizer {
	return &Normalizer{stem: true}
}

// NewWithoutStemming returns a Normalizer that only normalises.
func NewWithoutStemming() *Normalizer {
	return &Normalizer{}
}

// Tokenize normalises text, splits it on white space and stems each token.
func (n *Normalizer) Tokenize(text string) []string {
	words := strings.Fields(Normalize(text))
	tokens := make([]string, 0, len(words))
	for _, word := range words {
		if n.stem {
			word = Stem(word)
		}
		tokens = append(tokens, word)
	}
	return tokens
}

// Normalize applies every character-level rewrite used before splitting.
func Normalize(text string) string {
	text = norm.NFC.String(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = detachedPrefix.ReplaceAllString(text, "${1}${2}"+zwnj)
	text = detachedSuffix.ReplaceAllString(text, zwnj+"${1}${2}")
	text = letterFolds.Replace(text)
	text = diacritics.ReplaceAllString(text, "")
	text = strings.Map(func(r rune) rune {
		switch {
		case r < unicode.MaxASCII && (unicode.IsPunct(r) || unicode.IsSymbol(r)):
			return -1
		case r == '«' || r == '»' || r == '؟' || r == '؛':
			return -1
		}
		return unicode.ToLower(r)
	}, text)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
}

// Stem reduces a single normalised token. Latin-script tokens go through
// the Porter stemmer; Persian tokens lose a joined plural or comparative
// suffix when enough of the stem remains.
func Stem(token string) string {
	if token == "" {
		return token
	}
	if isLatin(token) {
		return stemLatin(token)
	}
	return stemPersian(token)
}

// stemLatin guards against the stemmer panicking on degenerate input; the
// token is returned unchanged in that case.
func stemLatin(token string) (stem string) {
	defer func() {
		if r := recover(); r != nil {
			stem = token
		}
	}()
	stem = porterstemmer.StemString(token)
	if stem == "" {
		return token
	}
	return stem
}

var persianSuffixes = []string{
	zwnj + "ترین",
	zwnj + "های",
	zwnj + "ها",
	zwnj + "تر",
}

func stemPersian(token string) string {
	for _, suffix := range persianSuffixes {
		if stem, ok := strings.CutSuffix(token, suffix); ok && len([]rune(stem)) >= 2 {
			return stem
		}
	}
	return token
}

func isLatin(token string) bool {
	for _, r := range token {
		if r > unicode.MaxASCII || !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
