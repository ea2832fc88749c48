package analyzer

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"
)

// Segmenter names accepted by Options.Segmenter.
const (
	SegmenterAuto       = "auto"
	SegmenterWhitespace = "whitespace"
	SegmenterKagome     = "kagome"
)

var (
	sentenceRe = regexp.MustCompile(`[!?.;。！？]+`)
	// ASCII punctuation, typographic quotes and dashes, Japanese brackets
	// and commas, digits.
	punctRe = regexp.MustCompile("[/!\"#$%&()*+,\\-.:;<=>?@\\[\\]^_`{|}~'…“”‘’」「『』、・—0-9]")
)

// Segmenter turns one sentence into words and names the separator used to
// join words back into a phrase.
type Segmenter interface {
	Words(sentence string) []string
	Separator() string
}

// splitSentences cuts text on runs of sentence-ending punctuation.
func splitSentences(text string) []string {
	return sentenceRe.Split(text, -1)
}

// clean blanks out punctuation and digits and lowercases the result.
func clean(sentence string) string {
	return strings.ToLower(punctRe.ReplaceAllString(sentence, " "))
}

type whitespaceSegmenter struct{}

func (whitespaceSegmenter) Words(sentence string) []string {
	return strings.Fields(clean(sentence))
}

func (whitespaceSegmenter) Separator() string { return " " }

// kagomeSegmenter splits unspaced Japanese text into morphemes.
type kagomeSegmenter struct {
	t *tokenizer.Tokenizer
}

func newKagomeSegmenter() (*kagomeSegmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("analyzer: init kagome: %w", err)
	}
	return &kagomeSegmenter{t: t}, nil
}

func (k *kagomeSegmenter) Words(sentence string) []string {
	var words []string
	for _, tok := range k.t.Tokenize(clean(sentence)) {
		if s := strings.TrimSpace(tok.Surface); s != "" {
			words = append(words, s)
		}
	}
	return words
}

func (k *kagomeSegmenter) Separator() string { return "" }

// NewSegmenter returns the segmenter called name. "auto" (or "") picks kagome
// for Japanese and whitespace splitting for everything else.
func NewSegmenter(name, language string) (Segmenter, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", SegmenterAuto:
		if language == "Japanese" {
			return newKagomeSegmenter()
		}
		return whitespaceSegmenter{}, nil
	case SegmenterWhitespace:
		return whitespaceSegmenter{}, nil
	case SegmenterKagome:
		return newKagomeSegmenter()
	default:
		return nil, fmt.Errorf("analyzer: unknown segmenter %q", name)
	}
}
