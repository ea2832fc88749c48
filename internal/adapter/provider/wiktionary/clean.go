package wiktionary

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	wikiLinkRe   = regexp.MustCompile(`\[\[([^|\]]*\|)?([^\]]*)\]\]`)
	multiSpaceRe = regexp.MustCompile(`\s{2,}`)
)

// StripMarkup returns the text content of an HTML fragment: tags are dropped,
// entities decoded, wiki links reduced to their display text and whitespace
// collapsed.
func StripMarkup(s string) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or a malformed tail; either way we keep what we have.
			return cleanText(b.String())
		case html.TextToken:
			b.Write(z.Text())
		}
	}
}

func cleanText(s string) string {
	s = wikiLinkRe.ReplaceAllString(s, "$2")
	s = multiSpaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
