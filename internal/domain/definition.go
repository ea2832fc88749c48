package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	fieldSep = "\t"
	senseSep = "<br>"
)

// WordDefinition holds a word and its glosses grouped by part of speech.
// Parts of speech keep their insertion order; so do glosses within each one.
type WordDefinition struct {
	Word string

	order  []string
	senses map[string][]string
}

// NewWordDefinition creates an empty definition record for word.
func NewWordDefinition(word string) *WordDefinition {
	return &WordDefinition{
		Word:   word,
		senses: make(map[string][]string),
	}
}

// AddSense appends sense under pos. Duplicates are kept.
func (d *WordDefinition) AddSense(pos, sense string) {
	if d.senses == nil {
		d.senses = make(map[string][]string)
	}
	if _, ok := d.senses[pos]; !ok {
		d.order = append(d.order, pos)
	}
	d.senses[pos] = append(d.senses[pos], sense)
}

// IsEmpty reports whether no senses have been recorded.
func (d *WordDefinition) IsEmpty() bool {
	return len(d.order) == 0
}

// PartsOfSpeech returns the recorded parts of speech in insertion order.
func (d *WordDefinition) PartsOfSpeech() []string {
	out := make([]string, len(d.order))
	copy(out, d.order)
	return out
}

// Senses returns the glosses recorded under pos.
func (d *WordDefinition) Senses(pos string) []string {
	src := d.senses[pos]
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// SenseCount returns the total number of glosses across all parts of speech.
func (d *WordDefinition) SenseCount() int {
	n := 0
	for _, pos := range d.order {
		n += len(d.senses[pos])
	}
	return n
}

// Serialize renders the record as a single TSV line:
//
//	word\tpos<br>gloss<br>gloss<br><br>pos<br>gloss<br>
//
// It returns "" when no senses were recorded.
func (d *WordDefinition) Serialize() string {
	if d.IsEmpty() {
		return ""
	}

	var b strings.Builder
	b.WriteString(flatten(d.Word))
	b.WriteString(fieldSep)
	for i, pos := range d.order {
		if i > 0 {
			b.WriteString(senseSep)
		}
		b.WriteString(flatten(pos))
		b.WriteString(senseSep)
		for _, gloss := range d.senses[pos] {
			b.WriteString(flatten(gloss))
			b.WriteString(senseSep)
		}
	}
	return b.String()
}

// ParseLine reverses Serialize.
func ParseLine(line string) (*WordDefinition, error) {
	line = strings.TrimRight(line, "\r\n")
	word, body, ok := strings.Cut(line, fieldSep)
	if !ok {
		return nil, fmt.Errorf("parse line %q: %w", truncate(line, 40), NewValidationError("line", "missing tab separator"))
	}

	def := NewWordDefinition(word)
	body = strings.TrimSuffix(body, senseSep)
	if body == "" {
		return def, nil
	}

	// Groups are separated by an empty field ("<br><br>").
	for _, group := range strings.Split(body, senseSep+senseSep) {
		fields := strings.Split(group, senseSep)
		pos := fields[0]
		for _, gloss := range fields[1:] {
			def.AddSense(pos, gloss)
		}
		if len(fields) == 1 {
			// A part of speech with no glosses still keeps its slot.
			if _, ok := def.senses[pos]; !ok {
				def.order = append(def.order, pos)
				def.senses[pos] = nil
			}
		}
	}
	return def, nil
}

// LineKey returns the lookup key of a serialized line (the text before the tab).
func LineKey(line string) string {
	key, _, _ := strings.Cut(line, fieldSep)
	return key
}

// flatten keeps a field on one line and free of the field separator.
func flatten(s string) string {
	if !strings.ContainsAny(s, "\t\r\n") {
		return s
	}
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '\t' || r == '\r' || r == '\n'
	}), " ")
}

// truncate shortens s to at most n runes.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
