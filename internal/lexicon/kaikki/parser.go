// Package kaikki turns a Kaikki JSONL dump into word definition records.
package kaikki

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/heartmarshall/wikitsv/internal/domain"
)

// maxLineSize is the buffer size for bufio.Scanner (16 MB).
const maxLineSize = 16 << 20

// Parse streams a dump and merges every line into one record per lowercased
// word. Each sense contributes its first gloss under the line's part of speech.
// Records come back in the order their word was first seen; records without
// any gloss are dropped. Malformed lines are counted and skipped.
func Parse(r io.Reader) ([]*domain.WordDefinition, Stats, error) {
	var stats Stats

	index := make(map[string]*domain.WordDefinition)
	var order []*domain.WordDefinition

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		stats.TotalLines++

		var e entry
		if err := json.Unmarshal(line, &e); err != nil {
			stats.MalformedLines++
			continue
		}

		word := strings.ToLower(e.Word)
		if strings.TrimSpace(word) == "" {
			stats.MalformedLines++
			continue
		}

		def, ok := index[word]
		if !ok {
			def = domain.NewWordDefinition(word)
			index[word] = def
			order = append(order, def)
		}

		for i := range e.Senses {
			if gloss := firstGloss(&e.Senses[i]); gloss != "" {
				def.AddSense(e.POS, gloss)
				stats.Senses++
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("kaikki: scan dump: %w", err)
	}

	out := order[:0]
	for _, def := range order {
		if !def.IsEmpty() {
			out = append(out, def)
		}
	}
	stats.Words = len(out)

	return out, stats, nil
}

func firstGloss(s *sense) string {
	if len(s.Glosses) == 0 {
		return ""
	}
	return strings.TrimSpace(s.Glosses[0])
}
