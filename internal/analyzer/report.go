package analyzer

import (
	"bufio"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sort"
)

// Report file names written by PrintAll.
const (
	FrequencyFile   = "frequency.txt"
	DefinitionsFile = "definitions.tsv"
)

// Entry is one row of the frequency table.
type Entry struct {
	Phrase string
	Count  int
}

// Frequency returns a copy of the phrase -> count table.
func (a *Analyzer) Frequency() map[string]int {
	return maps.Clone(a.freq)
}

// Entries returns the frequency table sorted by descending count. Equal counts
// keep the order in which the phrases were first seen.
func (a *Analyzer) Entries() []Entry {
	entries := make([]Entry, 0, len(a.order))
	for _, p := range a.order {
		entries = append(entries, Entry{Phrase: p, Count: a.freq[p]})
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Count > entries[j].Count
	})
	return entries
}

// WriteFrequency writes "phrase count" lines, most frequent first.
func (a *Analyzer) WriteFrequency(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range a.Entries() {
		if _, err := fmt.Fprintf(bw, "%s %d\n", e.Phrase, e.Count); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteTSV writes the definition line of every counted phrase, most frequent first.
func (a *Analyzer) WriteTSV(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, e := range a.Entries() {
		if _, err := fmt.Fprintln(bw, a.defs[e.Phrase]); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// PrintFrequency writes the frequency report to path.
func (a *Analyzer) PrintFrequency(path string) error {
	return writeFile(path, a.WriteFrequency)
}

// PrintTSV writes the definitions report to path.
func (a *Analyzer) PrintTSV(path string) error {
	return writeFile(path, a.WriteTSV)
}

// PrintAll writes both reports into dir, creating it if needed.
func (a *Analyzer) PrintAll(dir string) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("analyzer: create %s: %w", dir, err)
	}
	if err := a.PrintFrequency(filepath.Join(dir, FrequencyFile)); err != nil {
		return err
	}
	return a.PrintTSV(filepath.Join(dir, DefinitionsFile))
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("analyzer: create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("analyzer: write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("analyzer: close %s: %w", path, err)
	}
	return nil
}
