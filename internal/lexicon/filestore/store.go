// Package filestore keeps one TSV file per language on local disk.
package filestore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/heartmarshall/wikitsv/internal/domain"
)

// maxLineSize is the buffer size for bufio.Scanner (16 MB).
const maxLineSize = 16 << 20

// Store reads and writes <dir>/<Language>.tsv.
type Store struct {
	dir string
}

// New creates a Store rooted at dir.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Location returns the file path for language.
func (s *Store) Location(language string) string {
	return filepath.Join(s.dir, language+".tsv")
}

// Exists reports whether a lexicon file for language is present.
func (s *Store) Exists(_ context.Context, language string) (bool, error) {
	_, err := os.Stat(s.Location(language))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("filestore: stat: %w", err)
}

// Load reads the lexicon file into word -> line. Blank lines are ignored and
// a later line for the same word wins.
func (s *Store) Load(ctx context.Context, language string) (map[string]string, error) {
	path := s.Location(language)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("filestore: open %s: %w", path, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}
	defer f.Close()

	lex := make(map[string]string)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lex[domain.LineKey(line)] = line
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("filestore: read %s: %w", path, err)
	}

	return lex, nil
}

// Save writes defs to the lexicon file, one serialized line each. The file is
// written under a temporary name and renamed into place once complete.
func (s *Store) Save(ctx context.Context, language string, defs []*domain.WordDefinition) (err error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("filestore: create dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+language+".*.tsv.tmp")
	if err != nil {
		return fmt.Errorf("filestore: create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	w := bufio.NewWriter(tmp)
	for _, def := range defs {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := def.Serialize()
		if line == "" {
			continue
		}
		if _, err := w.WriteString(line + "\n"); err != nil {
			return fmt.Errorf("filestore: write: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("filestore: flush: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("filestore: close: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Location(language)); err != nil {
		return fmt.Errorf("filestore: rename: %w", err)
	}
	return nil
}
