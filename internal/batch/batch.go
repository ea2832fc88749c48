// Package batch turns word lists into TSV definition files.
package batch

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/wikitsv/internal/domain"
)

type lexiconLoader interface {
	Load(ctx context.Context, language string) (map[string]string, error)
}

type definer interface {
	TSV(ctx context.Context, word, language string) (string, error)
}

type recorder interface {
	BatchDone(emitted, missed, failed int)
}

// Result counts the outcome of one batch.
type Result struct {
	// Emitted words produced a line.
	Emitted int
	// Missed words are absent from a loaded lexicon.
	Missed int
	// Failed words could not be looked up remotely.
	Failed int
}

// Service generates TSV output from a lexicon, falling back to remote lookups
// when no lexicon is available.
type Service struct {
	log    *slog.Logger
	lex    lexiconLoader
	remote definer
	rec    recorder
}

// NewService creates a batch service. rec may be nil.
func NewService(logger *slog.Logger, lex lexiconLoader, remote definer, rec recorder) *Service {
	return &Service{
		log:    logger.With("service", "batch"),
		lex:    lex,
		remote: remote,
		rec:    rec,
	}
}

// ListToTSV returns one definition line per word, each terminated by a newline.
// Words are trimmed, lowercased and have runs of spaces collapsed; blank
// entries are skipped. Words without
// a definition are logged and left out.
func (s *Service) ListToTSV(ctx context.Context, words []string, language string) (string, Result, error) {
	language = domain.NormalizeLanguage(language)

	lex, err := s.lex.Load(ctx, language)
	if err != nil {
		s.log.WarnContext(ctx, "dictionary unavailable, attempting to retrieve definitions from wiktionary instead, this may take a while",
			slog.String("language", language),
			slog.String("error", err.Error()),
		)
	}

	var (
		b   strings.Builder
		res Result
	)
	for _, word := range words {
		word = domain.NormalizeText(word)
		if word == "" {
			continue
		}

		if len(lex) > 0 {
			line, ok := lex[word]
			if !ok {
				s.log.InfoContext(ctx, "no definitions found", slog.String("word", word), slog.String("language", language))
				res.Missed++
				continue
			}
			b.WriteString(line)
			b.WriteByte('\n')
			res.Emitted++
			continue
		}

		line, err := s.remote.TSV(ctx, word, language)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", res, fmt.Errorf("batch: %w", ctxErr)
			}
			level := slog.LevelWarn
			if errors.Is(err, domain.ErrNotFound) {
				level = slog.LevelInfo
			}
			s.log.Log(ctx, level, "lookup failed",
				slog.String("word", word),
				slog.String("language", language),
				slog.String("error", err.Error()),
			)
			res.Failed++
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
		res.Emitted++
	}

	if s.rec != nil {
		s.rec.BatchDone(res.Emitted, res.Missed, res.Failed)
	}
	s.log.InfoContext(ctx, "batch complete",
		slog.String("language", language),
		slog.Int("emitted", res.Emitted),
		slog.Int("missed", res.Missed),
		slog.Int("failed", res.Failed),
	)
	return b.String(), res, nil
}

// FileToTSV reads newline-separated words from inputPath and writes their
// definition lines to outputPath.
func (s *Service) FileToTSV(ctx context.Context, inputPath, outputPath, language string) (Result, error) {
	words, err := readLines(inputPath)
	if err != nil {
		return Result{}, err
	}

	tsv, res, err := s.ListToTSV(ctx, words, language)
	if err != nil {
		return res, err
	}

	if err := os.WriteFile(outputPath, []byte(tsv), 0o644); err != nil {
		return res, fmt.Errorf("batch: write %s: %w", outputPath, err)
	}
	return res, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("batch: open %s: %w", path, err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("batch: read %s: %w", path, err)
	}
	return lines, nil
}
