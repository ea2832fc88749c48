// Package lexicon builds and loads per-language dictionaries.
package lexicon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/heartmarshall/wikitsv/internal/domain"
	"github.com/heartmarshall/wikitsv/internal/lexicon/kaikki"
)

// backend stores built lexicons, one per language. Languages passed to a
// backend are already normalized.
type backend interface {
	Exists(ctx context.Context, language string) (bool, error)
	Load(ctx context.Context, language string) (map[string]string, error)
	Save(ctx context.Context, language string, defs []*domain.WordDefinition) error
	Location(language string) string
}

type dumpSource interface {
	Open(ctx context.Context, language string) (io.ReadCloser, error)
}

type recorder interface {
	LexiconBuilt(language string, words, malformed int, took time.Duration)
}

// Service builds lexicons from dumps and loads them from a backend.
type Service struct {
	log     *slog.Logger
	backend backend
	source  dumpSource
	rec     recorder
}

// NewService creates a lexicon service. rec may be nil.
func NewService(logger *slog.Logger, backend backend, source dumpSource, rec recorder) *Service {
	return &Service{
		log:     logger.With("service", "lexicon"),
		backend: backend,
		source:  source,
		rec:     rec,
	}
}

// PathFor reports where the lexicon for language lives.
func (s *Service) PathFor(language string) string {
	return s.backend.Location(domain.NormalizeLanguage(language))
}

// EnsureBuilt builds the lexicon for language unless the backend already has one.
func (s *Service) EnsureBuilt(ctx context.Context, language string) error {
	language = domain.NormalizeLanguage(language)

	exists, err := s.backend.Exists(ctx, language)
	if err != nil {
		return fmt.Errorf("lexicon: check %s: %w", language, err)
	}
	if exists {
		return nil
	}
	return s.build(ctx, language)
}

// Rebuild builds the lexicon for language even if one is already stored.
func (s *Service) Rebuild(ctx context.Context, language string) error {
	return s.build(ctx, domain.NormalizeLanguage(language))
}

func (s *Service) build(ctx context.Context, language string) error {
	if language == "" {
		return fmt.Errorf("lexicon: %w", domain.NewValidationError("language", "required"))
	}

	s.log.InfoContext(ctx, "creating dictionary from wiktionary dump, this is a one-time process that may take a few minutes",
		slog.String("language", language),
		slog.String("location", s.backend.Location(language)),
	)
	start := time.Now()

	body, err := s.source.Open(ctx, language)
	if err != nil {
		return fmt.Errorf("lexicon: open dump for %s: %w", language, err)
	}
	defer body.Close()

	defs, stats, err := kaikki.Parse(body)
	if err != nil {
		return fmt.Errorf("lexicon: parse dump for %s: %w", language, err)
	}

	if err := s.backend.Save(ctx, language, defs); err != nil {
		return fmt.Errorf("lexicon: save %s: %w", language, err)
	}

	took := time.Since(start)
	if s.rec != nil {
		s.rec.LexiconBuilt(language, stats.Words, stats.MalformedLines, took)
	}

	s.log.InfoContext(ctx, "dictionary created",
		slog.String("language", language),
		slog.Int("lines", stats.TotalLines),
		slog.Int("malformed", stats.MalformedLines),
		slog.Int("words", stats.Words),
		slog.Int("senses", stats.Senses),
		slog.Duration("took", took),
	)
	return nil
}

// Load returns the stored lexicon for language as word -> serialized line.
// It never builds; a missing lexicon is reported as domain.ErrNotFound.
func (s *Service) Load(ctx context.Context, language string) (map[string]string, error) {
	language = domain.NormalizeLanguage(language)

	lex, err := s.backend.Load(ctx, language)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("lexicon: no %s dictionary at %s: %w", language, s.backend.Location(language), err)
		}
		return nil, fmt.Errorf("lexicon: load %s: %w", language, err)
	}

	s.log.DebugContext(ctx, "dictionary loaded", slog.String("language", language), slog.Int("words", len(lex)))
	return lex, nil
}

// LoadOrBuild builds the lexicon if needed and then loads it.
func (s *Service) LoadOrBuild(ctx context.Context, language string) (map[string]string, error) {
	if err := s.EnsureBuilt(ctx, language); err != nil {
		return nil, err
	}
	return s.Load(ctx, language)
}
