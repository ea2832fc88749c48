// Package lookup resolves single words against the remote definition source,
// merging the lowercase and capitalized forms into one record.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/heartmarshall/wikitsv/internal/domain"
	"github.com/heartmarshall/wikitsv/internal/metrics"
)

type fetcher interface {
	FetchDefinition(ctx context.Context, word, language string, acc *domain.WordDefinition) (*domain.WordDefinition, error)
}

type cache interface {
	Get(ctx context.Context, language, word string) (string, bool, error)
	Put(ctx context.Context, language, word, line string) error
}

type recorder interface {
	LookupDone(source, result string)
}

// Service looks words up remotely, optionally through a cache of positive results.
type Service struct {
	log     *slog.Logger
	fetcher fetcher
	cache   cache
	rec     recorder
}

// NewService creates a lookup service. cache and rec may be nil.
func NewService(logger *slog.Logger, fetcher fetcher, cache cache, rec recorder) *Service {
	return &Service{
		log:     logger.With("service", "lookup"),
		fetcher: fetcher,
		cache:   cache,
		rec:     rec,
	}
}

// TSV returns the serialized record for word.
func (s *Service) TSV(ctx context.Context, word, language string) (string, error) {
	def, err := s.Definition(ctx, word, language)
	if err != nil {
		return "", err
	}
	return def.Serialize(), nil
}

// Definition returns the senses found for the lowercase and capitalized forms
// of word, merged into one record named after word. It fails with
// domain.ErrNotFound only when every form fails.
func (s *Service) Definition(ctx context.Context, word, language string) (*domain.WordDefinition, error) {
	word = strings.TrimSpace(word)
	language = domain.NormalizeLanguage(language)
	if word == "" {
		return nil, fmt.Errorf("lookup: %w", domain.NewValidationError("word", "required"))
	}

	if def, ok := s.fromCache(ctx, word, language); ok {
		return def, nil
	}

	def := domain.NewWordDefinition(word)
	var errs []error
	for _, form := range forms(word) {
		if _, err := s.fetcher.FetchDefinition(ctx, form, language, def); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("lookup: %q: %w", word, ctxErr)
			}
			errs = append(errs, err)
			continue
		}
	}

	if def.IsEmpty() {
		err := errors.Join(errs...)
		if errors.Is(err, domain.ErrNotFound) {
			s.record(metrics.ResultNotFound)
		} else {
			s.record(metrics.ResultError)
		}
		return nil, fmt.Errorf("lookup: %q in %s: %w", word, language, err)
	}
	s.record(metrics.ResultFound)

	if s.cache != nil {
		if err := s.cache.Put(ctx, language, word, def.Serialize()); err != nil {
			s.log.WarnContext(ctx, "cache put failed", slog.String("word", word), slog.String("error", err.Error()))
		}
	}
	return def, nil
}

func (s *Service) fromCache(ctx context.Context, word, language string) (*domain.WordDefinition, bool) {
	if s.cache == nil {
		return nil, false
	}

	line, ok, err := s.cache.Get(ctx, language, word)
	if err != nil {
		s.log.WarnContext(ctx, "cache get failed", slog.String("word", word), slog.String("error", err.Error()))
		return nil, false
	}
	if !ok {
		return nil, false
	}

	def, err := domain.ParseLine(line)
	if err != nil {
		s.log.WarnContext(ctx, "corrupt cache entry", slog.String("word", word), slog.String("error", err.Error()))
		return nil, false
	}
	def.Word = word

	if s.rec != nil {
		s.rec.LookupDone(metrics.SourceCache, metrics.ResultFound)
	}
	return def, true
}

func (s *Service) record(result string) {
	if s.rec != nil {
		s.rec.LookupDone(metrics.SourceRemote, result)
	}
}

// forms returns the lowercase and capitalized spellings of word, once if
// they coincide.
func forms(word string) []string {
	lower := strings.ToLower(word)
	upper := domain.Capitalize(lower)
	if upper == lower {
		return []string{lower}
	}
	return []string{lower, upper}
}
