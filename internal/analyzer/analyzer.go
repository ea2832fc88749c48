// Package analyzer counts dictionary words and phrases in text using greedy
// longest-ngram-first matching.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/heartmarshall/wikitsv/internal/domain"
	"github.com/heartmarshall/wikitsv/internal/metrics"
)

type lexiconLoader interface {
	Load(ctx context.Context, language string) (map[string]string, error)
}

type definer interface {
	TSV(ctx context.Context, word, language string) (string, error)
}

type recorder interface {
	PhraseCounted(match string)
	PhraseInvalid()
}

// Options configures an Analyzer.
type Options struct {
	Language string
	// Scrape enables remote lookups for phrases missing from the lexicon.
	Scrape bool
	// Segmenter is one of the Segmenter* names; empty means auto.
	Segmenter string
}

// Analyzer accumulates phrase frequencies across every text it parses.
// It is not safe for concurrent use.
type Analyzer struct {
	log      *slog.Logger
	language string
	scrape   bool
	seg      Segmenter
	remote   definer
	rec      recorder

	// defs holds every phrase known to have a definition, with its TSV line.
	defs    map[string]string
	invalid map[string]struct{}
	freq    map[string]int
	order   []string
}

// New creates an analyzer for opts.Language. When the lexicon cannot be
// loaded the analyzer starts empty and relies on remote lookups only.
// remote and rec may be nil.
func New(ctx context.Context, logger *slog.Logger, opts Options, lex lexiconLoader, remote definer, rec recorder) (*Analyzer, error) {
	language := domain.NormalizeLanguage(opts.Language)
	if language == "" {
		return nil, fmt.Errorf("analyzer: %w", domain.NewValidationError("language", "required"))
	}

	seg, err := NewSegmenter(opts.Segmenter, language)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		log:      logger.With("service", "analyzer"),
		language: language,
		scrape:   opts.Scrape,
		seg:      seg,
		remote:   remote,
		rec:      rec,
		invalid:  make(map[string]struct{}),
		freq:     make(map[string]int),
	}

	var defs map[string]string
	if lex != nil {
		defs, err = lex.Load(ctx, language)
	} else {
		err = fmt.Errorf("analyzer: no lexicon configured: %w", domain.ErrNotFound)
	}
	if err != nil {
		a.log.WarnContext(ctx, "dictionary unavailable, will retrieve definitions from wiktionary instead, this may take a while",
			slog.String("language", language),
			slog.String("error", err.Error()),
		)
		a.scrape = true
		defs = make(map[string]string)
	}
	a.defs = defs

	if a.scrape && remote == nil {
		a.log.WarnContext(ctx, "remote lookups requested without a remote source")
		a.scrape = false
	}
	return a, nil
}

// Language returns the normalized language the analyzer works in.
func (a *Analyzer) Language() string { return a.language }

// Scraping reports whether phrases missing from the lexicon are looked up remotely.
func (a *Analyzer) Scraping() bool { return a.scrape }

// ParseText counts every phrase of up to ngram words in text that has a
// definition. At each position the longest matching phrase wins and its words
// are consumed; a position with no match is skipped.
func (a *Analyzer) ParseText(ctx context.Context, text string, ngram int) error {
	if ngram < 1 {
		return fmt.Errorf("analyzer: ngram cannot be less than 1, got %d: %w", ngram, domain.ErrInvalidArgument)
	}

	sep := a.seg.Separator()
	for _, sentence := range splitSentences(text) {
		words := a.seg.Words(sentence)

		for i := 0; i < len(words); {
			n, err := a.match(ctx, words[i:], ngram, sep)
			if err != nil {
				return err
			}
			if n == 0 {
				n = 1
			}
			i += n
		}
	}
	return nil
}

// ParseFile reads path and parses its contents.
func (a *Analyzer) ParseFile(ctx context.Context, path string, ngram int) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("analyzer: read %s: %w", path, err)
	}
	return a.ParseText(ctx, string(raw), ngram)
}

// match tries phrases starting at words[0], longest first, and returns the
// number of words consumed, or 0 if nothing matched.
func (a *Analyzer) match(ctx context.Context, words []string, ngram int, sep string) (int, error) {
	for n := min(ngram, len(words)); n >= 1; n-- {
		phrase := strings.Join(words[:n], sep)

		if _, ok := a.defs[phrase]; ok {
			a.count(phrase, metrics.MatchKnown)
			return n, nil
		}

		if !a.scrape {
			continue
		}
		if _, bad := a.invalid[phrase]; bad {
			continue
		}

		line, err := a.remote.TSV(ctx, phrase, a.language)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return 0, fmt.Errorf("analyzer: %w", ctxErr)
			}
			a.reject(ctx, phrase, err)
			continue
		}
		a.defs[phrase] = line
		a.count(phrase, metrics.MatchScraped)
		return n, nil
	}
	return 0, nil
}

func (a *Analyzer) count(phrase, match string) {
	if _, seen := a.freq[phrase]; !seen {
		a.order = append(a.order, phrase)
	}
	a.freq[phrase]++
	if a.rec != nil {
		a.rec.PhraseCounted(match)
	}
}

func (a *Analyzer) reject(ctx context.Context, phrase string, err error) {
	a.invalid[phrase] = struct{}{}
	if a.rec != nil {
		a.rec.PhraseInvalid()
	}

	level := slog.LevelWarn
	if errors.Is(err, domain.ErrNotFound) {
		level = slog.LevelDebug
	}
	a.log.Log(ctx, level, "no definition found",
		slog.String("phrase", phrase),
		slog.String("language", a.language),
		slog.String("error", err.Error()),
	)
}
