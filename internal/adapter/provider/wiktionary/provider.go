package wiktionary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/heartmarshall/wikitsv/internal/config"
	"github.com/heartmarshall/wikitsv/internal/domain"
	"github.com/heartmarshall/wikitsv/internal/ratelimit"
)

const (
	defaultBaseURL   = "https://en.wiktionary.org/api/rest_v1/page/definition"
	defaultUserAgent = "https://github.com/myalynnnguyen/WiktionaryTSV"
)

// Provider fetches word definitions from the Wiktionary REST API.
type Provider struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    ratelimit.Limiter
	log        *slog.Logger
}

// NewProvider creates a Provider from configuration. Every request waits on
// limiter first.
func NewProvider(cfg config.WiktionaryConfig, limiter ratelimit.Limiter, logger *slog.Logger) *Provider {
	p := &Provider{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		log:        logger.With("adapter", "wiktionary"),
	}
	if p.baseURL == "" {
		p.baseURL = defaultBaseURL
	}
	if p.userAgent == "" {
		p.userAgent = defaultUserAgent
	}
	return p
}

// NewProviderWithURL creates an unthrottled Provider with a custom base URL (for testing).
func NewProviderWithURL(baseURL string, logger *slog.Logger) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  defaultUserAgent,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Inf, 1),
		log:        logger.With("adapter", "wiktionary"),
	}
}

// FetchDefinition looks up word and appends every sense listed under language
// to acc. A nil acc starts a new record named after word.
//
// It returns an error wrapping domain.ErrNotFound when the API answers with a
// non-200 status or has no entry for the language. Transport and decoding
// failures are returned as-is.
func (p *Provider) FetchDefinition(ctx context.Context, word, language string, acc *domain.WordDefinition) (*domain.WordDefinition, error) {
	language = domain.NormalizeLanguage(language)

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wiktionary: wait for rate limit: %w", err)
	}

	reqURL := p.baseURL + "/" + url.PathEscape(strings.ReplaceAll(word, " ", "_"))

	p.log.DebugContext(ctx, "wiktionary request", slog.String("word", word), slog.String("language", language))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("wiktionary: create request: %w", err)
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wiktionary: request %q: %w", word, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("wiktionary: %q could not be found (status %d): %w", word, resp.StatusCode, domain.ErrNotFound)
	}

	entries, err := decodeEntries(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("wiktionary: decode %q: %w", word, err)
	}

	if acc == nil {
		acc = domain.NewWordDefinition(word)
	}

	matched, added := 0, 0
	for _, e := range entries {
		if e.Language != language {
			continue
		}
		matched++
		pos := StripMarkup(e.PartOfSpeech)
		for _, d := range e.Definitions {
			gloss := StripMarkup(d.Definition)
			if gloss == "" {
				continue
			}
			acc.AddSense(pos, gloss)
			added++
		}
	}

	if matched == 0 {
		return nil, fmt.Errorf("wiktionary: no %s entry for %q: %w", language, word, domain.ErrNotFound)
	}
	if added == 0 {
		return nil, fmt.Errorf("wiktionary: no %s definitions for %q: %w", language, word, domain.ErrNotFound)
	}

	p.log.DebugContext(ctx, "wiktionary response",
		slog.String("word", word),
		slog.Int("entries", matched),
		slog.Int("senses", added),
		slog.Int("total_senses", acc.SenseCount()),
	)

	return acc, nil
}

// decodeEntries flattens the {"<lang code>": [entry, ...], ...} body into a
// single slice, keeping the order in which the sections appear.
func decodeEntries(r io.Reader) ([]apiEntry, error) {
	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected JSON object")
	}

	var entries []apiEntry
	for dec.More() {
		if _, err := dec.Token(); err != nil { // section key
			return nil, err
		}
		var section []apiEntry
		if err := dec.Decode(&section); err != nil {
			return nil, err
		}
		entries = append(entries, section...)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return entries, nil
}
