package kaikki

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/heartmarshall/wikitsv/internal/config"
	"github.com/heartmarshall/wikitsv/internal/domain"
)

const defaultBaseURL = "https://kaikki.org/dictionary"

// Source streams per-language JSONL dumps from kaikki.org.
type Source struct {
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewSource creates a Source from configuration.
func NewSource(cfg config.KaikkiConfig, logger *slog.Logger) *Source {
	s := &Source{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.With("adapter", "kaikki"),
	}
	if s.baseURL == "" {
		s.baseURL = defaultBaseURL
	}
	return s
}

// NewSourceWithURL creates a Source with a custom base URL (for testing).
func NewSourceWithURL(baseURL string, logger *slog.Logger) *Source {
	return &Source{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        logger.With("adapter", "kaikki"),
	}
}

// URL returns the dump location for language.
func (s *Source) URL(language string) string {
	language = domain.NormalizeLanguage(language)
	file := "kaikki.org-dictionary-" + strings.ReplaceAll(language, " ", "") + ".jsonl"
	return s.baseURL + "/" + url.PathEscape(language) + "/" + url.PathEscape(file)
}

// Open starts downloading the dump for language. The caller must close the
// returned body. A non-200 response is reported as domain.ErrNotFound.
func (s *Source) Open(ctx context.Context, language string) (io.ReadCloser, error) {
	dumpURL := s.URL(language)

	s.log.InfoContext(ctx, "downloading lexicon dump", slog.String("url", dumpURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dumpURL, nil)
	if err != nil {
		return nil, fmt.Errorf("kaikki: create request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kaikki: request %s: %w", dumpURL, err)
	}

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("kaikki: could not find dump for %s at %s (status %d): %w",
			domain.NormalizeLanguage(language), dumpURL, resp.StatusCode, domain.ErrNotFound)
	}

	return resp.Body, nil
}
