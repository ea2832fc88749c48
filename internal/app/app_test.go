package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wikitsv/internal/analyzer"
	"github.com/heartmarshall/wikitsv/internal/config"
	"github.com/heartmarshall/wikitsv/internal/domain"
	"github.com/heartmarshall/wikitsv/pkg/ctxutil"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Log:     config.LogConfig{Level: "info", Format: "text"},
		Lexicon: config.LexiconConfig{Backend: config.BackendFile, Dir: filepath.Join(dir, "dictionaries")},
		Kaikki:  config.KaikkiConfig{BaseURL: "http://127.0.0.1:0", Timeout: time.Second},
		Wiktionary: config.WiktionaryConfig{
			BaseURL:    "http://127.0.0.1:0",
			UserAgent:  "wikitsv-test",
			Timeout:    time.Second,
			RateCalls:  200,
			RatePeriod: 10 * time.Second,
		},
		Cache:   config.CacheConfig{Dir: filepath.Join(dir, "cache"), TTL: time.Hour},
		Metrics: config.MetricsConfig{File: filepath.Join(dir, "wikitsv.prom")},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNew_FileBackend(t *testing.T) {
	cfg := testConfig(t)

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, a.RunID)
	assert.NotNil(t, a.Lexicon)
	assert.NotNil(t, a.Lookup)
	assert.NotNil(t, a.Batch)
	assert.Equal(t, filepath.Join(cfg.Lexicon.Dir, "English.tsv"), a.Lexicon.PathFor("english"))

	require.NoError(t, a.Close())

	raw, err := os.ReadFile(cfg.Metrics.File)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(raw), "wikitsv_"), "metrics textfile written")
}

func TestNew_RunIDFromContext(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.File = ""
	id := uuid.New()

	a, err := New(ctxutil.WithRunID(context.Background(), id), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	assert.Equal(t, id, a.RunID)
}

func TestNew_CacheEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Cache.Enabled = true

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	require.NoError(t, a.Close())

	_, err = os.Stat(cfg.Cache.Dir)
	assert.NoError(t, err, "badger directory created")
}

func TestNew_UnknownBackend(t *testing.T) {
	cfg := testConfig(t)
	cfg.Lexicon.Backend = "sqlite"

	_, err := New(context.Background(), cfg, discardLogger())
	require.Error(t, err)
}

func TestApp_LoadMissingLexicon(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.File = ""

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	_, err = a.Lexicon.Load(context.Background(), "english")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestApp_NewAnalyzerUsesLexicon(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.File = ""
	require.NoError(t, os.MkdirAll(cfg.Lexicon.Dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Lexicon.Dir, "English.tsv"),
		[]byte("cat\tnoun<br>a feline<br>\n"), 0o644))

	a, err := New(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	an, err := a.NewAnalyzer(context.Background(), analyzer.Options{Language: "english"})
	require.NoError(t, err)
	assert.False(t, an.Scraping())

	require.NoError(t, an.ParseText(context.Background(), "The cat sat. Cat!", 1))
	assert.Equal(t, map[string]int{"cat": 2}, an.Frequency())
}
