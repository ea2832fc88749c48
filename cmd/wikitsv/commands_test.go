package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wikitsv/internal/app"
	"github.com/heartmarshall/wikitsv/internal/domain"
)

const catLine = "cat\tnoun<br>a feline<br>"

// testEnv points the config at temp directories and the given servers.
func testEnv(t *testing.T, kaikkiURL, wiktionaryURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LOG_LEVEL", "error")
	t.Setenv("LEXICON_DIR", filepath.Join(dir, "dictionaries"))
	t.Setenv("KAIKKI_BASE_URL", kaikkiURL)
	t.Setenv("WIKTIONARY_BASE_URL", wiktionaryURL)
	t.Setenv("WIKTIONARY_RATE_PERIOD", "1ms")
	return dir
}

func writeLexicon(t *testing.T, dir, language, content string) {
	t.Helper()
	lexDir := filepath.Join(dir, "dictionaries")
	require.NoError(t, os.MkdirAll(lexDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(lexDir, language+".tsv"), []byte(content), 0o644))
}

func unreachable(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("unexpected request %s", r.URL.Path)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"version"}, &out))
	assert.Equal(t, app.BuildVersion()+"\n", out.String())
}

func TestRun_Build(t *testing.T) {
	var hits int
	kaikki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		assert.Equal(t, "/English/kaikki.org-dictionary-English.jsonl", r.URL.Path)
		_, _ = w.Write([]byte(`{"word":"cat","pos":"noun","senses":[{"glosses":["a feline"]}]}` + "\n"))
	}))
	defer kaikki.Close()
	dir := testEnv(t, kaikki.URL, unreachable(t).URL)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"build", "english"}, &out))

	path := filepath.Join(dir, "dictionaries", "English.tsv")
	assert.Equal(t, path+"\n", out.String())
	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, catLine+"\n", string(got))

	// Already built: no second download unless forced.
	require.NoError(t, run(context.Background(), []string{"build", "english"}, &out))
	assert.Equal(t, 1, hits)
	require.NoError(t, run(context.Background(), []string{"build", "--force", "english"}, &out))
	assert.Equal(t, 2, hits)
}

func TestRun_Build_UnknownLanguage(t *testing.T) {
	kaikki := httptest.NewServer(http.NotFoundHandler())
	defer kaikki.Close()
	testEnv(t, kaikki.URL, unreachable(t).URL)

	err := run(context.Background(), []string{"build", "klingon"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRun_TSV(t *testing.T) {
	dir := testEnv(t, unreachable(t).URL, unreachable(t).URL)
	writeLexicon(t, dir, "English", catLine+"\n")

	in := filepath.Join(dir, "words.txt")
	outPath := filepath.Join(dir, "words.tsv")
	require.NoError(t, os.WriteFile(in, []byte("cat\ndog\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"tsv", in, outPath, "--language", "english"}, &out))
	assert.Contains(t, out.String(), "1 written, 1 missing, 0 failed")

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, catLine+"\n", string(got))
}

func TestRun_TSV_BuildsMissingLexicon(t *testing.T) {
	var kaikkiHits int
	kaikki := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		kaikkiHits++
		_, _ = w.Write([]byte(`{"word":"cat","pos":"noun","senses":[{"glosses":["a feline"]}]}` + "\n"))
	}))
	defer kaikki.Close()
	dir := testEnv(t, kaikki.URL, unreachable(t).URL)

	in := filepath.Join(dir, "words.txt")
	outPath := filepath.Join(dir, "words.tsv")
	require.NoError(t, os.WriteFile(in, []byte("cat\ndog\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"tsv", in, outPath}, &out))
	assert.Equal(t, 1, kaikkiHits)
	assert.Contains(t, out.String(), "1 written, 1 missing, 0 failed")

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, catLine+"\n", string(got))

	_, err = os.Stat(filepath.Join(dir, "dictionaries", "English.tsv"))
	assert.NoError(t, err)
}

func TestRun_TSV_NoBuildUsesRemote(t *testing.T) {
	var wiktionaryHits int
	wiktionary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		wiktionaryHits++
		http.NotFound(w, r)
	}))
	defer wiktionary.Close()
	dir := testEnv(t, unreachable(t).URL, wiktionary.URL)

	in := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(in, []byte("cat\n"), 0o644))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"tsv", in, filepath.Join(dir, "out.tsv"), "--no-build"}, &out))
	assert.Equal(t, 2, wiktionaryHits, "lowercase and capitalized forms")
	assert.Contains(t, out.String(), "0 written, 0 missing, 1 failed")
}

func TestRun_TSV_BuildFailureFallsBackToRemote(t *testing.T) {
	kaikki := httptest.NewServer(http.NotFoundHandler())
	defer kaikki.Close()
	wiktionary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cat" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"en":[{"partOfSpeech":"noun","language":"English","definitions":[{"definition":"a feline"}]}]}`))
	}))
	defer wiktionary.Close()
	dir := testEnv(t, kaikki.URL, wiktionary.URL)

	in := filepath.Join(dir, "words.txt")
	outPath := filepath.Join(dir, "out.tsv")
	require.NoError(t, os.WriteFile(in, []byte("cat\n"), 0o644))

	require.NoError(t, run(context.Background(), []string{"tsv", in, outPath}, &bytes.Buffer{}))

	got, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, catLine+"\n", string(got))
}

func TestRun_Analyze(t *testing.T) {
	dir := testEnv(t, unreachable(t).URL, unreachable(t).URL)
	writeLexicon(t, dir, "English", catLine+"\n"+"machine learning\tnoun<br>a field<br>\n")

	text := filepath.Join(dir, "text.txt")
	require.NoError(t, os.WriteFile(text, []byte("Machine learning for cats. The cat, the cat!"), 0o644))
	outDir := filepath.Join(dir, "report")

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"analyze", text, "-n", "2", "--out", outDir, "--no-build"}, &out))
	assert.Contains(t, out.String(), "2 distinct phrases")

	freq, err := os.ReadFile(filepath.Join(outDir, "frequency.txt"))
	require.NoError(t, err)
	assert.Equal(t, "cat 2\nmachine learning 1\n", string(freq))

	defs, err := os.ReadFile(filepath.Join(outDir, "definitions.tsv"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(defs), catLine+"\n"))
}

func TestRun_Analyze_InvalidNgram(t *testing.T) {
	dir := testEnv(t, unreachable(t).URL, unreachable(t).URL)
	writeLexicon(t, dir, "English", catLine+"\n")

	text := filepath.Join(dir, "text.txt")
	require.NoError(t, os.WriteFile(text, []byte("cat"), 0o644))

	err := run(context.Background(), []string{"analyze", text, "--ngram", "0", "--no-build", "--out", dir}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))
}

func TestRun_Lookup(t *testing.T) {
	wiktionary := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/cat" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"en":[{"partOfSpeech":"Noun","language":"English","definitions":[{"definition":"a <i>feline</i>"}]}]}`))
	}))
	defer wiktionary.Close()
	testEnv(t, unreachable(t).URL, wiktionary.URL)

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"lookup", "Cat"}, &out))
	assert.Equal(t, "Cat\tNoun<br>a feline<br>\n", out.String())

	err := run(context.Background(), []string{"lookup", "qwxz"}, &bytes.Buffer{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestRun_MetricsFile(t *testing.T) {
	dir := testEnv(t, unreachable(t).URL, unreachable(t).URL)
	writeLexicon(t, dir, "English", catLine+"\n")

	in := filepath.Join(dir, "words.txt")
	require.NoError(t, os.WriteFile(in, []byte("cat\n"), 0o644))
	metricsPath := filepath.Join(dir, "wikitsv.prom")

	require.NoError(t, run(context.Background(),
		[]string{"tsv", in, filepath.Join(dir, "out.tsv"), "--metrics-file", metricsPath}, &bytes.Buffer{}))

	raw, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `wikitsv_batch_words_total{outcome="emitted"} 1`)
}

func TestRun_BadConfigPath(t *testing.T) {
	testEnv(t, unreachable(t).URL, unreachable(t).URL)

	err := run(context.Background(), []string{"--config", filepath.Join(t.TempDir(), "missing.yaml"), "lookup", "cat"}, &bytes.Buffer{})
	require.Error(t, err)
}
