package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/wikitsv/internal/domain"
)

// ---------------------------------------------------------------------------
// Manual mocks (moq-style with func fields)
// ---------------------------------------------------------------------------

type mockLexicon struct {
	LoadFunc func(ctx context.Context, language string) (map[string]string, error)
}

func (m *mockLexicon) Load(ctx context.Context, language string) (map[string]string, error) {
	return m.LoadFunc(ctx, language)
}

type mockDefiner struct {
	TSVFunc func(ctx context.Context, word, language string) (string, error)
	calls   []string
}

func (m *mockDefiner) TSV(ctx context.Context, word, language string) (string, error) {
	m.calls = append(m.calls, word)
	return m.TSVFunc(ctx, word, language)
}

type mockRecorder struct {
	emitted, missed, failed int
}

func (m *mockRecorder) BatchDone(emitted, missed, failed int) {
	m.emitted += emitted
	m.missed += missed
	m.failed += failed
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

const catLine = "cat\tnoun<br>a feline<br>"

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func catLexicon() *mockLexicon {
	return &mockLexicon{
		LoadFunc: func(context.Context, string) (map[string]string, error) {
			return map[string]string{"cat": catLine}, nil
		},
	}
}

func missingLexicon() *mockLexicon {
	return &mockLexicon{
		LoadFunc: func(_ context.Context, language string) (map[string]string, error) {
			return nil, fmt.Errorf("no %s dictionary: %w", language, domain.ErrNotFound)
		},
	}
}

func remoteOf(lines map[string]string) *mockDefiner {
	return &mockDefiner{
		TSVFunc: func(_ context.Context, word, _ string) (string, error) {
			line, ok := lines[word]
			if !ok {
				return "", fmt.Errorf("%q: %w", word, domain.ErrNotFound)
			}
			return line, nil
		},
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestListToTSV_LexiconHitAndMiss(t *testing.T) {
	t.Parallel()

	remote := remoteOf(map[string]string{"dog": "dog\tnoun<br>a canine<br>"})
	rec := &mockRecorder{}
	svc := NewService(newTestLogger(), catLexicon(), remote, rec)

	out, res, err := svc.ListToTSV(context.Background(), []string{"cat", "dog"}, "english")
	require.NoError(t, err)

	assert.Equal(t, catLine+"\n", out)
	assert.Equal(t, Result{Emitted: 1, Missed: 1}, res)
	assert.Empty(t, remote.calls, "no remote lookups while a lexicon is loaded")
	assert.Equal(t, 1, rec.missed)
}

func TestListToTSV_NormalizesInput(t *testing.T) {
	t.Parallel()

	var gotLanguage string
	lex := &mockLexicon{
		LoadFunc: func(_ context.Context, language string) (map[string]string, error) {
			gotLanguage = language
			return map[string]string{"cat": catLine}, nil
		},
	}
	svc := NewService(newTestLogger(), lex, remoteOf(nil), nil)

	out, res, err := svc.ListToTSV(context.Background(), []string{"  CAT\r", "", "   ", "Cat"}, " english ")
	require.NoError(t, err)

	assert.Equal(t, "English", gotLanguage)
	assert.Equal(t, catLine+"\n"+catLine+"\n", out)
	assert.Equal(t, 2, res.Emitted)
}

func TestListToTSV_CollapsesInnerSpaces(t *testing.T) {
	t.Parallel()

	const mlLine = "machine learning\tnoun<br>a field<br>"
	lex := &mockLexicon{
		LoadFunc: func(context.Context, string) (map[string]string, error) {
			return map[string]string{"machine learning": mlLine}, nil
		},
	}
	remote := remoteOf(map[string]string{"machine learning": mlLine})

	out, res, err := NewService(newTestLogger(), lex, remote, nil).
		ListToTSV(context.Background(), []string{" Machine   Learning "}, "english")
	require.NoError(t, err)
	assert.Equal(t, mlLine+"\n", out)
	assert.Equal(t, Result{Emitted: 1}, res)

	out, _, err = NewService(newTestLogger(), missingLexicon(), remote, nil).
		ListToTSV(context.Background(), []string{"machine  learning"}, "english")
	require.NoError(t, err)
	assert.Equal(t, mlLine+"\n", out)
	assert.Equal(t, []string{"machine learning"}, remote.calls)
}

func TestListToTSV_RemoteFallback(t *testing.T) {
	t.Parallel()

	remote := remoteOf(map[string]string{"dog": "dog\tnoun<br>a canine<br>"})
	rec := &mockRecorder{}
	svc := NewService(newTestLogger(), missingLexicon(), remote, rec)

	out, res, err := svc.ListToTSV(context.Background(), []string{"dog", "qwxz"}, "english")
	require.NoError(t, err)

	assert.Equal(t, "dog\tnoun<br>a canine<br>\n", out)
	assert.Equal(t, Result{Emitted: 1, Failed: 1}, res)
	assert.Equal(t, []string{"dog", "qwxz"}, remote.calls)
	assert.Equal(t, 1, rec.emitted)
	assert.Equal(t, 1, rec.failed)
}

func TestListToTSV_EmptyLexiconFallsBackToRemote(t *testing.T) {
	t.Parallel()

	lex := &mockLexicon{
		LoadFunc: func(context.Context, string) (map[string]string, error) {
			return map[string]string{}, nil
		},
	}
	remote := remoteOf(map[string]string{"cat": catLine})
	svc := NewService(newTestLogger(), lex, remote, nil)

	out, _, err := svc.ListToTSV(context.Background(), []string{"cat"}, "english")
	require.NoError(t, err)
	assert.Equal(t, catLine+"\n", out)
}

func TestListToTSV_CancelledDuringRemote(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	remote := &mockDefiner{
		TSVFunc: func(ctx context.Context, _, _ string) (string, error) {
			cancel()
			return "", ctx.Err()
		},
	}
	svc := NewService(newTestLogger(), missingLexicon(), remote, nil)

	_, _, err := svc.ListToTSV(ctx, []string{"cat", "dog"}, "english")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Len(t, remote.calls, 1)
}

func TestFileToTSV(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "words.txt")
	out := filepath.Join(dir, "words.tsv")
	require.NoError(t, os.WriteFile(in, []byte("cat\ndog\n\nCat\n"), 0o644))

	svc := NewService(newTestLogger(), catLexicon(), remoteOf(nil), nil)
	res, err := svc.FileToTSV(context.Background(), in, out, "english")
	require.NoError(t, err)
	assert.Equal(t, Result{Emitted: 2, Missed: 1}, res)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, catLine+"\n"+catLine+"\n", string(got))
}

func TestFileToTSV_MissingInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	svc := NewService(newTestLogger(), catLexicon(), remoteOf(nil), nil)

	_, err := svc.FileToTSV(context.Background(), filepath.Join(dir, "nope.txt"), filepath.Join(dir, "out.tsv"), "english")
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, statErr := os.Stat(filepath.Join(dir, "out.tsv"))
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "output must not be created")
}

func TestFileToTSV_EmptyInput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	in := filepath.Join(dir, "empty.txt")
	out := filepath.Join(dir, "empty.tsv")
	require.NoError(t, os.WriteFile(in, nil, 0o644))

	svc := NewService(newTestLogger(), catLexicon(), remoteOf(nil), nil)
	res, err := svc.FileToTSV(context.Background(), in, out, "english")
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)

	got, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Empty(t, got)
}
