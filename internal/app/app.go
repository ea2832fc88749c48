package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	badgercache "github.com/heartmarshall/wikitsv/internal/adapter/cache/badger"
	"github.com/heartmarshall/wikitsv/internal/adapter/postgres"
	lexiconrepo "github.com/heartmarshall/wikitsv/internal/adapter/postgres/lexicon"
	"github.com/heartmarshall/wikitsv/internal/adapter/provider/kaikki"
	"github.com/heartmarshall/wikitsv/internal/adapter/provider/wiktionary"
	"github.com/heartmarshall/wikitsv/internal/analyzer"
	"github.com/heartmarshall/wikitsv/internal/batch"
	"github.com/heartmarshall/wikitsv/internal/config"
	"github.com/heartmarshall/wikitsv/internal/domain"
	"github.com/heartmarshall/wikitsv/internal/lexicon"
	"github.com/heartmarshall/wikitsv/internal/lexicon/filestore"
	"github.com/heartmarshall/wikitsv/internal/lookup"
	"github.com/heartmarshall/wikitsv/internal/metrics"
	"github.com/heartmarshall/wikitsv/internal/ratelimit"
	"github.com/heartmarshall/wikitsv/pkg/ctxutil"
)

// App holds the services of one CLI invocation. Close must be called when
// the command finishes.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	RunID   uuid.UUID
	Metrics *metrics.Metrics

	Lexicon *lexicon.Service
	Lookup  *lookup.Service
	Batch   *batch.Service

	closers []func() error
}

// New wires every service from cfg. Nothing touches the network until a
// service is used, except the postgres backend which connects and migrates.
// The run ID is taken from ctx when present.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	runID, ok := ctxutil.RunIDFromCtx(ctx)
	if !ok {
		runID = uuid.New()
	}
	logger = logger.With(slog.String("run_id", runID.String()))

	a := &App{
		Config:  cfg,
		Log:     logger,
		RunID:   runID,
		Metrics: metrics.New(),
	}

	store, err := a.openLexicon(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Lexicon = lexicon.NewService(logger, store, kaikki.NewSource(cfg.Kaikki, logger), a.Metrics)

	limiter := ratelimit.NewWindow(cfg.Wiktionary.RateCalls, cfg.Wiktionary.RatePeriod)
	provider := wiktionary.NewProvider(cfg.Wiktionary, limiter, logger)

	if cfg.Cache.Enabled {
		c, err := badgercache.Open(cfg.Cache.Dir, cfg.Cache.TTL, logger)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, c.Close)
		a.Lookup = lookup.NewService(logger, provider, c, a.Metrics)
	} else {
		a.Lookup = lookup.NewService(logger, provider, nil, a.Metrics)
	}

	a.Batch = batch.NewService(logger, a.Lexicon, a.Lookup, a.Metrics)

	logger.DebugContext(ctx, "app wired",
		slog.String("version", BuildVersion()),
		slog.String("lexicon", cfg.Lexicon.Backend),
		slog.Bool("cache", cfg.Cache.Enabled),
	)
	return a, nil
}

// lexiconBackend is satisfied by the file store and the postgres repo.
type lexiconBackend interface {
	Exists(ctx context.Context, language string) (bool, error)
	Load(ctx context.Context, language string) (map[string]string, error)
	Save(ctx context.Context, language string, defs []*domain.WordDefinition) error
	Location(language string) string
}

func (a *App) openLexicon(ctx context.Context) (lexiconBackend, error) {
	switch a.Config.Lexicon.Backend {
	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, a.Config.Database, a.Log)
		if err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		a.closers = append(a.closers, func() error { pool.Close(); return nil })

		if err := postgres.Migrate(ctx, pool, a.Log); err != nil {
			return nil, fmt.Errorf("app: %w", err)
		}
		return lexiconrepo.New(pool, postgres.NewTxManager(pool)), nil
	case config.BackendFile, "":
		return filestore.New(a.Config.Lexicon.Dir), nil
	default:
		return nil, fmt.Errorf("app: unknown lexicon backend %q", a.Config.Lexicon.Backend)
	}
}

// NewAnalyzer creates a frequency analyzer backed by the app's lexicon and
// remote lookup.
func (a *App) NewAnalyzer(ctx context.Context, opts analyzer.Options) (*analyzer.Analyzer, error) {
	return analyzer.New(ctx, a.Log, opts, a.Lexicon, a.Lookup, a.Metrics)
}

// Close writes the metrics textfile, if configured, and releases resources
// in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	if err := a.Metrics.WriteTextfile(a.Config.Metrics.File); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
