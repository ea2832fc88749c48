// Package badger caches successful remote lookups in an embedded BadgerDB.
package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "def/"

// Cache maps (language, word) to a serialized definition line.
// Only positive results are stored.
type Cache struct {
	db  *badger.DB
	ttl time.Duration
	log *slog.Logger
}

// Open opens or creates a persistent cache in dir. A zero ttl keeps entries forever.
func Open(dir string, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	if dir == "" {
		return nil, errors.New("badger: cache dir is required")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("badger: create cache dir %s: %w", dir, err)
	}
	return open(badger.DefaultOptions(dir), ttl, logger)
}

// OpenInMemory opens a cache that lives only as long as the process.
func OpenInMemory(logger *slog.Logger) (*Cache, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), 0, logger)
}

func open(opts badger.Options, ttl time.Duration, logger *slog.Logger) (*Cache, error) {
	log := logger.With("adapter", "badger")
	opts = opts.WithLogger(&badgerLogger{logger: log})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open: %w", err)
	}
	return &Cache{db: db, ttl: ttl, log: log}, nil
}

// Close flushes and closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Get returns the cached line for word in language.
func (c *Cache) Get(ctx context.Context, language, word string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	var line string
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key(language, word))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			line = string(val)
			return nil
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("badger: get %q: %w", word, err)
	}
	return line, true, nil
}

// Put stores line for word in language.
func (c *Cache) Put(ctx context.Context, language, word, line string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := c.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(key(language, word), []byte(line))
		if c.ttl > 0 {
			e = e.WithTTL(c.ttl)
		}
		return txn.SetEntry(e)
	})
	if err != nil {
		return fmt.Errorf("badger: put %q: %w", word, err)
	}
	return nil
}

func key(language, word string) []byte {
	return []byte(keyPrefix + language + "/" + strings.ToLower(word))
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface. Badger's
// info chatter is demoted to debug.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Warningf(format string, args ...any) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Infof(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (l *badgerLogger) Debugf(format string, args ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)))
}
