// Package lexicon stores built lexicons in PostgreSQL, one row per word.
package lexicon

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	postgres "github.com/heartmarshall/wikitsv/internal/adapter/postgres"
	"github.com/heartmarshall/wikitsv/internal/domain"
)

const (
	languagesTable = "lexicon_languages"
	entriesTable   = "lexicon_entries"

	// insertChunk bounds the rows per INSERT so a statement stays well
	// under PostgreSQL's 65535 bind parameter limit.
	insertChunk = 1000
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Repo is the PostgreSQL lexicon backend.
type Repo struct {
	db  postgres.DB
	txm *postgres.TxManager
}

// New creates a lexicon repository.
func New(db postgres.DB, txm *postgres.TxManager) *Repo {
	return &Repo{db: db, txm: txm}
}

// Location identifies the lexicon of language in logs.
func (r *Repo) Location(language string) string {
	return "postgres://" + entriesTable + "#" + language
}

// Exists reports whether a lexicon for language has been saved.
func (r *Repo) Exists(ctx context.Context, language string) (bool, error) {
	query, args, err := psql.Select("1").
		From(languagesTable).
		Where(sq.Eq{"language": language}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build exists query: %w", err)
	}

	var one int
	err = postgres.QuerierFromCtx(ctx, r.db).QueryRow(ctx, query, args...).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, postgres.MapError(err, "lexicon", language)
	}
	return true, nil
}

// Load returns word -> serialized line for language.
func (r *Repo) Load(ctx context.Context, language string) (map[string]string, error) {
	exists, err := r.Exists(ctx, language)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("lexicon %s: %w", language, domain.ErrNotFound)
	}

	query, args, err := psql.Select("word", "line").
		From(entriesTable).
		Where(sq.Eq{"language": language}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build load query: %w", err)
	}

	rows, err := postgres.QuerierFromCtx(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, postgres.MapError(err, "lexicon", language)
	}
	defer rows.Close()

	lex := make(map[string]string)
	for rows.Next() {
		var word, line string
		if err := rows.Scan(&word, &line); err != nil {
			return nil, postgres.MapError(err, "lexicon", language)
		}
		lex[word] = line
	}
	if err := rows.Err(); err != nil {
		return nil, postgres.MapError(err, "lexicon", language)
	}
	return lex, nil
}

// Save replaces the lexicon of language with defs in a single transaction.
// Empty records are skipped.
func (r *Repo) Save(ctx context.Context, language string, defs []*domain.WordDefinition) error {
	// One row per word; a repeated word keeps its first position and last line.
	lines := make([][2]string, 0, len(defs))
	seen := make(map[string]int, len(defs))
	for _, d := range defs {
		line := d.Serialize()
		if line == "" {
			continue
		}
		key := domain.LineKey(line)
		if i, ok := seen[key]; ok {
			lines[i][1] = line
			continue
		}
		seen[key] = len(lines)
		lines = append(lines, [2]string{key, line})
	}

	return r.txm.RunInTx(ctx, func(ctx context.Context) error {
		q := postgres.QuerierFromCtx(ctx, r.db)

		upsert, args, err := psql.Insert(languagesTable).
			Columns("language", "word_count", "built_at").
			Values(language, len(lines), sq.Expr("now()")).
			Suffix("ON CONFLICT (language) DO UPDATE SET word_count = EXCLUDED.word_count, built_at = EXCLUDED.built_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build language upsert: %w", err)
		}
		if _, err := q.Exec(ctx, upsert, args...); err != nil {
			return postgres.MapError(err, "lexicon", language)
		}

		del, args, err := psql.Delete(entriesTable).Where(sq.Eq{"language": language}).ToSql()
		if err != nil {
			return fmt.Errorf("build entries delete: %w", err)
		}
		if _, err := q.Exec(ctx, del, args...); err != nil {
			return postgres.MapError(err, "lexicon", language)
		}

		for start := 0; start < len(lines); start += insertChunk {
			end := min(start+insertChunk, len(lines))

			ins := psql.Insert(entriesTable).Columns("language", "word", "line", "position")
			for i := start; i < end; i++ {
				ins = ins.Values(language, lines[i][0], lines[i][1], i)
			}
			stmt, args, err := ins.ToSql()
			if err != nil {
				return fmt.Errorf("build entries insert: %w", err)
			}
			if _, err := q.Exec(ctx, stmt, args...); err != nil {
				return postgres.MapError(err, "lexicon", language)
			}
		}
		return nil
	})
}
