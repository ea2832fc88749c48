package config

import (
	"fmt"
	"strings"

	"github.com/heartmarshall/wikitsv/internal/domain"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	var errs []domain.FieldError

	c.Lexicon.Backend = strings.ToLower(strings.TrimSpace(c.Lexicon.Backend))
	switch c.Lexicon.Backend {
	case BackendFile:
		if c.Lexicon.Dir == "" {
			errs = append(errs, domain.FieldError{Field: "lexicon.dir", Message: "required for file backend"})
		}
	case BackendPostgres:
		if c.Database.DSN == "" {
			errs = append(errs, domain.FieldError{Field: "database.dsn", Message: "required for postgres backend"})
		}
	default:
		errs = append(errs, domain.FieldError{Field: "lexicon.backend", Message: fmt.Sprintf("must be file or postgres, got %q", c.Lexicon.Backend)})
	}

	if c.Wiktionary.RateCalls < 1 {
		errs = append(errs, domain.FieldError{Field: "wiktionary.rate_calls", Message: "must be >= 1"})
	}
	if c.Wiktionary.RatePeriod <= 0 {
		errs = append(errs, domain.FieldError{Field: "wiktionary.rate_period", Message: "must be > 0"})
	}

	if c.Cache.Enabled && c.Cache.Dir == "" {
		errs = append(errs, domain.FieldError{Field: "cache.dir", Message: "required when cache is enabled"})
	}

	if len(errs) > 0 {
		return domain.NewValidationErrors(errs)
	}
	return nil
}
