package config

import "time"

// Lexicon backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
)

// Config is the root application configuration.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Lexicon    LexiconConfig    `yaml:"lexicon"`
	Kaikki     KaikkiConfig     `yaml:"kaikki"`
	Wiktionary WiktionaryConfig `yaml:"wiktionary"`
	Cache      CacheConfig      `yaml:"cache"`
	Database   DatabaseConfig   `yaml:"database"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
}

// LexiconConfig selects where built lexicons are stored.
type LexiconConfig struct {
	Backend string `yaml:"backend" env:"LEXICON_BACKEND" env-default:"file"`
	Dir     string `yaml:"dir"     env:"LEXICON_DIR"     env-default:"dictionaries"`
}

// KaikkiConfig holds settings for the bulk lexicon dump source.
type KaikkiConfig struct {
	BaseURL string        `yaml:"base_url" env:"KAIKKI_BASE_URL" env-default:"https://kaikki.org/dictionary"`
	Timeout time.Duration `yaml:"timeout"  env:"KAIKKI_TIMEOUT"  env-default:"1h"`
}

// WiktionaryConfig holds settings for the remote definition endpoint.
type WiktionaryConfig struct {
	BaseURL    string        `yaml:"base_url"    env:"WIKTIONARY_BASE_URL"    env-default:"https://en.wiktionary.org/api/rest_v1/page/definition"`
	UserAgent  string        `yaml:"user_agent"  env:"WIKTIONARY_USER_AGENT"  env-default:"https://github.com/myalynnnguyen/WiktionaryTSV"`
	Timeout    time.Duration `yaml:"timeout"     env:"WIKTIONARY_TIMEOUT"     env-default:"30s"`
	RateCalls  int           `yaml:"rate_calls"  env:"WIKTIONARY_RATE_CALLS"  env-default:"200"`
	RatePeriod time.Duration `yaml:"rate_period" env:"WIKTIONARY_RATE_PERIOD" env-default:"10s"`
}

// CacheConfig controls the on-disk cache of successful remote lookups.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" env:"CACHE_ENABLED" env-default:"false"`
	Dir     string        `yaml:"dir"     env:"CACHE_DIR"     env-default:".wikitsv-cache"`
	TTL     time.Duration `yaml:"ttl"     env:"CACHE_TTL"     env-default:"720h"`
}

// DatabaseConfig holds PostgreSQL connection settings. Only used by the
// postgres lexicon backend.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"5"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"1"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// MetricsConfig holds the optional Prometheus textfile target.
type MetricsConfig struct {
	File string `yaml:"file" env:"METRICS_FILE"`
}
