// Package metrics collects run counters in a private Prometheus registry and
// writes them out in the node_exporter textfile format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "wikitsv"

// Lookup sources and results.
const (
	SourceCache  = "cache"
	SourceRemote = "remote"

	ResultFound    = "found"
	ResultNotFound = "not_found"
	ResultError    = "error"
)

// Analyzer match kinds.
const (
	MatchKnown   = "known"
	MatchScraped = "scraped"
)

// Metrics holds every collector of a run. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	reg *prometheus.Registry

	lookups        *prometheus.CounterVec
	lexiconWords   *prometheus.GaugeVec
	lexiconBad     *prometheus.GaugeVec
	lexiconSeconds *prometheus.GaugeVec
	phrases        *prometheus.CounterVec
	invalid        prometheus.Counter
	batchWords     *prometheus.CounterVec
}

// New registers all collectors in a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		lookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lookups_total",
			Help:      "Definition lookups by source and result.",
		}, []string{"source", "result"}),
		lexiconWords: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lexicon_words",
			Help:      "Words written by the last lexicon build.",
		}, []string{"language"}),
		lexiconBad: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lexicon_malformed_lines",
			Help:      "Malformed dump lines skipped by the last lexicon build.",
		}, []string{"language"}),
		lexiconSeconds: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lexicon_build_seconds",
			Help:      "Duration of the last lexicon build.",
		}, []string{"language"}),
		phrases: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzer_phrases_total",
			Help:      "Phrase occurrences counted by the analyzer, by how the phrase was confirmed.",
		}, []string{"match"}),
		invalid: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyzer_invalid_phrases_total",
			Help:      "Phrases marked invalid after a failed remote lookup.",
		}),
		batchWords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_words_total",
			Help:      "Batch TSV input words by outcome.",
		}, []string{"outcome"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// LookupDone counts one lookup.
func (m *Metrics) LookupDone(source, result string) {
	if m == nil {
		return
	}
	m.lookups.WithLabelValues(source, result).Inc()
}

// LexiconBuilt records the outcome of a lexicon build.
func (m *Metrics) LexiconBuilt(language string, words, malformed int, took time.Duration) {
	if m == nil {
		return
	}
	m.lexiconWords.WithLabelValues(language).Set(float64(words))
	m.lexiconBad.WithLabelValues(language).Set(float64(malformed))
	m.lexiconSeconds.WithLabelValues(language).Set(took.Seconds())
}

// PhraseCounted counts one analyzer match.
func (m *Metrics) PhraseCounted(match string) {
	if m == nil {
		return
	}
	m.phrases.WithLabelValues(match).Inc()
}

// PhraseInvalid counts one phrase rejected by the remote source.
func (m *Metrics) PhraseInvalid() {
	if m == nil {
		return
	}
	m.invalid.Inc()
}

// BatchDone adds the counters of one batch run.
func (m *Metrics) BatchDone(emitted, missed, failed int) {
	if m == nil {
		return
	}
	m.batchWords.WithLabelValues("emitted").Add(float64(emitted))
	m.batchWords.WithLabelValues("missed").Add(float64(missed))
	m.batchWords.WithLabelValues("failed").Add(float64(failed))
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.reg); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
