package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/heartmarshall/wikitsv/internal/analyzer"
	"github.com/heartmarshall/wikitsv/internal/app"
	"github.com/heartmarshall/wikitsv/internal/config"
	"github.com/heartmarshall/wikitsv/pkg/ctxutil"
)

// cli carries global flags and the wired app between cobra hooks.
type cli struct {
	configPath  string
	logLevel    string
	metricsFile string

	app *app.App
}

// run executes one command line and releases the app afterwards, even when
// the command fails.
func run(ctx context.Context, args []string, stdout io.Writer) error {
	c := &cli{}
	root := c.rootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)

	err := root.ExecuteContext(ctxutil.WithRunID(ctx, uuid.New()))
	if c.app != nil {
		err = errors.Join(err, c.app.Close())
	}
	return err
}

func (c *cli) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "wikitsv",
		Short:             "Build Wiktionary dictionaries and annotate word frequencies with definitions",
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.configPath, "config", "", "path to YAML config (default $CONFIG_PATH or ./config.yaml)")
	pf.StringVar(&c.logLevel, "log-level", "", "override log level: debug, info, warn, error")
	pf.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this file on exit")

	root.AddCommand(
		c.buildCmd(),
		c.tsvCmd(),
		c.analyzeCmd(),
		c.lookupCmd(),
		versionCmd(),
	)
	return root
}

func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	path := c.configPath
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	cfg, err := config.LoadPath(path)
	if err != nil {
		return err
	}
	if c.logLevel != "" {
		cfg.Log.Level = c.logLevel
	}
	if c.metricsFile != "" {
		cfg.Metrics.File = c.metricsFile
	}

	logger := app.NewLogger(cfg.Log)

	c.app, err = app.New(cmd.Context(), cfg, logger.With(slog.String("command", cmd.Name())))
	return err
}

func (c *cli) buildCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "build <language>",
		Short: "Download the Kaikki dump for a language and store its dictionary",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			language := strings.Join(args, " ")
			lex := c.app.Lexicon

			var err error
			if force {
				err = lex.Rebuild(cmd.Context(), language)
			} else {
				err = lex.EnsureBuilt(cmd.Context(), language)
			}
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), lex.PathFor(language))
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "rebuild even if the dictionary already exists")
	return cmd
}

func (c *cli) tsvCmd() *cobra.Command {
	var (
		language string
		noBuild  bool
	)

	cmd := &cobra.Command{
		Use:   "tsv <input> <output>",
		Short: "Write a TSV definition line for every word in a newline-separated list",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !noBuild {
				c.ensureBuilt(cmd.Context(), language)
			}

			res, err := c.app.Batch.FileToTSV(cmd.Context(), args[0], args[1], language)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d written, %d missing, %d failed\n", args[1], res.Emitted, res.Missed, res.Failed)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "English", "language of the words")
	cmd.Flags().BoolVar(&noBuild, "no-build", false, "do not download the dictionary if it is missing")
	return cmd
}

func (c *cli) analyzeCmd() *cobra.Command {
	var (
		opts    analyzer.Options
		ngram   int
		out     string
		noBuild bool
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Count dictionary words and phrases in text files and write frequency.txt and definitions.tsv",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			if !noBuild {
				c.ensureBuilt(ctx, opts.Language)
			}

			an, err := c.app.NewAnalyzer(ctx, opts)
			if err != nil {
				return err
			}
			for _, path := range args {
				if err := an.ParseFile(ctx, path, ngram); err != nil {
					return err
				}
			}
			if err := an.PrintAll(out); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%d distinct phrases written to %s\n", len(an.Entries()), out)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.Language, "language", "l", "English", "language of the texts")
	f.BoolVar(&opts.Scrape, "scrape", false, "look up phrases missing from the dictionary on Wiktionary")
	f.StringVar(&opts.Segmenter, "segmenter", analyzer.SegmenterAuto, "word segmenter: auto, whitespace, kagome")
	f.IntVarP(&ngram, "ngram", "n", 1, "longest phrase length to match, in words")
	f.StringVarP(&out, "out", "o", ".", "directory for frequency.txt and definitions.tsv")
	f.BoolVar(&noBuild, "no-build", false, "do not download the dictionary if it is missing")
	return cmd
}

// ensureBuilt builds a missing dictionary. A failure is logged and the
// command carries on with remote lookups.
func (c *cli) ensureBuilt(ctx context.Context, language string) {
	if err := c.app.Lexicon.EnsureBuilt(ctx, language); err != nil {
		c.app.Log.WarnContext(ctx, "dictionary build failed",
			slog.String("language", language),
			slog.String("error", err.Error()),
		)
	}
}

func (c *cli) lookupCmd() *cobra.Command {
	var language string

	cmd := &cobra.Command{
		Use:   "lookup <word>...",
		Short: "Print the Wiktionary definition line for a word or phrase",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			line, err := c.app.Lookup.TSV(cmd.Context(), strings.Join(args, " "), language)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
			return nil
		},
	}
	cmd.Flags().StringVarP(&language, "language", "l", "English", "language section to read")
	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		// No config or app is needed to print the version.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion())
			return nil
		},
	}
}
