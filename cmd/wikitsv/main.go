// Command wikitsv builds per-language definition dictionaries from Wiktionary
// data and annotates word frequencies in text with their definitions.
//
// Commands:
//
//	build <language>        download and store the lexicon for a language
//	tsv <input> <output>    write definition lines for a word list
//	analyze <file>...       count dictionary phrases and write frequency reports
//	lookup <word>...        print the remote definition line for a word or phrase
//	version                 print the build version
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := run(ctx, os.Args[1:], os.Stdout)
	stop()
	if err != nil {
		slog.Error("wikitsv failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
