package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/keyword"
	"github.com/DreamCats/medindex/internal/store"
)

// handleVerify implements the verify subcommand
func handleVerify(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	var book string
	var jsonOutput bool
	fs.StringVar(&book, "book", "", "Book title to check (required)")
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex verify -book "<title>" keyword [keyword...]

DESCRIPTION:
    Report how many of a book's chunks contain each keyword or phrase,
    with a sample chunk. Useful to confirm a book was ingested completely.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    medindex verify -book "Canadian Lab Test Manual" potassium sodium "normal range"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}
	if book == "" || fs.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "Error: -book and at least one keyword are required\n\n")
		fs.Usage()
		os.Exit(1)
	}

	db := openStore(cfg)
	defer db.Close()

	ctx := context.Background()
	report, err := keyword.Verify(ctx, db.Scan(ctx, store.ScanFilter{Source: book}), book, fs.Args())
	if err != nil {
		log.Fatal().Err(err).Str("book", book).Msg("verify failed")
	}

	if jsonOutput {
		printJSON(report)
		return
	}

	fmt.Printf("%s: %d chunks\n\n", report.Source, report.TotalChunks)
	for _, h := range report.Hits {
		mark := "missing"
		if h.Chunks > 0 {
			mark = fmt.Sprintf("%d chunks", h.Chunks)
		}
		fmt.Printf("%-24s %s\n", h.Keyword, mark)
		if h.Sample != "" {
			fmt.Printf("    %s\n", h.Sample)
		}
	}
}
