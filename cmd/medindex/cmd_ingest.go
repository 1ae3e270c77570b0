package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/cmd/medindex/internal"
	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/indexer"
)

// handleIngest implements the ingest subcommand
func handleIngest(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)

	var title string
	var dryRun, jsonOutput, noProgress bool
	fs.StringVar(&title, "title", "", "Book title (single file only, default: file name)")
	fs.BoolVar(&dryRun, "dry-run", false, "Extract and chunk only, no embedding or writes")
	fs.BoolVar(&jsonOutput, "json", false, "Output the run report as JSON")
	fs.BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex ingest [options] [files or globs...]

DESCRIPTION:
    Extract text from books, split it into overlapping word windows, embed
    each chunk and store it. Without arguments every matching file under
    ingest.books_dir is ingested. Files are processed one after another; a
    failing file is reported and skipped.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    # Ingest every book under ./books
    medindex ingest

    # Ingest one file with a title
    medindex ingest -title "ACLS Provider Manual" acls.pdf

    # Check chunk counts without calling the embedding API
    medindex ingest -dry-run "books/**/*.txt"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}

	paths, err := internal.ResolveInputs(cfg.Ingest, fs.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n\n", err)
		fs.Usage()
		os.Exit(1)
	}
	if title != "" && len(paths) > 1 {
		log.Warn().Int("files", len(paths)).Msg("-title ignored for multiple files")
	}

	opts := indexer.Options{DryRun: dryRun}
	if !noProgress && !jsonOutput && indexer.DefaultProgressEnabled() {
		opts.Progress = indexer.NewBarProgress(true)
	}

	var idx *indexer.Indexer
	if dryRun {
		idx, err = indexer.NewIndexer(cfg, nil, nil, opts)
	} else {
		db := openStore(cfg)
		defer db.Close()
		idx, err = indexer.NewIndexer(cfg, newEmbedder(cfg), db, opts)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create indexer")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := idx.IngestAll(ctx, paths, title)

	if jsonOutput {
		printJSON(report)
	} else {
		fmt.Printf("Run %s\n\n", report.RunID)
		for _, fr := range report.Files {
			status := "ok"
			if fr.Error != "" {
				status = "FAILED: " + fr.Error
			}
			fmt.Printf("%-40s pages=%-5d chunks=%-6d inserted=%-6d %s\n",
				fr.Title, fr.Pages, fr.Chunks, fr.Inserted, status)
		}
		fmt.Printf("\nTotal: %d chunks, %d inserted, %d failed file(s)\n", report.Chunks, report.Inserted, report.Failed)
	}

	if report.Failed > 0 {
		os.Exit(1)
	}
}
