package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
)

// handleBooks implements the books subcommand
func handleBooks(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("books", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex books [options]

DESCRIPTION:
    List ingested books with their chunk counts.

OPTIONS:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}

	db := openStore(cfg)
	defer db.Close()

	sources, err := db.ListSources(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to list books")
	}

	if jsonOutput {
		printJSON(sources)
		return
	}
	if len(sources) == 0 {
		fmt.Println("No books ingested yet. Run `medindex ingest`.")
		return
	}
	for _, s := range sources {
		fmt.Printf("%8d  %s", s.Chunks, s.Title)
		if s.SourceFile != "" {
			fmt.Printf("  (%s)", s.SourceFile)
		}
		fmt.Println()
	}
}
