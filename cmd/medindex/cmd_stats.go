package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
)

// handleStats implements the stats subcommand
func handleStats(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	var jsonOutput bool
	fs.BoolVar(&jsonOutput, "json", false, "Output as JSON")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex stats [options]

DESCRIPTION:
    Show statistics about the chunk store.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    medindex stats
    medindex stats -json
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}

	db := openStore(cfg)
	defer db.Close()

	stats, err := db.Stats(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read statistics")
	}

	if jsonOutput {
		printJSON(stats)
		return
	}
	fmt.Println("Chunk Store Statistics")
	fmt.Println()
	fmt.Printf("Driver:     %s\n", stats.Driver)
	fmt.Printf("Table:      %s\n", stats.Table)
	fmt.Printf("Dimensions: %6d\n", stats.Dimensions)
	fmt.Printf("Chunks:     %6d\n", stats.ChunkCount)
	fmt.Printf("Books:      %6d\n", stats.SourceCount)
	if stats.SizeBytes > 0 {
		fmt.Printf("Size:       %s\n", formatBytes(stats.SizeBytes))
	}
}

func formatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
