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
	"github.com/DreamCats/medindex/internal/mcpserver"
)

// handleMCP implements the MCP stdio server subcommand
func handleMCP(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex mcp

DESCRIPTION:
    Run an MCP stdio server exposing:
      - medindex_search
      - medindex_books
      - medindex_report
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}

	db := openStore(cfg)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := mcpserver.New(cfg, newRetriever(cfg, db), db, internal.Version)
	if err := server.Run(ctx); err != nil {
		log.Error().Err(err).Msg("MCP server failed")
	}
}
