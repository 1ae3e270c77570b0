package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/retrieval"
)

// handleSearch implements the search subcommand
func handleSearch(cfg *config.Config, args []string) {
	fs := flag.NewFlagSet("search", flag.ExitOnError)

	var topK int
	var book string
	var jsonOutput, contextOutput bool
	fs.IntVar(&topK, "k", cfg.Retrieval.DefaultTopK, "Number of results to return")
	fs.StringVar(&book, "book", "", `Restrict to one book title, or "auto" to route by keywords`)
	fs.BoolVar(&jsonOutput, "json", false, "Output results as JSON")
	fs.BoolVar(&contextOutput, "context", false, "Print the formatted source block instead of a listing")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `USAGE:
    medindex search [options] "<query>"

DESCRIPTION:
    Embed the query and rank every stored chunk by cosine similarity.

OPTIONS:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
EXAMPLES:
    medindex search "norepinephrine titration"
    medindex search -book "Canadian Lab Test Manual" -k 5 "lactate"
    medindex search -book auto "trauma primary survey"
    medindex search -json "DKA insulin protocol"
`)
	}

	if err := fs.Parse(args); err != nil {
		log.Fatal().Err(err).Msg("failed to parse arguments")
	}
	if fs.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: search query is required\n\n")
		fs.Usage()
		os.Exit(1)
	}
	query := strings.Join(fs.Args(), " ")

	if strings.EqualFold(book, "auto") {
		book = retrieval.NewRouter(cfg.Retrieval.Routes).Route(query)
		log.Debug().Str("book", book).Msg("routed query")
	}

	db := openStore(cfg)
	defer db.Close()

	outcome, err := newRetriever(cfg, db).Search(context.Background(), retrieval.Query{
		Text:   query,
		Source: book,
		TopK:   topK,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("search failed")
	}
	if outcome.Degraded != nil {
		fmt.Fprintf(os.Stderr, "Warning: search degraded: %v\n", outcome.Degraded)
	}

	switch {
	case jsonOutput:
		printJSON(map[string]any{
			"query":   query,
			"book":    book,
			"count":   len(outcome.Results),
			"results": retrieval.DisplayResults(outcome.Results),
		})
	case contextOutput:
		fmt.Println(retrieval.FormatSources(outcome.Results))
	default:
		outputResults(outcome.Results, query)
	}
}

func outputResults(results []retrieval.Result, query string) {
	if len(results) == 0 {
		fmt.Println("No results found")
		return
	}

	fmt.Printf("Found %d result(s) for: %s\n\n", len(results), query)
	for i, r := range results {
		page := "?"
		if r.PageNumber != nil {
			page = fmt.Sprint(*r.PageNumber)
		}
		fmt.Printf("%d. %s (page %s)  similarity %.3f\n", i+1, r.SourceTitle, page, retrieval.DisplaySimilarity(r.Similarity))

		text := []rune(strings.Join(strings.Fields(r.Text), " "))
		if len(text) > 160 {
			text = append(text[:160], []rune("...")...)
		}
		fmt.Printf("   %s\n\n", string(text))
	}
}
