package mcpserver

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/retrieval"
	"github.com/DreamCats/medindex/internal/store"
)

// SourceLister lists ingested books.
type SourceLister interface {
	ListSources(ctx context.Context) ([]store.Source, error)
}

// Server exposes medindex search via MCP stdio.
type Server struct {
	cfg      *config.Config
	searcher retrieval.Searcher
	sources  SourceLister
	router   *retrieval.Router
	version  string
}

// New creates a new MCP server wrapper.
func New(cfg *config.Config, searcher retrieval.Searcher, sources SourceLister, version string) *Server {
	return &Server{
		cfg:      cfg,
		searcher: searcher,
		sources:  sources,
		router:   retrieval.NewRouter(cfg.Retrieval.Routes),
		version:  version,
	}
}

// Run starts the MCP stdio server.
func (s *Server) Run(ctx context.Context) error {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "medindex",
		Title:   "MedIndex",
		Version: s.version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name: "medindex_search",
		Description: `Search ingested clinical reference books by meaning.

- book: exact title from medindex_books, "auto" to pick a book from keywords in the query, or empty for all books
- top_k: number of chunks (default from config)

Results carry the source title and page number. "context" is the formatted block ready to quote.`,
	}, s.searchTool)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "medindex_books",
		Description: "List ingested books with their chunk counts.",
	}, s.booksTool)

	mcp.AddTool(server, &mcp.Tool{
		Name: "medindex_report",
		Description: `Gather reference context for a patient: labs, pharmacology and general care.

All fields are optional; without a diagnosis general ICU queries are used. Each category merges several book searches, drops chunks already used by an earlier category and keeps the best matches.`,
	}, s.reportTool)

	log.Info().Str("version", s.version).Msg("mcp server listening on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) searchTool(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	query := strings.TrimSpace(input.Query)
	if query == "" {
		return nil, SearchOutput{}, fmt.Errorf("query is required")
	}

	book := strings.TrimSpace(input.Book)
	if strings.EqualFold(book, "auto") {
		book = s.router.Route(query)
	}

	topK := input.TopK
	if topK <= 0 {
		topK = s.cfg.Retrieval.DefaultTopK
	}

	outcome, err := s.searcher.Search(ctx, retrieval.Query{Text: query, Source: book, TopK: topK})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Query:   query,
		Book:    book,
		Count:   len(outcome.Results),
		Results: retrieval.DisplayResults(outcome.Results),
		Context: retrieval.FormatSources(outcome.Results),
	}
	if outcome.Degraded != nil {
		output.Degraded = outcome.Degraded.Error()
	}
	return nil, output, nil
}

func (s *Server) booksTool(ctx context.Context, _ *mcp.CallToolRequest, _ BooksInput) (*mcp.CallToolResult, BooksOutput, error) {
	sources, err := s.sources.ListSources(ctx)
	if err != nil {
		return nil, BooksOutput{}, err
	}
	if sources == nil {
		sources = []store.Source{}
	}
	return nil, BooksOutput{Count: len(sources), Books: sources}, nil
}

func (s *Server) reportTool(ctx context.Context, _ *mcp.CallToolRequest, input ReportInput) (*mcp.CallToolResult, ReportOutput, error) {
	plan := retrieval.ClinicalPlan(retrieval.Patient{
		Diagnosis:    input.Diagnosis,
		VentSettings: input.VentSettings,
		Drips:        input.Drips,
		Medications:  input.Medications,
	}, s.cfg.Retrieval.Sources, s.cfg.Retrieval.CategoryCap)

	agg, err := retrieval.NewAggregator(s.searcher).Run(ctx, plan, nil)
	if err != nil {
		return nil, ReportOutput{}, err
	}
	return nil, toReportOutput(agg), nil
}

func toReportOutput(agg *retrieval.Aggregation) ReportOutput {
	out := ReportOutput{Categories: make([]ReportCategory, 0, len(agg.Categories))}
	for _, c := range agg.Categories {
		out.Categories = append(out.Categories, ReportCategory{
			Name:    c.Name,
			Section: c.Section,
			Count:   len(c.Results),
			Results: retrieval.DisplayResults(c.Results),
			Context: retrieval.FormatCategory(c),
		})
	}
	for _, d := range agg.Degraded {
		out.Degraded = append(out.Degraded, fmt.Sprintf("%s: %q: %v", d.Category, d.Query, d.Err))
	}
	return out
}
