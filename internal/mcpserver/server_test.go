package mcpserver

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/retrieval"
	"github.com/DreamCats/medindex/internal/store"
)

type fakeSearcher struct {
	queries  []retrieval.Query
	results  []retrieval.Result
	degraded error
}

func (f *fakeSearcher) Search(_ context.Context, q retrieval.Query) (retrieval.Outcome, error) {
	f.queries = append(f.queries, q)
	if f.degraded != nil {
		return retrieval.Outcome{Results: []retrieval.Result{}, Degraded: f.degraded}, nil
	}
	n := min(q.TopK, len(f.results))
	return retrieval.Outcome{Results: f.results[:n]}, nil
}

type fakeSources []store.Source

func (f fakeSources) ListSources(context.Context) ([]store.Source, error) { return f, nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("embedding:\n  provider: google\n  api_key: k\n"))
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func TestSearchToolRoutesAuto(t *testing.T) {
	page := 12
	searcher := &fakeSearcher{results: []retrieval.Result{
		{ID: 1, Text: "Epinephrine 1 mg IV every 3 to 5 minutes.", SourceTitle: config.ACLSBook, PageNumber: &page, Similarity: 0.91},
	}}
	s := New(testConfig(t), searcher, fakeSources{}, "test")

	_, out, err := s.searchTool(context.Background(), nil, SearchInput{Query: "ACLS epinephrine dose in cardiac arrest", Book: "auto"})
	if err != nil {
		t.Fatalf("searchTool() error = %v", err)
	}
	if out.Book != config.ACLSBook {
		t.Errorf("Book = %q, want %q", out.Book, config.ACLSBook)
	}
	if got := searcher.queries[0]; got.Source != config.ACLSBook || got.TopK != 15 {
		t.Errorf("query = %+v", got)
	}
	if out.Count != 1 || !strings.Contains(out.Context, "(Page 12)") {
		t.Errorf("output = %+v", out)
	}
}

func TestSearchToolDegraded(t *testing.T) {
	searcher := &fakeSearcher{degraded: store.ErrUnavailable}
	s := New(testConfig(t), searcher, fakeSources{}, "test")

	_, out, err := s.searchTool(context.Background(), nil, SearchInput{Query: "sepsis", TopK: 3})
	if err != nil {
		t.Fatalf("searchTool() error = %v", err)
	}
	if out.Degraded == "" || out.Results == nil || out.Count != 0 {
		t.Errorf("output = %+v", out)
	}
}

func TestSearchToolRequiresQuery(t *testing.T) {
	s := New(testConfig(t), &fakeSearcher{}, fakeSources{}, "test")
	if _, _, err := s.searchTool(context.Background(), nil, SearchInput{Query: "  "}); err == nil {
		t.Error("searchTool() accepted empty query")
	}
}

func TestBooksTool(t *testing.T) {
	s := New(testConfig(t), &fakeSearcher{}, fakeSources{{Title: config.NursingBook, Chunks: 42}}, "test")
	_, out, err := s.booksTool(context.Background(), nil, BooksInput{})
	if err != nil {
		t.Fatal(err)
	}
	if out.Count != 1 || out.Books[0].Chunks != 42 {
		t.Errorf("output = %+v", out)
	}
}

func TestReportTool(t *testing.T) {
	searcher := &fakeSearcher{results: []retrieval.Result{
		{ID: 1, Text: "a", SourceTitle: "A", Similarity: 0.9},
		{ID: 2, Text: "b", SourceTitle: "B", Similarity: 0.8},
	}}
	s := New(testConfig(t), searcher, fakeSources{}, "test")

	_, out, err := s.reportTool(context.Background(), nil, ReportInput{Diagnosis: "septic shock"})
	if err != nil {
		t.Fatalf("reportTool() error = %v", err)
	}
	if len(out.Categories) != 3 {
		t.Fatalf("got %d categories", len(out.Categories))
	}
	// Both ids are claimed by the first labs search.
	if out.Categories[0].Count != 2 || out.Categories[1].Count != 0 {
		t.Errorf("categories = %+v", out.Categories)
	}
	if !strings.HasPrefix(out.Categories[1].Context, "No specific") {
		t.Errorf("empty category context = %q", out.Categories[1].Context)
	}
}

func TestReportToolDegraded(t *testing.T) {
	s := New(testConfig(t), &fakeSearcher{degraded: errors.New("down")}, fakeSources{}, "test")
	_, out, err := s.reportTool(context.Background(), nil, ReportInput{Diagnosis: "ARDS"})
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Degraded) == 0 {
		t.Error("degraded searches not reported")
	}
}

func TestReportToolWithoutDiagnosis(t *testing.T) {
	searcher := &fakeSearcher{}
	s := New(testConfig(t), searcher, fakeSources{}, "test")

	_, out, err := s.reportTool(context.Background(), nil, ReportInput{})
	if err != nil {
		t.Fatalf("reportTool() error = %v", err)
	}
	if len(out.Categories) != 3 {
		t.Fatalf("got %d categories", len(out.Categories))
	}
	if got := searcher.queries[0].Text; got != "ICU lab tests diagnostics monitoring" {
		t.Errorf("first query = %q, want the general ICU labs query", got)
	}
}

func TestOutputSimilarityRounded(t *testing.T) {
	searcher := &fakeSearcher{results: []retrieval.Result{
		{ID: 1, Text: "a", SourceTitle: "A", Similarity: 0.912345},
	}}
	s := New(testConfig(t), searcher, fakeSources{}, "test")

	_, search, err := s.searchTool(context.Background(), nil, SearchInput{Query: "lactate", TopK: 1})
	if err != nil {
		t.Fatal(err)
	}
	if got := search.Results[0].Similarity; got != 0.912 {
		t.Errorf("search similarity = %v, want 0.912", got)
	}

	_, report, err := s.reportTool(context.Background(), nil, ReportInput{Diagnosis: "sepsis"})
	if err != nil {
		t.Fatal(err)
	}
	if got := report.Categories[0].Results[0].Similarity; got != 0.912 {
		t.Errorf("report similarity = %v, want 0.912", got)
	}
	if searcher.results[0].Similarity != 0.912345 {
		t.Error("rounding modified the searcher's results")
	}
}
