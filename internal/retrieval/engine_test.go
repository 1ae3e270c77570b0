package retrieval

import (
	"context"
	"errors"
	"iter"
	"math"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/store"
)

type sliceSource struct {
	records []store.Record
	err     error
	filters []store.ScanFilter
}

func (s *sliceSource) Scan(_ context.Context, filter store.ScanFilter) iter.Seq2[store.Record, error] {
	s.filters = append(s.filters, filter)
	return func(yield func(store.Record, error) bool) {
		if s.err != nil {
			yield(store.Record{}, s.err)
			return
		}
		for _, r := range s.records {
			if filter.Source != "" && r.SourceTitle != filter.Source {
				continue
			}
			if !yield(r, nil) {
				return
			}
		}
	}
}

func rec(id int64, source string, v ...float32) store.Record {
	return store.Record{ID: id, Text: "chunk", SourceTitle: source, Embedding: v}
}

func ids(results []Result) []int64 {
	out := make([]int64, len(results))
	for i, r := range results {
		out[i] = r.ID
	}
	return out
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 0},
		{"opposite", []float32{1, 1, 1}, []float32{-1, -1, -1}, -1},
		{"diagonal", []float32{1, 0}, []float32{1, 1}, 1 / math.Sqrt2},
		{"zero left", []float32{0, 0}, []float32{1, 1}, 0},
		{"zero right", []float32{1, 1}, []float32{0, 0}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Cosine(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Cosine() = %v, want %v", got, tt.want)
			}
			if rev := Cosine(tt.b, tt.a); rev != got {
				t.Errorf("Cosine not symmetric: %v vs %v", got, rev)
			}
			if got < -1 || got > 1 {
				t.Errorf("Cosine() = %v out of range", got)
			}
		})
	}
}

func TestEngineSearchScenario(t *testing.T) {
	src := &sliceSource{records: []store.Record{
		rec(1, "A", 1, 0),
		rec(2, "A", 0, 1),
		rec(3, "A", 1, 1),
	}}
	engine := NewEngine(src)

	results, err := engine.Search(context.Background(), []float32{1, 0}, 2, "")
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if got := ids(results); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Fatalf("Search() ids = %v, want [1 3]", got)
	}
	if results[0].Similarity != 1 {
		t.Errorf("first similarity = %v, want 1", results[0].Similarity)
	}
	if math.Abs(results[1].Similarity-0.7071) > 1e-4 {
		t.Errorf("second similarity = %v, want ~0.707", results[1].Similarity)
	}
}

func TestEngineSearchTopK(t *testing.T) {
	src := &sliceSource{records: []store.Record{
		rec(1, "A", 1, 0), rec(2, "A", 0, 1), rec(3, "B", 1, 1),
	}}
	engine := NewEngine(src)
	ctx := context.Background()

	for _, k := range []int{-1, 0, 1, 2, 3, 4, 100} {
		results, err := engine.Search(ctx, []float32{1, 0}, k, "")
		if err != nil {
			t.Fatal(err)
		}
		want := min(max(k, 0), 3)
		if len(results) != want {
			t.Errorf("topK=%d: %d results, want %d", k, len(results), want)
		}
	}

	scans := len(src.filters)
	if _, err := engine.Search(ctx, []float32{1, 0}, 0, ""); err != nil {
		t.Fatal(err)
	}
	if len(src.filters) != scans {
		t.Error("topK=0 still scanned the store")
	}
}

func TestEngineSearchFilter(t *testing.T) {
	src := &sliceSource{records: []store.Record{
		rec(1, "A", 1, 0), rec(2, "B", 1, 0), rec(3, "A", 0, 1),
	}}
	results, err := NewEngine(src).Search(context.Background(), []float32{1, 0}, 10, "A")
	if err != nil {
		t.Fatal(err)
	}
	if got := ids(results); !reflect.DeepEqual(got, []int64{1, 3}) {
		t.Errorf("ids = %v, want [1 3]", got)
	}
	if src.filters[0].Source != "A" {
		t.Errorf("filter = %+v", src.filters[0])
	}
}

func TestEngineSearchStableTies(t *testing.T) {
	src := &sliceSource{records: []store.Record{
		rec(5, "A", 2, 0), rec(2, "A", 1, 0), rec(9, "A", 3, 0), rec(1, "A", 0, 1),
	}}
	engine := NewEngine(src)

	first, _ := engine.Search(context.Background(), []float32{1, 0}, 3, "")
	second, _ := engine.Search(context.Background(), []float32{1, 0}, 3, "")
	if got := ids(first); !reflect.DeepEqual(got, []int64{5, 2, 9}) {
		t.Errorf("tied ids = %v, want scan order [5 2 9]", got)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("repeated search returned different results")
	}
}

func TestEngineSearchErrors(t *testing.T) {
	ctx := context.Background()

	empty, err := NewEngine(&sliceSource{}).Search(ctx, []float32{1}, 5, "")
	if err != nil || len(empty) != 0 {
		t.Errorf("empty store: %v, %v", empty, err)
	}

	_, err = NewEngine(&sliceSource{records: []store.Record{rec(1, "A", 1, 0, 0)}}).Search(ctx, []float32{1, 0}, 5, "")
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("mismatch error = %v", err)
	}

	_, err = NewEngine(&sliceSource{err: store.ErrUnavailable}).Search(ctx, []float32{1}, 5, "")
	if !store.IsUnavailable(err) {
		t.Errorf("unavailable error = %v", err)
	}
}

func TestEngineOverSQLite(t *testing.T) {
	db, err := store.Open(config.DatabaseConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "search.db"),
	}, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	ctx := context.Background()

	empty, err := NewEngine(db).Search(ctx, []float32{1, 0}, 5, "")
	if err != nil || len(empty) != 0 {
		t.Fatalf("empty store search = %v, %v", empty, err)
	}

	page := 12
	if _, err := db.InsertBatch(ctx, []store.EmbeddedChunk{
		{Text: "x axis", SourceTitle: "Book", PageNumber: &page, Embedding: []float32{1, 0}},
		{Text: "y axis", SourceTitle: "Book", Embedding: []float32{0, 1}},
		{Text: "diagonal", SourceTitle: "Other", Embedding: []float32{1, 1}},
	}); err != nil {
		t.Fatal(err)
	}

	results, err := NewEngine(db).Search(ctx, []float32{1, 0}, 2, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 || results[0].Text != "x axis" || results[1].Text != "diagonal" {
		t.Fatalf("results = %+v", results)
	}
	if results[0].PageNumber == nil || *results[0].PageNumber != 12 {
		t.Errorf("page = %v, want 12", results[0].PageNumber)
	}
	if results[1].SourceTitle != "Other" {
		t.Errorf("source = %q", results[1].SourceTitle)
	}
}
