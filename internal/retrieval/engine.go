// Package retrieval ranks stored chunks against query vectors and merges
// multi-query searches into per-category context.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/DreamCats/medindex/internal/store"
)

// ErrDimensionMismatch means the query and a stored vector differ in length.
var ErrDimensionMismatch = errors.New("query and stored vector dimensions differ")

// Result is one ranked chunk.
type Result struct {
	ID          int64   `json:"id"`
	Text        string  `json:"text"`
	PageNumber  *int    `json:"page_number,omitempty"`
	SourceTitle string  `json:"source_title"`
	Similarity  float64 `json:"similarity"`
}

// ChunkSource is the read side of the chunk store.
type ChunkSource interface {
	Scan(ctx context.Context, filter store.ScanFilter) iter.Seq2[store.Record, error]
}

// Engine performs exact linear-scan cosine search.
type Engine struct {
	source ChunkSource
}

// NewEngine creates a search engine over source
func NewEngine(source ChunkSource) *Engine {
	return &Engine{source: source}
}

// Search scans the store (restricted to sourceTitle when non-empty) and
// returns the topK most similar chunks. Store errors are returned as is.
func (e *Engine) Search(ctx context.Context, query []float32, topK int, sourceTitle string) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}
	return Rank(query, e.source.Scan(ctx, store.ScanFilter{Source: sourceTitle}), topK)
}

// Rank scores every record against query and keeps the topK best.
// Ties keep scan order.
func Rank(query []float32, records iter.Seq2[store.Record, error], topK int) ([]Result, error) {
	if topK <= 0 {
		return []Result{}, nil
	}

	qNorm := norm(query)
	results := make([]Result, 0, topK)
	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		if len(rec.Embedding) != len(query) {
			return nil, fmt.Errorf("%w: row %d has %d, query has %d",
				ErrDimensionMismatch, rec.ID, len(rec.Embedding), len(query))
		}
		results = append(results, Result{
			ID:          rec.ID,
			Text:        rec.Text,
			PageNumber:  rec.PageNumber,
			SourceTitle: rec.SourceTitle,
			Similarity:  cosineWithNorm(query, qNorm, rec.Embedding),
		})
	}

	sortBySimilarity(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// Cosine returns dot(a,b)/(|a||b|), or 0 when either norm is zero or the
// lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	return cosineWithNorm(a, norm(a), b)
}

func cosineWithNorm(a []float32, aNorm float64, b []float32) float64 {
	if aNorm == 0 {
		return 0
	}
	var dot, bb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		bb += y * y
	}
	if bb == 0 {
		return 0
	}
	sim := dot / (aNorm * math.Sqrt(bb))
	// Rounding can push parallel vectors a hair past 1.
	return math.Max(-1, math.Min(1, sim))
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func sortBySimilarity(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
}
