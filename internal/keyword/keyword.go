// Package keyword checks which terms appear in one source's stored chunks.
package keyword

import (
	"context"
	"fmt"
	"iter"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/DreamCats/medindex/internal/store"
)

const sampleLen = 200

// Hit is the verification result for one keyword.
type Hit struct {
	Keyword string `json:"keyword"`
	Chunks  uint64 `json:"chunks"`
	Sample  string `json:"sample,omitempty"`
}

// Report is the verification result for one source.
type Report struct {
	Source      string `json:"source"`
	TotalChunks int    `json:"total_chunks"`
	Hits        []Hit  `json:"hits"`
}

type chunkDoc struct {
	Content string `json:"content"`
}

// Verify indexes every chunk of source in memory and counts the chunks
// matching each keyword.
func Verify(ctx context.Context, records iter.Seq2[store.Record, error], source string, keywords []string) (*Report, error) {
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create bleve index: %w", err)
	}
	defer index.Close()

	texts := make(map[string]string)
	batch := index.NewBatch()
	for rec, err := range records {
		if err != nil {
			return nil, err
		}
		id := strconv.FormatInt(rec.ID, 10)
		texts[id] = rec.Text
		if err := batch.Index(id, chunkDoc{Content: rec.Text}); err != nil {
			return nil, fmt.Errorf("index chunk %s: %w", id, err)
		}
		if batch.Size() >= 500 {
			if err := index.Batch(batch); err != nil {
				return nil, fmt.Errorf("index batch: %w", err)
			}
			batch.Reset()
		}
	}
	if batch.Size() > 0 {
		if err := index.Batch(batch); err != nil {
			return nil, fmt.Errorf("index batch: %w", err)
		}
	}

	report := &Report{Source: source, TotalChunks: len(texts)}
	for _, kw := range keywords {
		q := bleve.NewMatchPhraseQuery(kw)
		q.SetField("content")
		req := bleve.NewSearchRequestOptions(q, 1, 0, false)

		res, err := index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", kw, err)
		}

		hit := Hit{Keyword: kw, Chunks: res.Total}
		if len(res.Hits) > 0 {
			hit.Sample = truncate(texts[res.Hits[0].ID], sampleLen)
		}
		report.Hits = append(report.Hits, hit)
	}
	return report, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = "en"
	indexMapping.DefaultField = "content"

	docMapping := bleve.NewDocumentMapping()
	contentField := bleve.NewTextFieldMapping()
	contentField.Store = false
	contentField.Index = true
	docMapping.AddFieldMappingsAt("content", contentField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
