package retrieval

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/embedding"
	"github.com/DreamCats/medindex/internal/store"
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Query is one free-text search.
type Query struct {
	Text   string
	Source string // exact source title, empty for all
	TopK   int
}

// Outcome separates an empty answer from a failed one. When Degraded is
// set, Results is empty and the caller should proceed without context.
type Outcome struct {
	Results  []Result
	Degraded error
}

// Retriever embeds query text and searches the engine.
type Retriever struct {
	embedder Embedder
	engine   *Engine
	logger   zerolog.Logger
}

// NewRetriever creates a retriever
func NewRetriever(embedder Embedder, engine *Engine) *Retriever {
	return &Retriever{
		embedder: embedder,
		engine:   engine,
		logger:   log.With().Str("component", "retrieval").Logger(),
	}
}

// Search runs q. An unreachable store or a failed query embedding yields a
// degraded Outcome with a nil error; corrupt data is returned as an error.
func (r *Retriever) Search(ctx context.Context, q Query) (Outcome, error) {
	if q.TopK <= 0 {
		return Outcome{Results: []Result{}}, nil
	}

	vec, err := r.embedder.Embed(ctx, q.Text)
	if err != nil {
		var failure *embedding.Failure
		if errors.As(err, &failure) {
			r.logger.Warn().Err(err).Str("source", q.Source).Msg("query embedding failed, continuing without context")
			return Outcome{Results: []Result{}, Degraded: err}, nil
		}
		return Outcome{}, err
	}

	results, err := r.engine.Search(ctx, vec, q.TopK, q.Source)
	if err != nil {
		if store.IsUnavailable(err) {
			r.logger.Warn().Err(err).Str("source", q.Source).Msg("chunk store unavailable, continuing without context")
			return Outcome{Results: []Result{}, Degraded: err}, nil
		}
		return Outcome{}, err
	}

	r.logger.Debug().
		Str("source", q.Source).
		Int("top_k", q.TopK).
		Int("results", len(results)).
		Msg("search complete")
	return Outcome{Results: results}, nil
}
