package main

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/embedding"
	"github.com/DreamCats/medindex/internal/retrieval"
	"github.com/DreamCats/medindex/internal/store"
)

// openStore opens the chunk store or exits.
func openStore(cfg *config.Config) *store.DB {
	db, err := store.Open(cfg.Database, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.Database.Driver).Msg("failed to open chunk store")
	}
	return db
}

// newEmbedder creates the embedding service or exits.
func newEmbedder(cfg *config.Config) *embedding.Service {
	svc, err := embedding.NewService(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create embedding service")
	}
	return svc
}

// newRetriever wires embedder, engine and store for queries.
func newRetriever(cfg *config.Config, db *store.DB) *retrieval.Retriever {
	return retrieval.NewRetriever(newEmbedder(cfg), retrieval.NewEngine(db))
}

func printJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to marshal output")
	}
	fmt.Println(string(data))
}
