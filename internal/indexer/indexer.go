package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/DreamCats/medindex/internal/chunker"
	"github.com/DreamCats/medindex/internal/config"
	"github.com/DreamCats/medindex/internal/extract"
	"github.com/DreamCats/medindex/internal/store"
)

// Embedder embeds texts in order; one failure fails the call.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// ChunkWriter persists embedded chunks atomically per call.
type ChunkWriter interface {
	InsertBatch(ctx context.Context, chunks []store.EmbeddedChunk) (int, error)
}

// Options controls an Indexer.
type Options struct {
	EmbedBatchSize  int
	InsertBatchSize int

	// DryRun chunks files without embedding or writing.
	DryRun bool

	Progress ProgressReporter
}

// Indexer runs extract, chunk, embed, insert for book files.
type Indexer struct {
	extractor *extract.Extractor
	chunker   *chunker.Chunker
	embedder  Embedder
	writer    ChunkWriter
	opts      Options
}

// FileReport summarizes one ingested file.
type FileReport struct {
	Path     string        `json:"path"`
	Title    string        `json:"title"`
	Pages    int           `json:"pages,omitempty"`
	Chunks   int           `json:"chunks"`
	Inserted int           `json:"inserted"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// Report summarizes an ingestion run.
type Report struct {
	RunID    string       `json:"run_id"`
	Files    []FileReport `json:"files"`
	Chunks   int          `json:"chunks"`
	Inserted int          `json:"inserted"`
	Failed   int          `json:"failed"`
}

// NewIndexer creates a new indexer. embedder and writer may be nil for dry runs.
func NewIndexer(cfg *config.Config, embedder Embedder, writer ChunkWriter, opts Options) (*Indexer, error) {
	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, err
	}
	if !opts.DryRun && (embedder == nil || writer == nil) {
		return nil, fmt.Errorf("embedder and writer are required unless dry-run")
	}

	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = cfg.Ingest.EmbedBatchSize
	}
	if opts.InsertBatchSize <= 0 {
		opts.InsertBatchSize = cfg.Ingest.InsertBatchSize
	}
	if opts.EmbedBatchSize <= 0 {
		opts.EmbedBatchSize = 50
	}
	if opts.InsertBatchSize <= 0 {
		opts.InsertBatchSize = 50
	}

	return &Indexer{
		extractor: &extract.Extractor{PageDelay: cfg.Ingest.PageDelay},
		chunker:   ch,
		embedder:  embedder,
		writer:    writer,
		opts:      opts,
	}, nil
}

// IngestAll ingests paths one after another. A file that fails is logged
// and skipped; title applies only when a single path is given.
func (idx *Indexer) IngestAll(ctx context.Context, paths []string, title string) *Report {
	report := &Report{RunID: uuid.NewString()}
	logger := log.With().Str("run_id", report.RunID).Logger()

	if len(paths) != 1 {
		title = ""
	}

	logger.Info().Int("files", len(paths)).Bool("dry_run", idx.opts.DryRun).Msg("ingestion started")
	for i, path := range paths {
		if ctx.Err() != nil {
			break
		}
		logger.Info().Str("file", path).Int("n", i+1).Int("of", len(paths)).Msg("processing file")

		fr, err := idx.ingestFile(ctx, logger, path, title)
		if err != nil {
			fr.Error = err.Error()
			report.Failed++
			logger.Error().Err(err).Str("file", path).Int("inserted", fr.Inserted).Msg("file failed")
		}
		report.Files = append(report.Files, fr)
		report.Chunks += fr.Chunks
		report.Inserted += fr.Inserted
	}

	logger.Info().
		Int("chunks", report.Chunks).
		Int("inserted", report.Inserted).
		Int("failed", report.Failed).
		Msg("ingestion finished")
	return report
}

// IngestFile ingests one file. On error the report counts rows committed by
// earlier batches, which stay in the store.
func (idx *Indexer) IngestFile(ctx context.Context, path, title string) (FileReport, error) {
	logger := log.With().Str("run_id", uuid.NewString()).Logger()
	return idx.ingestFile(ctx, logger, path, title)
}

func (idx *Indexer) ingestFile(ctx context.Context, logger zerolog.Logger, path, title string) (FileReport, error) {
	start := time.Now()
	fr := FileReport{Path: path}

	doc, err := idx.extractor.Extract(ctx, path, title)
	if err != nil {
		return fr, fmt.Errorf("extract: %w", err)
	}
	fr.Title = doc.Title
	fr.Pages = doc.Pages

	chunks := idx.chunker.Split(doc.Text)
	fr.Chunks = len(chunks)
	logger.Info().
		Str("title", doc.Title).
		Int("chars", len(doc.Text)).
		Int("chunks", len(chunks)).
		Int("size", idx.chunker.Size()).
		Int("overlap", idx.chunker.Overlap()).
		Msg("chunked document")

	if idx.opts.DryRun || len(chunks) == 0 {
		fr.Duration = time.Since(start)
		return fr, nil
	}

	if p := idx.opts.Progress; p != nil {
		p.Start(len(chunks), doc.Title)
		defer p.Finish()
	}

	batchSize := idx.opts.EmbedBatchSize
	totalBatches := (len(chunks) + batchSize - 1) / batchSize
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))
		batch := chunks[i:end]

		texts := make([]string, len(batch))
		for j, c := range batch {
			texts[j] = c.Text
		}

		logger.Debug().Int("batch", i/batchSize+1).Int("of", totalBatches).Msg("embedding batch")
		vectors, err := idx.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			fr.Duration = time.Since(start)
			return fr, fmt.Errorf("embed chunks %d-%d: %w", i, end, err)
		}

		rows := make([]store.EmbeddedChunk, len(batch))
		for j, c := range batch {
			rows[j] = store.EmbeddedChunk{
				Text:          c.Text,
				SourceTitle:   doc.Title,
				SourceFile:    doc.SourceFile,
				PageNumber:    c.PageNumber,
				SequenceIndex: i + j,
				Embedding:     vectors[j],
			}
		}

		if err := idx.insert(ctx, rows, &fr); err != nil {
			fr.Duration = time.Since(start)
			return fr, err
		}
		logger.Debug().Int("inserted", fr.Inserted).Int("total", len(chunks)).Msg("batch committed")

		if p := idx.opts.Progress; p != nil {
			p.Add(len(batch))
		}
	}

	fr.Duration = time.Since(start)
	logger.Info().Str("title", doc.Title).Int("inserted", fr.Inserted).Dur("took", fr.Duration).Msg("file ingested")
	return fr, nil
}

func (idx *Indexer) insert(ctx context.Context, rows []store.EmbeddedChunk, fr *FileReport) error {
	size := idx.opts.InsertBatchSize
	for i := 0; i < len(rows); i += size {
		end := min(i+size, len(rows))
		n, err := idx.writer.InsertBatch(ctx, rows[i:end])
		if err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		fr.Inserted += n
	}
	return nil
}
