package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
	"github.com/xhad/contractqa/pkg/index"
	"github.com/xhad/contractqa/pkg/processor"
)

var ErrEmptyCorpus = errors.New("corpus produced no chunks")

type IngestOptions struct {
	// Corpus names where Documents came from, for error reports.
	Corpus    string
	Documents []models.Document
	Processor *processor.Processor
	Embedder  types.Embedder
	// BatchSize is the number of chunks per progress step.
	BatchSize int
	// VectorPath and MetadataPath receive the artifacts when both are set.
	VectorPath   string
	MetadataPath string
	OnProgress   func(done, total int)
}

type IngestResult struct {
	Vectors [][]float32
	Records []models.Record
}

// Ingest chunks and embeds a corpus and writes the index artifacts. Nothing
// is written unless every chunk was embedded.
func Ingest(ctx context.Context, opts IngestOptions) (*IngestResult, error) {
	records, err := opts.Processor.Process(opts.Documents)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, &types.IngestionError{Path: opts.Corpus, Err: ErrEmptyCorpus}
	}

	batchSize := opts.BatchSize
	if batchSize < 1 {
		batchSize = 32
	}

	vectors := make([][]float32, 0, len(records))
	for start := 0; start < len(records); start += batchSize {
		end := min(start+batchSize, len(records))

		texts := make([]string, end-start)
		for i := range texts {
			texts[i] = records[start+i].Text
		}

		batch, err := opts.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("embedding chunks %d-%d: %w", start, end-1, err)
		}
		vectors = append(vectors, batch...)

		if opts.OnProgress != nil {
			opts.OnProgress(end, len(records))
		}
	}

	if opts.VectorPath != "" && opts.MetadataPath != "" {
		if err := index.WriteArtifacts(opts.VectorPath, opts.MetadataPath, vectors, records); err != nil {
			return nil, err
		}
	}

	logger.Info("ingested %d documents into %d chunks", len(opts.Documents), len(records))
	return &IngestResult{Vectors: vectors, Records: records}, nil
}
