package types

import (
	"context"

	"github.com/xhad/contractqa/internal/models"
)

// Core interfaces
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimension() int
}

// Generator turns a prompt into model output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type VectorIndex interface {
	Load(ctx context.Context, vectors [][]float32, records []models.Record) error
	Search(ctx context.Context, query []float32, k int) ([]models.Hit, error)
	Len() int
	Dimension() int
}

// Answerer produces a grounded answer from ranked passages.
type Answerer interface {
	Answer(ctx context.Context, question string, passages []models.Passage) (string, error)
}
