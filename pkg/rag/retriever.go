// Package rag ties the embedder, the vector index and the grounded
// generator into retrieval, ingestion and question answering.
package rag

import (
	"context"
	"fmt"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

// Retriever finds the passages most similar to a query. It only reads the
// index.
type Retriever struct {
	embedder types.Embedder
	index    types.VectorIndex
}

func NewRetriever(embedder types.Embedder, index types.VectorIndex) *Retriever {
	return &Retriever{embedder: embedder, index: index}
}

// Retrieve embeds query once and returns up to k passages, best first.
func (r *Retriever) Retrieve(ctx context.Context, query string, k int) ([]models.Passage, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	hits, err := r.index.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	passages := make([]models.Passage, len(hits))
	for i, hit := range hits {
		score := float64(hit.Score)
		passages[i] = models.Passage{
			Record:       hit.Record,
			Score:        score,
			DisplayScore: models.RoundScore(score),
		}
	}

	logger.Debug("retrieved %d passages for %q", len(passages), query)
	return passages, nil
}
