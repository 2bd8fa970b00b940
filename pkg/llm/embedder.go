package llm

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"unicode/utf8"

	"github.com/tmc/langchaingo/embeddings"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/types"
)

type EmbedderConfig struct {
	// Dimension is the expected vector size. Zero accepts whatever size the
	// first response has and then holds every later vector to it.
	Dimension int
	BatchSize int
	// MaxInputChars rejects longer texts instead of truncating them. Zero
	// means no limit.
	MaxInputChars int
	Retry         RetryPolicy
}

// Embedder maps text to L2-normalized vectors through an embedding model.
// Single texts and batches go through the same path, so a text embeds to
// the same vector either way.
type Embedder struct {
	config   EmbedderConfig
	embedder embeddings.Embedder

	mu  sync.Mutex
	dim int
}

var _ types.Embedder = (*Embedder)(nil)

func NewEmbedderWithConfig(client embeddings.EmbedderClient, config EmbedderConfig) (*Embedder, error) {
	if config.BatchSize == 0 {
		config.BatchSize = 32
	}
	if config.BatchSize < 0 || config.Dimension < 0 || config.MaxInputChars < 0 {
		return nil, &types.ConfigurationError{Field: "embedder", Message: "batch_size, dimension and max_input_chars must not be negative"}
	}

	emb, err := embeddings.NewEmbedder(client,
		embeddings.WithBatchSize(config.BatchSize),
		embeddings.WithStripNewLines(false))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}

	return &Embedder{
		config:   config,
		embedder: emb,
		dim:      config.Dimension,
	}, nil
}

// Dimension returns the vector size, or 0 before the first embedding when
// it was not configured.
func (e *Embedder) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if limit := e.config.MaxInputChars; limit > 0 {
		for i, text := range texts {
			if n := utf8.RuneCountInString(text); n > limit {
				return nil, &types.EmbeddingError{
					Op:  "embed",
					Err: fmt.Errorf("text %d has %d characters, limit is %d: %w", i, n, limit, types.ErrInputTooLong),
				}
			}
		}
	}

	var vectors [][]float32
	err := e.config.Retry.do(ctx, "embedding", func(ctx context.Context) error {
		var err error
		vectors, err = e.embedder.EmbedDocuments(ctx, texts)
		return err
	})
	if err != nil {
		return nil, &types.EmbeddingError{Op: "embed", Err: err}
	}
	if len(vectors) != len(texts) {
		return nil, &types.EmbeddingError{
			Op:  "embed",
			Err: fmt.Errorf("model returned %d vectors for %d texts", len(vectors), len(texts)),
		}
	}

	out := make([][]float32, len(vectors))
	for i, v := range vectors {
		if err := e.checkDimension(len(v)); err != nil {
			return nil, &types.EmbeddingError{Op: "embed", Err: fmt.Errorf("text %d: %w", i, err)}
		}
		n, err := normalize(v)
		if err != nil {
			return nil, &types.EmbeddingError{Op: "embed", Err: fmt.Errorf("text %d: %w", i, err)}
		}
		out[i] = n
	}

	logger.Debug("embedded %d texts", len(texts))
	return out, nil
}

func (e *Embedder) checkDimension(n int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if n == 0 {
		return errors.New("empty vector")
	}
	if e.dim == 0 {
		e.dim = n
		return nil
	}
	if n != e.dim {
		return fmt.Errorf("vector has dimension %d, expected %d", n, e.dim)
	}
	return nil
}

// normalize returns a unit-length copy of v.
func normalize(v []float32) ([]float32, error) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 || math.IsNaN(norm) || math.IsInf(norm, 0) {
		return nil, errors.New("vector cannot be normalized")
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
