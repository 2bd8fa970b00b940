package main

import (
	"context"
	"fmt"

	"github.com/xhad/contractqa/internal/types"
	"github.com/xhad/contractqa/pkg/config"
	"github.com/xhad/contractqa/pkg/index"
	"github.com/xhad/contractqa/pkg/llm"
	"github.com/xhad/contractqa/pkg/processor"
	"github.com/xhad/contractqa/pkg/rag"
	"github.com/xhad/contractqa/pkg/store"
)

func retryPolicy(cfg config.RetryConfig) llm.RetryPolicy {
	return llm.RetryPolicy{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay(),
		MaxDelay:    cfg.MaxDelay(),
	}
}

// newEmbedder connects the embedding model. dim overrides the configured
// dimension when the index already fixes it.
func newEmbedder(cfg *config.Config, dim int) (*llm.Embedder, error) {
	client, err := llm.NewEmbeddingClient(llm.ProviderConfig{
		Provider: cfg.Embedder.Provider,
		BaseURL:  cfg.Embedder.BaseURL,
		Model:    cfg.Embedder.Model,
		APIKey:   cfg.Embedder.APIKey,
	})
	if err != nil {
		return nil, err
	}

	if dim == 0 {
		dim = cfg.Embedder.Dimension
	}
	return llm.NewEmbedderWithConfig(client, llm.EmbedderConfig{
		Dimension:     dim,
		BatchSize:     cfg.Embedder.BatchSize,
		MaxInputChars: cfg.Embedder.MaxInputChars,
		Retry:         retryPolicy(cfg.Retry),
	})
}

func newAnswerer(cfg *config.Config) (*llm.GroundedGenerator, error) {
	model, err := llm.NewModel(llm.ProviderConfig{
		Provider: cfg.LLM.Provider,
		BaseURL:  cfg.LLM.BaseURL,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
	})
	if err != nil {
		return nil, err
	}

	generator := llm.NewGeneratorWithConfig(model, llm.GeneratorConfig{
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout(),
		Retry:       retryPolicy(cfg.Retry),
	})
	return llm.NewGroundedGenerator(generator), nil
}

func newProcessor(cfg *config.Config) (*processor.Processor, error) {
	return processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    cfg.Processor.ChunkSize,
		ChunkOverlap: cfg.Processor.ChunkOverlap,
		Source:       cfg.Corpus.Source,
	})
}

func openPGIndex(ctx context.Context, cfg *config.Config, dim int) (*store.PGIndex, error) {
	idx, err := store.NewWithConfig(ctx, store.PGIndexConfig{
		ConnString: cfg.Database.URL,
		TableName:  cfg.Database.TableName,
		Dimension:  dim,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vector store: %w", err)
	}
	return idx, nil
}

// openIndex loads the index the configured backend serves from. The
// returned func releases it.
func openIndex(ctx context.Context, cfg *config.Config) (types.VectorIndex, func(), error) {
	switch cfg.Index.Backend {
	case "pgvector":
		idx, err := openPGIndex(ctx, cfg, 0)
		if err != nil {
			return nil, nil, err
		}
		return idx, idx.Close, nil
	default:
		idx, err := index.Open(ctx, cfg.Index.VectorPath(), cfg.Index.MetadataPath())
		if err != nil {
			return nil, nil, fmt.Errorf("loading index (run `contractqa ingest` first?): %w", err)
		}
		return idx, func() {}, nil
	}
}

// newPipeline opens the index and connects both models.
func newPipeline(ctx context.Context, cfg *config.Config) (*rag.Pipeline, func(), error) {
	idx, release, err := openIndex(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := newEmbedder(cfg, idx.Dimension())
	if err != nil {
		release()
		return nil, nil, err
	}

	answerer, err := newAnswerer(cfg)
	if err != nil {
		release()
		return nil, nil, err
	}

	pipeline := rag.NewPipeline(rag.NewRetriever(embedder, idx), answerer, cfg.Server.DefaultTopK)
	return pipeline, release, nil
}
