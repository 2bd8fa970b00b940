package types

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorsUnwrap(t *testing.T) {
	embErr := fmt.Errorf("retrieve: %w", &EmbeddingError{Op: "query", Err: context.DeadlineExceeded})
	assert.True(t, errors.Is(embErr, context.DeadlineExceeded))
	assert.True(t, IsModelFailure(embErr))

	genErr := &GenerationError{Op: "answer", Err: errors.New("connection refused")}
	assert.True(t, IsModelFailure(genErr))
	assert.Contains(t, genErr.Error(), "connection refused")

	assert.False(t, IsModelFailure(&IndexSizeMismatchError{Vectors: 2, Records: 1}))
	assert.False(t, IsModelFailure(nil))
}

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"mismatch", &IndexSizeMismatchError{Vectors: 3, Records: 2}, "3 vectors, 2 metadata records"},
		{"configuration", &ConfigurationError{Field: "chunk_overlap", Message: "must be less than chunk_size"}, "chunk_overlap: must be less than chunk_size"},
		{"ingestion", &IngestionError{Path: "cuad.json", Err: errors.New("not found")}, "ingestion cuad.json: not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Contains(t, tt.err.Error(), tt.want)
		})
	}
}

func TestConfigurationErrorAs(t *testing.T) {
	err := fmt.Errorf("loading config: %w", &ConfigurationError{Field: "processor.chunk_size", Message: "chunk_size must be positive"})

	var cfgErr *ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "processor.chunk_size", cfgErr.Field)
	assert.False(t, IsModelFailure(err))
}
