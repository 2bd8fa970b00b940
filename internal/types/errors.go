package types

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexUnusable is returned by an index whose load failed.
	ErrIndexUnusable = errors.New("index unusable after failed load")

	// ErrInputTooLong is wrapped by EmbeddingError when a text exceeds the
	// configured input limit.
	ErrInputTooLong = errors.New("input exceeds embedding limit")
)

// IngestionError reports a missing or malformed corpus.
type IngestionError struct {
	Path string
	Err  error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion %s: %v", e.Path, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// ConfigurationError reports an invalid setting.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IndexSizeMismatchError reports vector and metadata arrays of different length.
type IndexSizeMismatchError struct {
	Vectors int
	Records int
}

func (e *IndexSizeMismatchError) Error() string {
	return fmt.Sprintf("index size mismatch: %d vectors, %d metadata records", e.Vectors, e.Records)
}

// EmbeddingError reports a failed call to the embedding model.
type EmbeddingError struct {
	Op  string
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GenerationError reports a failed or timed out call to the generation model.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation %s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// IsModelFailure reports whether err comes from an external model call.
func IsModelFailure(err error) bool {
	var embErr *EmbeddingError
	var genErr *GenerationError
	return errors.As(err, &embErr) || errors.As(err, &genErr)
}
