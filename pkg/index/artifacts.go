package index

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

// WriteArtifacts persists vectors as an .npy array and records as a JSON
// array. Row i of one file describes row i of the other.
func WriteArtifacts(vecPath, metaPath string, vectors [][]float32, records []models.Record) error {
	if len(vectors) != len(records) {
		return &types.IndexSizeMismatchError{Vectors: len(vectors), Records: len(records)}
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}

	// Both files are complete before either replaces its predecessor.
	vecTmp, err := writeTemp(vecPath, func(f *os.File) error {
		return writeNpy(f, vectors, dim)
	})
	if err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	defer os.Remove(vecTmp)

	metaTmp, err := writeTemp(metaPath, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	})
	if err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}
	defer os.Remove(metaTmp)

	if err := os.Rename(vecTmp, vecPath); err != nil {
		return fmt.Errorf("writing vectors: %w", err)
	}
	if err := os.Rename(metaTmp, metaPath); err != nil {
		return fmt.Errorf("writing metadata: %w", err)
	}

	logger.Info("saved %d vectors to %s", len(vectors), filepath.Dir(vecPath))
	return nil
}

// ReadArtifacts reads files written by WriteArtifacts. It does not compare
// their lengths.
func ReadArtifacts(vecPath, metaPath string) ([][]float32, int, []models.Record, error) {
	vf, err := os.Open(vecPath)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("opening vectors: %w", err)
	}
	defer vf.Close()

	info, err := vf.Stat()
	if err != nil {
		return nil, 0, nil, fmt.Errorf("opening vectors: %w", err)
	}

	vectors, dim, err := readNpy(vf, info.Size())
	if err != nil {
		return nil, 0, nil, fmt.Errorf("reading %s: %w", vecPath, err)
	}

	data, err := os.ReadFile(metaPath)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("opening metadata: %w", err)
	}
	var records []models.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, nil, fmt.Errorf("reading %s: %w", metaPath, err)
	}

	return vectors, dim, records, nil
}

// Open reads the artifacts into a new Flat index.
func Open(ctx context.Context, vecPath, metaPath string) (*Flat, error) {
	vectors, dim, records, err := ReadArtifacts(vecPath, metaPath)
	if err != nil {
		return nil, err
	}

	idx, err := Build(dim)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", vecPath, err)
	}
	if err := idx.Load(ctx, vectors, records); err != nil {
		return nil, err
	}

	logger.Info("loaded %d vectors of dimension %d", idx.Len(), dim)
	return idx, nil
}

// writeTemp fills a temporary file next to path and returns its name.
func writeTemp(path string, fill func(f *os.File) error) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", err
	}

	err = tmp.Chmod(0644)
	if err == nil {
		err = fill(tmp)
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
