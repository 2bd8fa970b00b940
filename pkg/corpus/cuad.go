// Package corpus reads contract corpora into documents.
package corpus

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

type cuadFile struct {
	Data []cuadContract `json:"data"`
}

type cuadContract struct {
	Title      *string         `json:"title"`
	Paragraphs []cuadParagraph `json:"paragraphs"`
}

type cuadParagraph struct {
	Context string `json:"context"`
}

// LoadCUAD reads a CUAD (SQuAD layout) JSON file. Contract ids are positions
// in the data array; paragraph indexes are positions within each contract.
// A contract without a title gets "Contract-<id>".
func LoadCUAD(path, source string) ([]models.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.IngestionError{Path: path, Err: err}
	}

	var file cuadFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &types.IngestionError{Path: path, Err: fmt.Errorf("malformed corpus: %w", err)}
	}

	docs := make([]models.Document, 0, len(file.Data))
	for id, contract := range file.Data {
		title := fmt.Sprintf("Contract-%d", id)
		if contract.Title != nil {
			title = *contract.Title
		}

		paragraphs := make([]models.Paragraph, len(contract.Paragraphs))
		for i, p := range contract.Paragraphs {
			paragraphs[i] = models.Paragraph{Index: i, Text: p.Context}
		}

		docs = append(docs, models.Document{
			ID:         id,
			Title:      title,
			Source:     source,
			Paragraphs: paragraphs,
		})
	}

	logger.Info("loaded %d contracts from %s", len(docs), path)
	return docs, nil
}
