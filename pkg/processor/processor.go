package processor

import (
	"strings"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

type ProcessorConfig struct {
	ChunkSize    int
	ChunkOverlap int
	// Source tags every record, e.g. "CUAD".
	Source string
}

type Processor struct {
	config ProcessorConfig
}

func NewWithConfig(config ProcessorConfig) (*Processor, error) {
	if err := validate(config.ChunkSize, config.ChunkOverlap); err != nil {
		return nil, err
	}
	return &Processor{config: config}, nil
}

// Process turns a corpus into retrieval records ordered by document,
// paragraph and chunk. Titles are copied as given.
func (p *Processor) Process(docs []models.Document) ([]models.Record, error) {
	if err := validate(p.config.ChunkSize, p.config.ChunkOverlap); err != nil {
		return nil, err
	}

	var records []models.Record
	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = p.config.Source
		}

		for _, chunk := range p.chunks(doc) {
			records = append(records, models.Record{
				Source:        source,
				ContractID:    chunk.DocumentID,
				ParagraphID:   chunk.ParagraphID,
				ChunkID:       chunk.ChunkID,
				ContractTitle: doc.Title,
				Text:          chunk.Text,
			})
		}
	}

	logger.Debug("processed %d documents into %d chunks", len(docs), len(records))
	return records, nil
}

// Chunks splits every paragraph of doc. Paragraph text is trimmed first and
// blank paragraphs keep their index but produce nothing.
func (p *Processor) Chunks(doc models.Document) ([]models.Chunk, error) {
	if err := validate(p.config.ChunkSize, p.config.ChunkOverlap); err != nil {
		return nil, err
	}
	return p.chunks(doc), nil
}

func (p *Processor) chunks(doc models.Document) []models.Chunk {
	var chunks []models.Chunk
	step := p.config.ChunkSize - p.config.ChunkOverlap

	for _, para := range doc.Paragraphs {
		text := strings.TrimSpace(para.Text)
		if text == "" {
			continue
		}
		for i, w := range windows([]rune(text), p.config.ChunkSize, step) {
			chunks = append(chunks, models.Chunk{
				DocumentID:  doc.ID,
				ParagraphID: para.Index,
				ChunkID:     i,
				Text:        w,
			})
		}
	}
	return chunks
}

// Chunk splits text into windows of at most chunkSize characters, each
// starting chunkSize-overlap characters after the previous one.
func Chunk(text string, chunkSize, overlap int) ([]string, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}
	return windows([]rune(text), chunkSize, chunkSize-overlap), nil
}

func windows(runes []rune, size, step int) []string {
	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
	}
	return chunks
}

func validate(chunkSize, overlap int) error {
	if chunkSize < 1 {
		return &types.ConfigurationError{
			Field:   "processor.chunk_size",
			Message: "chunk_size must be positive",
		}
	}
	if overlap < 0 || overlap >= chunkSize {
		return &types.ConfigurationError{
			Field:   "processor.chunk_overlap",
			Message: "chunk_overlap must be non-negative and less than chunk_size",
		}
	}
	return nil
}
