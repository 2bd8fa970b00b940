package rag

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

// DefaultTopK is the number of passages retrieved when none is requested.
const DefaultTopK = 4

var ErrEmptyQuestion = errors.New("question is empty")

// Pipeline answers questions against a loaded index. It is built once at
// startup and shared by every request.
type Pipeline struct {
	retriever   *Retriever
	answerer    types.Answerer
	defaultTopK int
}

func NewPipeline(retriever *Retriever, answerer types.Answerer, defaultTopK int) *Pipeline {
	if defaultTopK < 1 {
		defaultTopK = DefaultTopK
	}
	return &Pipeline{
		retriever:   retriever,
		answerer:    answerer,
		defaultTopK: defaultTopK,
	}
}

func (p *Pipeline) DefaultTopK() int {
	return p.defaultTopK
}

// Ask retrieves topK passages and answers question from them. A topK of
// zero selects the default.
func (p *Pipeline) Ask(ctx context.Context, question string, topK int) (*models.Answer, error) {
	if strings.TrimSpace(question) == "" {
		return nil, ErrEmptyQuestion
	}
	if topK < 0 {
		return nil, fmt.Errorf("invalid top_k %d: must not be negative", topK)
	}
	if topK == 0 {
		topK = p.defaultTopK
	}

	passages, err := p.retriever.Retrieve(ctx, question, topK)
	if err != nil {
		return nil, err
	}

	text, err := p.answerer.Answer(ctx, question, passages)
	if err != nil {
		return nil, fmt.Errorf("answering question: %w", err)
	}

	sources := make([]models.Source, len(passages))
	for i, passage := range passages {
		sources[i] = models.Source{
			ContractID:  strconv.Itoa(passage.ContractID),
			ParagraphID: passage.ParagraphID,
			Score:       passage.DisplayScore,
		}
	}

	return &models.Answer{
		Text:     text,
		Sources:  sources,
		Passages: passages,
	}, nil
}
