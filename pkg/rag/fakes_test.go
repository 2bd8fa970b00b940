package rag

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/xhad/contractqa/internal/models"
)

// keywordEmbedder maps text onto fixed axes by keyword, so similarity is
// predictable.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

var axes = []string{"terminat", "payment", "law", "confidential"}

func (e *keywordEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (e *keywordEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	e.mu.Unlock()
	if e.err != nil {
		return nil, e.err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(axes)+1)
		v[len(axes)] = 0.1
		lower := strings.ToLower(text)
		for j, axis := range axes {
			if strings.Contains(lower, axis) {
				v[j] = 1
			}
		}
		var sum float32
		for _, x := range v {
			sum += x * x
		}
		n := float32(1)
		if sum > 0 {
			n = sqrt32(sum)
		}
		for j := range v {
			v[j] /= n
		}
		out[i] = v
	}
	return out, nil
}

func (e *keywordEmbedder) Dimension() int { return len(axes) + 1 }

func sqrt32(x float32) float32 {
	z := x
	for i := 0; i < 30; i++ {
		z = (z + x/z) / 2
	}
	return z
}

// echoAnswerer returns the text of the best passage.
type echoAnswerer struct {
	calls    int
	question string
	seen     []models.Passage
	err      error
}

func (a *echoAnswerer) Answer(_ context.Context, question string, passages []models.Passage) (string, error) {
	a.calls++
	a.question = question
	a.seen = passages
	if a.err != nil {
		return "", a.err
	}
	if len(passages) == 0 {
		return "Not found in document.", nil
	}
	return passages[0].Text, nil
}

var errUnreachable = errors.New("dial tcp 127.0.0.1:11434: connection refused")
