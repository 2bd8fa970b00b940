package llm

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"

	"github.com/tmc/langchaingo/llms"
)

// hashClient embeds texts deterministically and records each request.
type hashClient struct {
	mu       sync.Mutex
	dim      int
	calls    [][]string
	failures int
	override func(texts []string) [][]float32
}

func (c *hashClient) CreateEmbedding(_ context.Context, texts []string) ([][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.calls = append(c.calls, append([]string(nil), texts...))
	if c.failures > 0 {
		c.failures--
		return nil, errors.New("connection refused")
	}
	if c.override != nil {
		return c.override(texts), nil
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		h := fnv.New64a()
		h.Write([]byte(text))
		seed := h.Sum64()
		v := make([]float32, c.dim)
		for j := range v {
			seed = seed*6364136223846793005 + 1442695040888963407
			v[j] = float32(int64(seed>>33)%1000) + 1
		}
		out[i] = v
	}
	return out, nil
}

// scriptedModel returns canned completions and records the prompts it saw.
type scriptedModel struct {
	mu      sync.Mutex
	prompts []string
	reply   string
	err     error
	block   bool
}

func (m *scriptedModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	m.mu.Lock()
	for _, msg := range messages {
		for _, part := range msg.Parts {
			if text, ok := part.(llms.TextContent); ok {
				m.prompts = append(m.prompts, text.Text)
			}
		}
	}
	m.mu.Unlock()

	if m.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.err != nil {
		return nil, m.err
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: m.reply}}}, nil
}

func (m *scriptedModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

// flakyModel fails its first calls, then answers "ok".
type flakyModel struct {
	fail  int
	calls *int
}

func (m *flakyModel) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	*m.calls++
	if *m.calls <= m.fail {
		return nil, errors.New("503 service unavailable")
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "ok"}}}, nil
}

func (m *flakyModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}
