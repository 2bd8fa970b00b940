package llm

import (
	"context"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/internal/types"
)

type GeneratorConfig struct {
	MaxTokens   int
	Temperature float64
	// Timeout bounds each call to the model. Zero means no bound.
	Timeout time.Duration
	Retry   RetryPolicy
}

// Generator sends a prompt to a langchaingo model and returns its text.
type Generator struct {
	config GeneratorConfig
	llm    llms.Model
}

var _ types.Generator = (*Generator)(nil)

func NewGeneratorWithConfig(model llms.Model, config GeneratorConfig) *Generator {
	if config.MaxTokens == 0 {
		config.MaxTokens = 256
	}
	return &Generator{
		config: config,
		llm:    model,
	}
}

// Generate invokes the model once per attempt. Failures and timeouts are
// returned as GenerationError.
func (g *Generator) Generate(ctx context.Context, prompt string) (string, error) {
	var out string
	err := g.config.Retry.do(ctx, "generation", func(ctx context.Context) error {
		if g.config.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
			defer cancel()
		}

		var err error
		out, err = llms.GenerateFromSinglePrompt(ctx, g.llm, prompt,
			llms.WithMaxTokens(g.config.MaxTokens),
			llms.WithTemperature(g.config.Temperature))
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	})
	if err != nil {
		return "", &types.GenerationError{Op: "generate", Err: err}
	}

	logger.Debug("generated %d bytes", len(out))
	return out, nil
}
