package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt("What is the notice period?", []string{"Notice is 30 days.", "Either party may terminate."})

	want := `Answer the question using ONLY the context below.
If the answer is not present, say exactly: Not found in document.

Context:
Notice is 30 days.

Either party may terminate.

Question:
What is the notice period?

Answer:`
	assert.Equal(t, want, prompt)
}

func TestBuildPrompt_EmptyPassages(t *testing.T) {
	prompt := BuildPrompt("Who pays taxes?", nil)

	assert.True(t, strings.HasPrefix(prompt, "Answer the question using ONLY the context below."))
	assert.Contains(t, prompt, "Context:\n\n\nQuestion:\nWho pays taxes?\n\nAnswer:")
}

func TestGroundedGenerator_Answer(t *testing.T) {
	model := &scriptedModel{reply: "  Thirty days.\n"}
	g := NewGroundedGenerator(NewGeneratorWithConfig(model, GeneratorConfig{}))

	passages := []models.Passage{
		{Record: models.Record{Text: "Notice is 30 days."}},
		{Record: models.Record{Text: "Unrelated clause."}},
	}
	answer, err := g.Answer(context.Background(), "What is the notice period?", passages)
	require.NoError(t, err)
	assert.Equal(t, "Thirty days.", answer)

	require.Len(t, model.prompts, 1)
	assert.Equal(t, BuildPrompt("What is the notice period?", []string{"Notice is 30 days.", "Unrelated clause."}), model.prompts[0])
}

func TestGroundedGenerator_EmptyPassagesInvokesModelOnce(t *testing.T) {
	model := &scriptedModel{reply: NotFoundSentinel}
	g := NewGroundedGenerator(NewGeneratorWithConfig(model, GeneratorConfig{}))

	answer, err := g.Answer(context.Background(), "Is there a non-compete?", nil)
	require.NoError(t, err)
	assert.True(t, IsNotFound(answer))
	require.Len(t, model.prompts, 1)
	assert.Contains(t, model.prompts[0], "Question:\nIs there a non-compete?")
}

func TestGroundedGenerator_FailureIsNotSentinel(t *testing.T) {
	model := &scriptedModel{err: errors.New("model not loaded")}
	g := NewGroundedGenerator(NewGeneratorWithConfig(model, GeneratorConfig{}))

	answer, err := g.Answer(context.Background(), "q", nil)
	assert.Empty(t, answer)

	var genErr *types.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestGenerator_Timeout(t *testing.T) {
	model := &scriptedModel{block: true}
	gen := NewGeneratorWithConfig(model, GeneratorConfig{Timeout: 20 * time.Millisecond})

	_, err := gen.Generate(context.Background(), "prompt")
	var genErr *types.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestGenerator_Retry(t *testing.T) {
	calls := 0
	gen := NewGeneratorWithConfig(&flakyModel{fail: 1, calls: &calls}, GeneratorConfig{
		Retry: RetryPolicy{MaxAttempts: 2, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
	})

	out, err := gen.Generate(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 2, calls)
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound("Not found in document."))
	assert.True(t, IsNotFound("  not found in document\n"))
	assert.False(t, IsNotFound("The notice period is not found in document 3 but in 4."))
	assert.False(t, IsNotFound(""))
}
