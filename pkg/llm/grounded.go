package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/internal/types"
)

// NotFoundSentinel is the answer the model is told to give when the
// context does not contain one.
const NotFoundSentinel = "Not found in document."

const promptTemplate = `Answer the question using ONLY the context below.
If the answer is not present, say exactly: ` + NotFoundSentinel + `

Context:
{context}

Question:
{question}

Answer:`

// GroundedGenerator answers questions from retrieved passages only.
type GroundedGenerator struct {
	generator types.Generator
}

var _ types.Answerer = (*GroundedGenerator)(nil)

func NewGroundedGenerator(generator types.Generator) *GroundedGenerator {
	return &GroundedGenerator{generator: generator}
}

// BuildPrompt joins the passages in rank order, separated by blank lines,
// into the grounding prompt.
func BuildPrompt(question string, passages []string) string {
	r := strings.NewReplacer(
		"{context}", strings.Join(passages, "\n\n"),
		"{question}", question,
	)
	return r.Replace(promptTemplate)
}

// Answer calls the model once with a prompt built from question and
// passages. The model sees nothing else.
func (g *GroundedGenerator) Answer(ctx context.Context, question string, passages []models.Passage) (string, error) {
	texts := make([]string, len(passages))
	for i, p := range passages {
		texts[i] = p.Text
	}

	out, err := g.generator.Generate(ctx, BuildPrompt(question, texts))
	if err != nil {
		var genErr *types.GenerationError
		if errors.As(err, &genErr) {
			return "", err
		}
		return "", &types.GenerationError{Op: "answer", Err: err}
	}
	return strings.TrimSpace(out), nil
}

// IsNotFound reports whether answer is the sentinel, ignoring case,
// surrounding whitespace and the final period. Models are only asked to use
// it, so a false result does not prove the answer is grounded.
func IsNotFound(answer string) bool {
	a := strings.TrimSuffix(strings.TrimSpace(answer), ".")
	return strings.EqualFold(a, strings.TrimSuffix(NotFoundSentinel, "."))
}
