package main

import (
	"bytes"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/contractqa/internal/models"
)

func TestRootCommands(t *testing.T) {
	root := NewRootCmd()

	for _, name := range []string{"ingest", "ask", "serve"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	ask, _, err := root.Find([]string{"ask"})
	require.NoError(t, err)
	assert.NotNil(t, ask.Flags().Lookup("top-k"))
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestPrintAnswer(t *testing.T) {
	color.NoColor = true

	answer := &models.Answer{
		Text: "Either party may terminate upon 30 days notice.",
		Sources: []models.Source{
			{ContractID: "12", ParagraphID: 3, Score: 0.8123},
			{ContractID: "7", ParagraphID: 0, Score: 0.5},
		},
		Passages: []models.Passage{
			{Record: models.Record{ContractTitle: "Supply Agreement", Text: "Either party may terminate..."}},
			{Record: models.Record{ContractTitle: "License", Text: "Notices shall be in writing."}},
		},
	}

	var buf bytes.Buffer
	printAnswer(&buf, answer, false)
	out := buf.String()
	assert.Contains(t, out, "Answer: Either party may terminate upon 30 days notice.")
	assert.Contains(t, out, "- Contract 12 | Paragraph 3 | Score: 0.812\n")
	assert.Contains(t, out, "- Contract 7 | Paragraph 0 | Score: 0.500\n")
	assert.NotContains(t, out, "Supply Agreement")

	buf.Reset()
	printAnswer(&buf, answer, true)
	assert.Contains(t, buf.String(), "Supply Agreement")
	assert.Contains(t, buf.String(), "Notices shall be in writing.")
}
