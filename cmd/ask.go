package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/pkg/llm"
	"github.com/xhad/contractqa/pkg/rag"
)

func NewAskCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the indexed contracts",
		Long: `Answers one question, or reads questions from stdin until "exit" when
none is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: makeAskRunner(a),
	}

	cmd.Flags().IntP("top-k", "k", 0, "Number of passages to retrieve (default from config)")
	cmd.Flags().Bool("show-passages", false, "Print the retrieved passages")
	return cmd
}

func makeAskRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		topK, _ := cmd.Flags().GetInt("top-k")
		showPassages, _ := cmd.Flags().GetBool("show-passages")
		if topK < 0 || topK > a.config.Server.MaxTopK {
			return fmt.Errorf("top-k must be between 1 and %d", a.config.Server.MaxTopK)
		}

		pipeline, release, err := newPipeline(cmd.Context(), a.config)
		if err != nil {
			return err
		}
		defer release()

		if len(args) == 1 {
			return askOnce(cmd, pipeline, args[0], topK, showPassages)
		}
		return askLoop(cmd, pipeline, cmd.InOrStdin(), topK, showPassages)
	}
}

func askOnce(cmd *cobra.Command, pipeline *rag.Pipeline, question string, topK int, showPassages bool) error {
	spinner := getSpinner("Searching contracts...")
	answer, err := pipeline.Ask(cmd.Context(), question, topK)
	spinner.Finish()
	fmt.Print("\r")
	if err != nil {
		return err
	}

	printAnswer(cmd.OutOrStdout(), answer, showPassages)
	return nil
}

// askLoop keeps going after per-question failures.
func askLoop(cmd *cobra.Command, pipeline *rag.Pipeline, in io.Reader, topK int, showPassages bool) error {
	color.Cyan("\nAsk about the contracts (type 'exit' to quit)")

	scanner := bufio.NewScanner(in)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		question := strings.TrimSpace(scanner.Text())
		if strings.ToLower(question) == "exit" {
			break
		}
		if question == "" {
			continue
		}

		if err := askOnce(cmd, pipeline, question, topK, showPassages); err != nil {
			color.Red("Error: %v\n", err)
		}
	}

	return scanner.Err()
}

func printAnswer(w io.Writer, answer *models.Answer, showPassages bool) {
	assistant := color.New(color.FgCyan)
	if llm.IsNotFound(answer.Text) {
		assistant = color.New(color.FgYellow)
	}

	fmt.Fprintln(w)
	assistant.Fprintf(w, "Answer: %s\n", answer.Text)

	fmt.Fprintln(w, "\nSources:")
	for i, src := range answer.Sources {
		fmt.Fprintf(w, "- Contract %s | Paragraph %d | Score: %.3f\n", src.ContractID, src.ParagraphID, src.Score)
		if showPassages && i < len(answer.Passages) {
			p := answer.Passages[i]
			fmt.Fprintf(w, "  %s\n  %s\n", color.BlueString(p.ContractTitle), p.Text)
		}
	}
}
