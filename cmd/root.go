package main

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/xhad/contractqa/internal/logger"
	"github.com/xhad/contractqa/pkg/config"
)

// app carries the loaded configuration to the subcommands.
type app struct {
	configPath string
	verbose    bool
	config     *config.Config
}

func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:           "contractqa",
		Short:         "Question answering over legal contracts",
		Long:          `Retrieves contract passages relevant to a question and answers from them with a language model.`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Path to config file (YAML or TOML)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Trace the pipeline on stderr")

	rootCmd.AddCommand(
		NewIngestCmd(a),
		NewAskCmd(a),
		NewServeCmd(a),
	)

	return rootCmd
}

func (a *app) load() error {
	// A missing .env file is fine
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	logger.SetVerbose(a.verbose)

	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	if err := cfg.Check(); err != nil {
		return fmt.Errorf("invalid configuration:\n%w", err)
	}

	a.config = cfg
	return nil
}
