package main

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/xhad/contractqa/internal/models"
	"github.com/xhad/contractqa/pkg/corpus"
	"github.com/xhad/contractqa/pkg/rag"
	"github.com/xhad/contractqa/pkg/scraper"
)

func NewIngestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk and embed the contract corpus",
		Long: `Reads the CUAD corpus and any contract filings given with --url, splits
them into overlapping chunks, embeds every chunk and writes the index files.`,
		Args: cobra.NoArgs,
		RunE: makeIngestRunner(a),
	}

	cmd.Flags().StringSlice("url", nil, "Contract filing URL to fetch (repeatable)")
	cmd.Flags().Bool("skip-corpus", false, "Do not read the CUAD corpus file")
	return cmd
}

func makeIngestRunner(a *app) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg := a.config
		ctx := cmd.Context()
		urls, _ := cmd.Flags().GetStringSlice("url")
		skipCorpus, _ := cmd.Flags().GetBool("skip-corpus")
		urls = append(append([]string(nil), cfg.Corpus.URLs...), urls...)

		var docs []models.Document
		sources := make([]string, 0, 1+len(urls))
		if !skipCorpus {
			loaded, err := corpus.LoadCUAD(cfg.Corpus.Path, cfg.Corpus.Source)
			if err != nil {
				return err
			}
			docs = append(docs, loaded...)
			sources = append(sources, cfg.Corpus.Path)
			color.Green("✓ Loaded %d contracts from %s", len(loaded), cfg.Corpus.Path)
		}

		if len(urls) > 0 {
			fetched, err := fetchFilings(cmd, a, urls, len(docs))
			if err != nil {
				return err
			}
			docs = append(docs, fetched...)
			sources = append(sources, urls...)
		}

		proc, err := newProcessor(cfg)
		if err != nil {
			return err
		}
		embedder, err := newEmbedder(cfg, 0)
		if err != nil {
			return err
		}

		bar := getProgressBar(-1, "Embedding chunks...")
		result, err := rag.Ingest(ctx, rag.IngestOptions{
			Corpus:       strings.Join(sources, ", "),
			Documents:    docs,
			Processor:    proc,
			Embedder:     embedder,
			BatchSize:    cfg.Embedder.BatchSize,
			VectorPath:   cfg.Index.VectorPath(),
			MetadataPath: cfg.Index.MetadataPath(),
			OnProgress: func(done, total int) {
				if bar.GetMax() != total {
					bar.ChangeMax(total)
				}
				bar.Set(done)
			},
		})
		bar.Finish()
		fmt.Println()
		if err != nil {
			return err
		}
		color.Green("✓ Wrote %d vectors to %s", len(result.Vectors), cfg.Index.VectorPath())

		if cfg.Index.Backend == "pgvector" {
			idx, err := openPGIndex(ctx, cfg, embedder.Dimension())
			if err != nil {
				return err
			}
			defer idx.Close()

			spinner := getSpinner("Storing in vector database...")
			if err := idx.Reset(ctx); err != nil {
				spinner.Finish()
				return err
			}
			err = idx.Load(ctx, result.Vectors, result.Records)
			spinner.Finish()
			if err != nil {
				return fmt.Errorf("failed to store vectors: %w", err)
			}
			color.Green("\n✓ Stored %d vectors in table %s", idx.Len(), cfg.Database.TableName)
		}

		return nil
	}
}

func fetchFilings(cmd *cobra.Command, a *app, urls []string, startID int) ([]models.Document, error) {
	cfg := a.config
	var fetchedCount int32

	spinner := getSpinner("Fetching contract filings...")
	defer spinner.Finish()

	s, err := scraper.NewWithConfig(scraper.ScraperConfig{
		MaxDepth:          cfg.Scraper.MaxDepth,
		RateLimit:         cfg.Scraper.RateLimit,
		UserAgent:         cfg.Scraper.UserAgent,
		Source:            cfg.Scraper.Source,
		IgnorePatterns:    cfg.Scraper.IgnorePatterns,
		AllowedExtensions: cfg.Scraper.AllowedExtensions,
		Timeout:           cfg.Scraper.Timeout(),
		StartID:           startID,
		OnProgress: func(url string) {
			n := atomic.AddInt32(&fetchedCount, 1)
			spinner.Describe(color.CyanString("Fetching contract filings... (%d pages)", n))
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize scraper: %w", err)
	}

	var docs []models.Document
	for _, u := range urls {
		fetched, err := s.Scrape(cmd.Context(), u)
		if err != nil {
			return nil, err
		}
		docs = append(docs, fetched...)
	}

	color.Green("\n✓ Fetched %d filings", len(docs))
	return docs, nil
}
