package cmd

import (
	"context"
	"log"
	"path/filepath"

	"github.com/spigell/resume-agent/internal/ingest"
	"github.com/spigell/resume-agent/internal/logger"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Split the PDF resume into chunks and build the vector index",
	Run: func(cmd *cobra.Command, _ []string) {
		runIngest()
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("pdf", "p", "", "path to the PDF resume")
	viper.BindPFlag("pdf", ingestCmd.Flags().Lookup("pdf"))
}

func runIngest() {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("loading the resume", zap.String("pdf", config.PDF))

	docs, err := ingest.LoadPDF(ctx, config.PDF, ingest.Options{
		ChunkSize:    config.Chunking.Size,
		ChunkOverlap: config.Chunking.Overlap,
	})
	if err != nil {
		logger.Fatal("loading the resume", zap.Error(err))
	}

	logger.Info("resume split", zap.Int("chunks", len(docs)))

	store, err := openIndex(config, logger)
	if err != nil {
		logger.Fatal("opening the index", zap.Error(err))
	}
	defer store.Close()

	count, err := store.Build(ctx, docs, filepath.Base(config.PDF), config.Embedding.BatchSize)
	if err != nil {
		store.Close()
		logger.Fatal("building the index", zap.Error(err))
	}

	logger.Info("index built", zap.String("index_dir", config.IndexDir), zap.Int("chunks", count))
}
