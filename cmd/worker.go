package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"driveocr/internal/config"
	"driveocr/internal/drive"
	"driveocr/internal/extract"
	"driveocr/internal/logger"
	"driveocr/internal/match"
	"driveocr/internal/processor"
	"driveocr/internal/registry"
	"driveocr/internal/retry"
	"driveocr/internal/warehouse"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the change event processor",
	Long: `Consume Drive change events from the change subscription and apply them
to the warehouse: fetch current file metadata, run OCR over staged content,
match extracted text against registered user names, and upsert the result.

Trashed files are soft-deleted; unsupported file types are skipped. Remote
calls are retried with exponential backoff, and failed events are redelivered
by the subscription.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID
  TEMP_BUCKET - Cloud Storage bucket staging file content
  DOCUMENT_AI_PROCESSOR_ID - Document AI OCR processor ID`,
	Example: `  # Run the worker against the default subscription
  driveocr worker

  # Run against a custom subscription
  PUBSUB_CHANGE_SUBSCRIPTION=drive-changes-staging driveocr worker`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("worker")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, err := drive.NewAPIMetadataFetcher(ctx)
	if err != nil {
		return err
	}

	contentStore, closeContent, err := drive.NewGCSContentStore(ctx, cfg.TempBucket)
	if err != nil {
		return err
	}
	defer closeContent()

	visionExtractor, err := extract.NewVisionExtractor(ctx)
	if err != nil {
		return err
	}
	defer visionExtractor.Close()

	docExtractor, err := extract.NewDocAIExtractor(ctx, extract.DocAIConfig{
		ProjectID:        cfg.ProjectID,
		Location:         cfg.Location,
		ProcessorID:      cfg.DocAIProcessorID,
		ProcessorVersion: cfg.DocAIProcessorVer,
	})
	if err != nil {
		return err
	}
	defer docExtractor.Close()

	chain := extract.NewChain(visionExtractor, docExtractor, match.NewEngine())

	regStore, err := registry.NewStore(ctx, cfg.ProjectID)
	if err != nil {
		return err
	}
	defer regStore.Close()

	whStore, closeWarehouse, err := warehouse.NewStore(ctx, cfg.ProjectID, cfg.FileMetadataTableID(), cfg.UsersTableID())
	if err != nil {
		return err
	}
	defer closeWarehouse()

	proc := processor.New(fetcher, contentStore, chain, regStore, whStore,
		retry.DefaultPolicy(), logger.WithComponent("processor"))

	sub, closeSub, err := processor.NewSubscriber(ctx, cfg.ProjectID, cfg.ChangeSubscription, proc, logger.WithComponent("subscriber"))
	if err != nil {
		return err
	}
	defer closeSub()

	log.Info().Str("subscription", cfg.ChangeSubscription).Msg("Worker started")
	return sub.Run(ctx)
}
