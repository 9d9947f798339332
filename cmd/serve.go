package cmd

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"driveocr/internal/api"
	"driveocr/internal/config"
	"driveocr/internal/event"
	"driveocr/internal/gate"
	"driveocr/internal/logger"
	"driveocr/internal/registry"
	"driveocr/internal/warehouse"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Start the HTTP server exposing the Drive change webhook, the document
search endpoint, and the admin API for users, allow-lists, and settings.

The webhook validates incoming notifications and publishes them to the
change topic; the worker command consumes them asynchronously.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID
  TEMP_BUCKET - Cloud Storage bucket staging file content
  DOCUMENT_AI_PROCESSOR_ID - Document AI OCR processor ID`,
	Example: `  # Serve on the default port 8080
  driveocr serve

  # Serve on a custom port
  PORT=9090 driveocr serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher, closePublisher, err := event.NewPubSubPublisher(ctx, cfg.ProjectID, cfg.ChangeTopic)
	if err != nil {
		return err
	}
	defer closePublisher()

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

	verifier, err := gate.NewFirebaseVerifier(ctx, cfg.ProjectID)
	if err != nil {
		return err
	}
	g := gate.New(verifier, regStore, logger.WithComponent("gate"))

	server := api.New(publisher, regStore, whStore, gate.Middleware(g), logger.WithComponent("api"))

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Listen(":" + cfg.Port)
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("Shutting down HTTP server")
		return server.Shutdown()
	case err := <-errCh:
		return err
	}
}
