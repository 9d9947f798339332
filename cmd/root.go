package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"driveocr/internal/logger"
)

var version = "1.0.0"

var rootCmd = &cobra.Command{
	Use:   "driveocr",
	Short: "Drive OCR pipeline - webhook ingestion, OCR processing, and search API",
	Long: `Drive OCR pipeline ingests Google Drive change notifications, extracts
text from shared documents with Cloud Vision and Document AI, matches the
text against registered user names, and stores the results in BigQuery.

The serve command runs the HTTP API (webhook, search, admin endpoints),
the worker command runs the asynchronous change processor, and the
gmail-watch command manages the Gmail push notification channel.`,
	Version: version,
	Run: func(cmd *cobra.Command, args []string) {
		log := logger.WithComponent("root")
		log.Info().
			Str("version", version).
			Msg("Drive OCR CLI executed")

		fmt.Println("Welcome to the Drive OCR pipeline CLI!")
		fmt.Println("Use --help to see available commands and options.")
	},
}

func Execute() {
	log := logger.WithComponent("cmd")

	if err := rootCmd.Execute(); err != nil {
		log.Error().
			Err(err).
			Msg("Command execution failed")
		fmt.Fprintf(os.Stderr, "Error executing command: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print version information")
}
