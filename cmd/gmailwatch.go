package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"driveocr/internal/config"
	"driveocr/internal/gmailwatch"
	"driveocr/internal/logger"
)

var gmailWatchCmd = &cobra.Command{
	Use:   "gmail-watch",
	Short: "Start or stop the Gmail push notification channel",
	Long: `Manage the Gmail watch that forwards new inbox messages to a Pub/Sub
topic. Drive sharing notifications arrive by email, so the watch lets the
pipeline notice newly shared files without polling.

Google expires a watch after seven days; schedule this command to renew it.

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  GOOGLE_CLOUD_PROJECT - Google Cloud project ID`,
	Example: `  # Start (or renew) the watch
  driveocr gmail-watch

  # Stop the active watch channel
  driveocr gmail-watch --stop

  # Watch with a custom topic
  GMAIL_WATCH_TOPIC=mail-events driveocr gmail-watch`,
	Args: cobra.NoArgs,
	RunE: runGmailWatch,
}

func init() {
	rootCmd.AddCommand(gmailWatchCmd)

	gmailWatchCmd.Flags().Bool("stop", false, "Stop the active watch instead of starting one")
	gmailWatchCmd.Flags().Int("timeout", 30, "API call timeout in seconds")
}

func runGmailWatch(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("gmail-watch")

	stop, _ := cmd.Flags().GetBool("stop")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	svc, err := gmailwatch.NewService(ctx, log)
	if err != nil {
		return err
	}

	if stop {
		if err := svc.Stop(ctx); err != nil {
			return err
		}
		fmt.Println("Gmail watch stopped.")
		return nil
	}

	status, err := svc.Start(ctx, cfg.GmailTopicName())
	if err != nil {
		return err
	}

	fmt.Printf("Gmail watch active until %s (history ID %d)\n",
		status.Expiration.Format(time.RFC3339), status.HistoryID)
	return nil
}
