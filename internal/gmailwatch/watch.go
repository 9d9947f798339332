// Package gmailwatch manages the Gmail push notification channel.
//
// Drive sharing notifications arrive by email; the watch forwards new inbox
// messages to a Pub/Sub topic so the pipeline notices shares without polling.
// Google expires a watch after seven days, so Start is re-run on a schedule.
package gmailwatch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// watchedLabel is the only label the watch subscribes to.
const watchedLabel = "INBOX"

// ErrWatchFailed is returned when the watch could not be started or stopped.
var ErrWatchFailed = errors.New("gmail watch failed")

// WatchError wraps a Gmail API failure with the operation that hit it.
type WatchError struct {
	Op  string
	Err error
}

func (e *WatchError) Error() string {
	return fmt.Sprintf("gmailwatch: %s failed: %v", e.Op, e.Err)
}

func (e *WatchError) Unwrap() error {
	return e.Err
}

func (e *WatchError) Is(target error) bool {
	return target == ErrWatchFailed || errors.Is(e.Err, target)
}

// WatchStatus describes an active watch channel.
type WatchStatus struct {
	HistoryID  uint64    `json:"history_id"`
	Expiration time.Time `json:"expiration"`
}

// Service starts and stops the Gmail watch for the pipeline mailbox.
type Service struct {
	svc *gmail.Service
	log zerolog.Logger
}

// NewService creates a service with credentials from environment. It expects
// either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS JSON in
// env, falling back to application default credentials.
func NewService(ctx context.Context, log zerolog.Logger) (*Service, error) {
	const op = "NewService"

	opts := []option.ClientOption{option.WithScopes(gmail.GmailReadonlyScope)}
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, &WatchError{Op: op, Err: err}
	}
	return &Service{svc: svc, log: log}, nil
}

// NewServiceWithClient creates a service with an explicit Gmail service (for testing).
func NewServiceWithClient(svc *gmail.Service, log zerolog.Logger) *Service {
	return &Service{svc: svc, log: log}
}

// Start registers (or renews) the inbox watch pointing at topicName, which
// must be a fully qualified Pub/Sub topic (projects/<p>/topics/<t>).
func (s *Service) Start(ctx context.Context, topicName string) (*WatchStatus, error) {
	const op = "Start"

	resp, err := s.svc.Users.Watch("me", &gmail.WatchRequest{
		LabelIds:  []string{watchedLabel},
		TopicName: topicName,
	}).Context(ctx).Do()
	if err != nil {
		return nil, &WatchError{Op: op, Err: err}
	}

	status := &WatchStatus{
		HistoryID:  resp.HistoryId,
		Expiration: time.UnixMilli(resp.Expiration).UTC(),
	}
	s.log.Info().
		Uint64("history_id", status.HistoryID).
		Time("expiration", status.Expiration).
		Msg("Gmail watch active")
	return status, nil
}

// Stop tears down the active watch channel.
func (s *Service) Stop(ctx context.Context) error {
	const op = "Stop"

	if err := s.svc.Users.Stop("me").Context(ctx).Do(); err != nil {
		return &WatchError{Op: op, Err: err}
	}
	s.log.Info().Msg("Gmail watch stopped")
	return nil
}
