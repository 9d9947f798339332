package processor

import (
	"context"
	"errors"
	"os"

	"cloud.google.com/go/pubsub"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"

	"driveocr/internal/event"
	"driveocr/internal/extract"
)

// messageHandler is the subset of Processor the subscriber needs.
type messageHandler interface {
	Process(ctx context.Context, ev event.ChangeEvent) error
}

// Subscriber pulls change events from the bus and feeds them to a Processor.
//
// Malformed payloads are acked immediately so a poison message cannot wedge
// the subscription. Extraction failures are deterministic for a given
// document (an oversized file stays oversized, a corrupt PDF stays corrupt),
// so those events are logged and abandoned. All other processing failures
// are nacked for redelivery, which is safe because every warehouse write is
// idempotent.
type Subscriber struct {
	sub     *pubsub.Subscription
	handler messageHandler
	log     zerolog.Logger
}

// NewSubscriber creates a subscriber with credentials from environment. The
// returned close function releases the underlying Pub/Sub client.
func NewSubscriber(ctx context.Context, projectID, subscription string, handler messageHandler, log zerolog.Logger) (*Subscriber, func() error, error) {
	const op = "NewSubscriber"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, wrapProcessError(op, "", err)
	}

	return &Subscriber{
		sub:     client.Subscription(subscription),
		handler: handler,
		log:     log,
	}, client.Close, nil
}

// NewSubscriberWithSubscription creates a subscriber with an explicit subscription (for testing).
func NewSubscriberWithSubscription(sub *pubsub.Subscription, handler messageHandler, log zerolog.Logger) *Subscriber {
	return &Subscriber{sub: sub, handler: handler, log: log}
}

// Run blocks receiving messages until ctx is cancelled.
func (s *Subscriber) Run(ctx context.Context) error {
	s.log.Info().Str("subscription", s.sub.ID()).Msg("Starting change event subscriber")
	return s.sub.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.handleMessage(ctx, msg.Data, msg.Ack, msg.Nack)
	})
}

func (s *Subscriber) handleMessage(ctx context.Context, data []byte, ack, nack func()) {
	ev, err := event.UnmarshalChangeEvent(data)
	if err != nil {
		s.log.Error().Err(err).Msg("Dropping undecodable change event")
		ack()
		return
	}

	if err := s.handler.Process(ctx, ev); err != nil {
		var ee *extract.ExtractionError
		if errors.As(err, &ee) {
			s.log.Error().Err(err).Str("file_id", ev.FileID).Msg("Abandoning event after extraction failure")
			ack()
			return
		}
		s.log.Error().Err(err).Str("file_id", ev.FileID).Msg("Change event failed, requesting redelivery")
		nack()
		return
	}
	ack()
}
