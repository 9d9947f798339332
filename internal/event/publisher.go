package event

import (
	"context"
	"os"

	"cloud.google.com/go/pubsub"
	"google.golang.org/api/option"
)

// Publisher publishes canonical change events to the change topic.
type Publisher interface {
	// Publish sends the event and blocks until the topic acknowledges it.
	Publish(ctx context.Context, e ChangeEvent) error
}

// PubSubPublisher implements Publisher on a Cloud Pub/Sub topic.
type PubSubPublisher struct {
	topic *pubsub.Topic
}

// NewPubSubPublisher creates a publisher with credentials from environment.
// It expects either GOOGLE_APPLICATION_CREDENTIALS path or GOOGLE_CREDENTIALS
// JSON in env, falling back to application default credentials.
func NewPubSubPublisher(ctx context.Context, projectID, topicID string) (*PubSubPublisher, func() error, error) {
	const op = "NewPubSubPublisher"

	var opts []option.ClientOption
	if credJSON := os.Getenv("GOOGLE_CREDENTIALS"); credJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credJSON)))
	} else if credFile := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credFile != "" {
		opts = append(opts, option.WithCredentialsFile(credFile))
	}

	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, nil, &PublishError{Op: op, Err: err}
	}

	return &PubSubPublisher{topic: client.Topic(topicID)}, client.Close, nil
}

// NewPubSubPublisherWithTopic creates a publisher with an explicit topic (for testing).
func NewPubSubPublisherWithTopic(topic *pubsub.Topic) *PubSubPublisher {
	return &PubSubPublisher{topic: topic}
}

// Publish sends the event and waits for the server acknowledgment.
func (p *PubSubPublisher) Publish(ctx context.Context, e ChangeEvent) error {
	const op = "Publish"

	data, err := e.Marshal()
	if err != nil {
		return &PublishError{Op: op, Err: err}
	}

	result := p.topic.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"file_id":     e.FileID,
			"change_type": e.ChangeType,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return &PublishError{Op: op, Err: err}
	}
	return nil
}
