package notify

import (
	"context"
	"io"

	"github.com/book-expert/logger"
	"github.com/nats-io/nats.go/jetstream"
)

// ObjectStoreForTest mirrors the unexported objectStore interface.
type ObjectStoreForTest interface {
	Put(ctx context.Context, meta jetstream.ObjectMeta, reader io.Reader) (*jetstream.ObjectInfo, error)
}

// PublisherForTest mirrors the unexported publisher interface.
type PublisherForTest interface {
	Publish(
		ctx context.Context,
		subject string,
		payload []byte,
		opts ...jetstream.PublishOpt,
	) (*jetstream.PubAck, error)
}

// NewNotifierForTest builds a notifier around fake JetStream handles.
func NewNotifierForTest(
	store ObjectStoreForTest,
	pub PublisherForTest,
	cfg *Config,
	log *logger.Logger,
) *NATSNotifier {
	return newNotifier(store, pub, cfg, log)
}

// ValidateForTest exposes Config.validate.
func (cfg *Config) ValidateForTest() error { return cfg.validate() }
