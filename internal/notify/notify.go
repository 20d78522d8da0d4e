// Package notify announces fresh PNG renderings on NATS JetStream.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

var (
	// ErrURLRequired is returned when no NATS server is configured.
	ErrURLRequired = errors.New("nats url is required")
	// ErrSubjectRequired is returned when no subject is configured.
	ErrSubjectRequired = errors.New("png created subject is required")
	// ErrBucketRequired is returned when no object store bucket is configured.
	ErrBucketRequired = errors.New("png object store bucket is required")
)

// Config holds the NATS settings of the notifier.
type Config struct {
	URL                  string `toml:"url"`
	PNGStreamName        string `toml:"png_stream_name"`
	PNGCreatedSubject    string `toml:"png_created_subject"`
	PNGObjectStoreBucket string `toml:"png_object_store_bucket"`
	TenantID             string `toml:"tenant_id"`
	UserID               string `toml:"user_id"`
}

// Enabled reports whether a server has been configured at all.
func (cfg *Config) Enabled() bool {
	return cfg.URL != ""
}

func (cfg *Config) validate() error {
	switch {
	case cfg.URL == "":
		return ErrURLRequired
	case cfg.PNGCreatedSubject == "":
		return ErrSubjectRequired
	case cfg.PNGObjectStoreBucket == "":
		return ErrBucketRequired
	}

	return nil
}

// objectStore is the part of jetstream.ObjectStore the notifier uses.
type objectStore interface {
	Put(
		ctx context.Context,
		meta jetstream.ObjectMeta,
		reader io.Reader,
	) (*jetstream.ObjectInfo, error)
}

// publisher is the part of jetstream.JetStream the notifier uses.
type publisher interface {
	Publish(
		ctx context.Context,
		subject string,
		payload []byte,
		opts ...jetstream.PublishOpt,
	) (*jetstream.PubAck, error)
}

// NATSNotifier uploads each rendering to an object store and publishes a
// PNGCreatedEvent for it.
type NATSNotifier struct {
	store      objectStore
	publisher  publisher
	conn       *nats.Conn
	log        *logger.Logger
	cfg        Config
	workflowID string
}

// Connect dials NATS and makes sure the stream and bucket exist.
func Connect(ctx context.Context, cfg *Config, log *logger.Logger) (*NATSNotifier, error) {
	validateErr := cfg.validate()
	if validateErr != nil {
		return nil, validateErr
	}

	natsConnection, connErr := nats.Connect(cfg.URL)
	if connErr != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", connErr)
	}

	jetStream, jsErr := jetstream.New(natsConnection)
	if jsErr != nil {
		natsConnection.Close()

		return nil, fmt.Errorf("failed to create JetStream context: %w", jsErr)
	}

	store, setupErr := setupJetStream(ctx, jetStream, cfg)
	if setupErr != nil {
		natsConnection.Close()

		return nil, fmt.Errorf("failed to set up JetStream resources: %w", setupErr)
	}

	notifier := newNotifier(store, jetStream, cfg, log)
	notifier.conn = natsConnection

	return notifier, nil
}

func newNotifier(store objectStore, pub publisher, cfg *Config, log *logger.Logger) *NATSNotifier {
	return &NATSNotifier{
		store:      store,
		publisher:  pub,
		conn:       nil,
		log:        log,
		cfg:        *cfg,
		workflowID: uuid.New().String(),
	}
}

// setupJetStream ensures the PNG stream and object store exist.
func setupJetStream(
	ctx context.Context,
	jetStream jetstream.JetStream,
	cfg *Config,
) (jetstream.ObjectStore, error) {
	if cfg.PNGStreamName != "" {
		_, streamErr := jetStream.CreateStream(ctx, jetstream.StreamConfig{
			Name:      cfg.PNGStreamName,
			Subjects:  []string{cfg.PNGCreatedSubject},
			Retention: jetstream.WorkQueuePolicy,
			Storage:   jetstream.FileStorage,
			Replicas:  1,
		})
		if streamErr != nil && !errors.Is(streamErr, jetstream.ErrStreamNameAlreadyInUse) {
			return nil, fmt.Errorf("failed to create PNG stream: %w", streamErr)
		}
	}

	_, createErr := jetStream.CreateObjectStore(ctx, jetstream.ObjectStoreConfig{
		Bucket:   cfg.PNGObjectStoreBucket,
		MaxBytes: -1,
		Storage:  jetstream.FileStorage,
		Replicas: 1,
	})
	if createErr != nil && !errors.Is(createErr, jetstream.ErrBucketExists) {
		return nil, fmt.Errorf(
			"failed to create object store '%s': %w",
			cfg.PNGObjectStoreBucket,
			createErr,
		)
	}

	store, bindErr := jetStream.ObjectStore(ctx, cfg.PNGObjectStoreBucket)
	if bindErr != nil {
		return nil, fmt.Errorf("failed to bind to PNG object store: %w", bindErr)
	}

	return store, nil
}

// WorkflowID identifies the run in every published event.
func (notifier *NATSNotifier) WorkflowID() string {
	return notifier.workflowID
}

// ObjectName is the object store key used for base.
func (notifier *NATSNotifier) ObjectName(base string) string {
	return fmt.Sprintf("%s/%s/%s.png", notifier.cfg.TenantID, notifier.workflowID, base)
}

// Notify uploads pngPath and publishes its PNGCreatedEvent.
func (notifier *NATSNotifier) Notify(ctx context.Context, base, pngPath string) error {
	objectName := notifier.ObjectName(base)

	uploadErr := notifier.upload(ctx, objectName, pngPath)
	if uploadErr != nil {
		return uploadErr
	}

	return notifier.publishPNGCreatedEvent(ctx, objectName)
}

func (notifier *NATSNotifier) upload(ctx context.Context, objectName, filePath string) error {
	file, openErr := os.Open(filePath)
	if openErr != nil {
		return fmt.Errorf("failed to open file for upload: %w", openErr)
	}

	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			notifier.log.Warn("Failed to close file '%s': %v", filePath, closeErr)
		}
	}()

	meta := jetstream.ObjectMeta{
		Name:        objectName,
		Description: "",
		Headers:     nil,
		Metadata:    nil,
	}

	_, putErr := notifier.store.Put(ctx, meta, file)
	if putErr != nil {
		return fmt.Errorf("failed to put file in object store: %w", putErr)
	}

	return nil
}

// publishPNGCreatedEvent marshals and publishes a PNGCreatedEvent. A rendering
// is always a single page.
func (notifier *NATSNotifier) publishPNGCreatedEvent(ctx context.Context, pngKey string) error {
	pngEvent := events.PNGCreatedEvent{
		Header: events.EventHeader{
			WorkflowID: notifier.workflowID,
			UserID:     notifier.cfg.UserID,
			TenantID:   notifier.cfg.TenantID,
			EventID:    uuid.New().String(),
			Timestamp:  time.Now(),
		},
		PNGKey:     pngKey,
		PageNumber: 1,
		TotalPages: 1,
	}

	eventJSON, marshalErr := json.Marshal(pngEvent)
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal PNGCreatedEvent: %w", marshalErr)
	}

	_, pubErr := notifier.publisher.Publish(ctx, notifier.cfg.PNGCreatedSubject, eventJSON)
	if pubErr != nil {
		return fmt.Errorf("failed to publish PNGCreatedEvent: %w", pubErr)
	}

	return nil
}

// Close closes the NATS connection if Connect opened one.
func (notifier *NATSNotifier) Close() {
	if notifier.conn != nil {
		notifier.conn.Close()
	}
}
