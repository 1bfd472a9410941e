package sinks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/botlog/internal/progress"
)

// Notification topics.
const (
	TopicImportCompleted = "import.completed"
	TopicImportFailed    = "import.failed"
)

// Publisher pushes a JSON-encodable payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Notification announces a finished import so downstream analytics can pick
// up the new rows for the client.
type Notification struct {
	JobID      string    `json:"job_id"`
	ClientID   int64     `json:"client_id"`
	Filename   string    `json:"filename"`
	Imported   int64     `json:"imported"`
	Duplicates int64     `json:"skipped_duplicates"`
	Filtered   int64     `json:"skipped_filtered"`
	Error      string    `json:"error,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

// PublishSink sends a Notification for every terminal import event. Other
// stages are ignored.
type PublishSink struct {
	publisher Publisher
	logger    *zap.Logger
}

// NewPublishSink constructs a PublishSink.
func NewPublishSink(publisher Publisher, logger *zap.Logger) *PublishSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PublishSink{publisher: publisher, logger: logger}
}

// Consume publishes terminal events. Every event is attempted; failures are
// joined into the returned error.
func (s *PublishSink) Consume(ctx context.Context, batch []progress.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	var errs []error
	for _, evt := range batch {
		if !evt.Terminal() {
			continue
		}
		topic := TopicImportCompleted
		if evt.Stage == progress.StageJobError {
			topic = TopicImportFailed
		}
		msg := Notification{
			JobID:      evt.JobUUID().String(),
			ClientID:   evt.TenantID,
			Filename:   evt.Filename,
			Imported:   evt.Imported,
			Duplicates: evt.Duplicates,
			Filtered:   evt.Filtered,
			Error:      evt.Note,
			FinishedAt: evt.TS,
		}
		id, err := s.publisher.Publish(ctx, topic, msg)
		if err != nil {
			errs = append(errs, fmt.Errorf("publish %s for job %s: %w", topic, msg.JobID, err))
			continue
		}
		s.logger.Debug("import notification published",
			zap.String("topic", topic),
			zap.String("job_id", msg.JobID),
			zap.String("message_id", id),
		)
	}
	return errors.Join(errs...)
}

// Close implements the Sink interface; it performs no action.
func (s *PublishSink) Close(context.Context) error {
	return nil
}
