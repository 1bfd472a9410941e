package sinks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/botlog/internal/progress"
	"github.com/JakeFAU/botlog/internal/publisher/memory"
)

func TestPublishSinkNotifiesTerminalEvents(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	sink := NewPublishSink(pub, nil)
	done, failed := uuid.New(), uuid.New()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	err := sink.Consume(context.Background(), []progress.Event{
		{JobID: progress.UUIDToBytes(done), TS: now, Stage: progress.StageJobStart},
		{JobID: progress.UUIDToBytes(done), TS: now, Stage: progress.StageBatchFlushed, Imported: 10},
		{JobID: progress.UUIDToBytes(done), TenantID: 4, TS: now, Stage: progress.StageJobDone, Filename: "a.log", Imported: 10, Filtered: 2},
		{JobID: progress.UUIDToBytes(failed), TenantID: 5, TS: now, Stage: progress.StageJobError, Note: "db down"},
	})
	require.NoError(t, err)

	msgs := pub.Messages()
	require.Len(t, msgs, 2)
	require.Equal(t, TopicImportCompleted, msgs[0].Topic)
	n, ok := msgs[0].Payload.(Notification)
	require.True(t, ok)
	require.Equal(t, done.String(), n.JobID)
	require.Equal(t, int64(4), n.ClientID)
	require.Equal(t, int64(10), n.Imported)
	require.Equal(t, int64(2), n.Filtered)
	require.Equal(t, now, n.FinishedAt)

	require.Equal(t, TopicImportFailed, msgs[1].Topic)
	require.Equal(t, "db down", msgs[1].Payload.(Notification).Error)
}

func TestPublishSinkJoinsErrors(t *testing.T) {
	t.Parallel()

	sink := NewPublishSink(failingPublisher{}, nil)
	err := sink.Consume(context.Background(), []progress.Event{
		{JobID: progress.UUIDToBytes(uuid.New()), TS: time.Now(), Stage: progress.StageJobDone},
		{JobID: progress.UUIDToBytes(uuid.New()), TS: time.Now(), Stage: progress.StageJobDone},
	})
	require.Error(t, err)
	require.True(t, errors.Is(err, errPublish))

	require.NoError(t, NewPublishSink(nil, nil).Consume(context.Background(), nil))
}

var errPublish = errors.New("publish failed")

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errPublish
}
