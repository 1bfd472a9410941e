package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/JakeFAU/botlog/internal/ingest"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan ingest.Task, 1)
	errCh := make(chan error, 1)

	go func() {
		task, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- task
	}()

	id := uuid.New()
	if err := q.Enqueue(context.Background(), ingest.Task{Job: ingest.Job{ID: id}, Path: "/tmp/a.log"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		if got.Job.ID != id || got.Path != "/tmp/a.log" {
			t.Fatalf("unexpected task %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return task")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	qDequeue := NewQueue(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := qDequeue.Dequeue(ctx); err == nil ||
		err.Error() != "dequeue canceled: context canceled" {
		t.Fatalf("expected dequeue cancel error, got %v", err)
	}

	qEnqueue := NewQueue(1)
	if err := qEnqueue.Enqueue(context.Background(), ingest.Task{Path: "primed"}); err != nil {
		t.Fatalf("failed to prime enqueue queue: %v", err)
	}
	if qEnqueue.Len() != 1 {
		t.Fatalf("expected 1 queued task, got %d", qEnqueue.Len())
	}
	ctx, cancel = context.WithCancel(context.Background())
	cancel()
	if err := qEnqueue.Enqueue(ctx, ingest.Task{}); err == nil ||
		err.Error() != "enqueue canceled: context canceled" {
		t.Fatalf("expected enqueue cancel error, got %v", err)
	}
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	if err := q.Enqueue(context.Background(), ingest.Task{Path: "queued"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}
	q.Close()
	if err := q.Enqueue(context.Background(), ingest.Task{}); !errors.Is(err, ingest.ErrQueueClosed) {
		t.Fatalf("expected closed error on enqueue, got %v", err)
	}
	if task, err := q.Dequeue(context.Background()); err != nil || task.Path != "queued" {
		t.Fatalf("expected queued task to drain, got %+v, %v", task, err)
	}
	if _, err := q.Dequeue(context.Background()); !errors.Is(err, ingest.ErrQueueClosed) {
		t.Fatalf("expected queue closed error, got %v", err)
	}
	// Closing twice should be safe.
	q.Close()
}

func TestQueueCloseReleasesBlockedEnqueue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	if err := q.Enqueue(context.Background(), ingest.Task{Path: "first"}); err != nil {
		t.Fatalf("Enqueue() error = %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Enqueue(context.Background(), ingest.Task{Path: "blocked"})
	}()
	// Give the second Enqueue time to block on the full queue.
	time.Sleep(20 * time.Millisecond)

	closed := make(chan struct{})
	go func() {
		q.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(time.Second):
		t.Fatal("Close() waited on a blocked Enqueue")
	}
	select {
	case err := <-errCh:
		if !errors.Is(err, ingest.ErrQueueClosed) {
			t.Fatalf("expected closed error for blocked enqueue, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Enqueue was not released by Close()")
	}
	if task, err := q.Dequeue(context.Background()); err != nil || task.Path != "first" {
		t.Fatalf("expected first task to drain, got %+v, %v", task, err)
	}
}
