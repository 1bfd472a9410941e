package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestUploadMetrics(t *testing.T) {
	Init()

	before := testutil.ToFloat64(uploadBytesTotal)
	ObserveUpload(2048)
	ObserveUpload(0)
	if got := testutil.ToFloat64(uploadBytesTotal) - before; got != 2048 {
		t.Fatalf("expected 2048 upload bytes, got %f", got)
	}

	ObserveRejectedUpload("too_large")
	if got := testutil.ToFloat64(uploadsRejectedTotal.WithLabelValues("too_large")); got < 1 {
		t.Fatalf("expected rejected upload to be counted, got %f", got)
	}

	SetQueueDepth(3)
	if got := testutil.ToFloat64(importQueueDepth); got != 3 {
		t.Fatalf("expected queue depth 3, got %f", got)
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	first := httpRequestsTotal
	Init()
	if httpRequestsTotal != first {
		t.Fatal("Init re-registered collectors")
	}
}
