// Package progress tracks running imports. A Tracker holds the live snapshot
// of every job, written only by the job that owns it, and a Hub batches job
// lifecycle events on a background goroutine before fanning them out to
// sinks such as Prometheus metrics, logs or a message publisher.
package progress
