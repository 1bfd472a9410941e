// Package sinks implements concrete progress consumers: Prometheus metrics,
// structured logging and completion notifications. Each sink satisfies the
// progress.Sink interface.
package sinks
