// Package pubsub implements a Google Cloud Pub/Sub publisher for import
// notifications.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel"
)

// EventAttribute is the message attribute carrying the logical topic, so
// subscribers of the single configured Pub/Sub topic can filter by event.
const EventAttribute = "event"

// topicPublisher is the subset of *pubsub.Publisher used here.
type topicPublisher interface {
	Publish(ctx context.Context, msg *pubsub.Message) *pubsub.PublishResult
}

// Publisher wraps a Pub/Sub topic publisher.
type Publisher struct {
	publisher topicPublisher
	stop      func()
}

// New creates a Publisher for the provided topic publisher.
func New(publisher *pubsub.Publisher) *Publisher {
	if publisher == nil {
		return &Publisher{}
	}
	return &Publisher{publisher: publisher, stop: publisher.Stop}
}

// Dial opens a client for projectID and returns a Publisher on topicID. The
// returned close function stops the publisher and closes the client.
func Dial(ctx context.Context, projectID, topicID string) (*Publisher, func() error, error) {
	if projectID == "" || topicID == "" {
		return nil, nil, errors.New("pubsub project id and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("create pubsub client: %w", err)
	}
	p := New(client.Publisher(topicID))
	closeFn := func() error {
		p.Stop()
		if err := client.Close(); err != nil {
			return fmt.Errorf("close pubsub client: %w", err)
		}
		return nil
	}
	return p, closeFn, nil
}

// Publish marshals the payload to JSON and publishes it with the logical
// topic as an attribute, propagating the caller's trace context.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	if p.publisher == nil {
		return "", errors.New("pubsub publisher is not configured")
	}

	msg := &pubsub.Message{Data: data, Attributes: map[string]string{EventAttribute: topic}}
	otel.GetTextMapPropagator().Inject(ctx, &attributeCarrier{attrs: msg.Attributes})

	id, err := p.publisher.Publish(ctx, msg).Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish %s: %w", topic, err)
	}
	return id, nil
}

// Stop flushes pending messages and releases the topic publisher.
func (p *Publisher) Stop() {
	if p.stop != nil {
		p.stop()
	}
}

// attributeCarrier implements propagation.TextMapCarrier for Pub/Sub attributes.
type attributeCarrier struct {
	attrs map[string]string
}

func (c *attributeCarrier) Get(key string) string {
	return c.attrs[key]
}

func (c *attributeCarrier) Set(key, value string) {
	c.attrs[key] = value
}

func (c *attributeCarrier) Keys() []string {
	keys := make([]string, 0, len(c.attrs))
	for k := range c.attrs {
		keys = append(keys, k)
	}
	return keys
}
