package sinks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/otel"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// Publisher publishes one message and returns its server-assigned id.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
	Stop()
}

// TopicPublisher adapts a Pub/Sub topic to Publisher.
type TopicPublisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
}

// NewTopicPublisher dials Pub/Sub for projectID and binds topicID.
func NewTopicPublisher(ctx context.Context, projectID, topicID string) (*TopicPublisher, error) {
	if projectID == "" || topicID == "" {
		return nil, errors.New("pubsub project and topic are required")
	}
	client, err := pubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	return &TopicPublisher{client: client, topic: client.Topic(topicID)}, nil
}

// Publish sends data and waits for the server acknowledgement.
func (p *TopicPublisher) Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error) {
	res := p.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	id, err := res.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes pending messages and releases the client.
func (p *TopicPublisher) Stop() {
	p.topic.Stop()
	_ = p.client.Close()
}

// PubSubSink publishes each sample as a JSON message with trace context
// injected into the message attributes.
type PubSubSink struct {
	publisher Publisher
}

// NewPubSubSink wraps publisher.
func NewPubSubSink(publisher Publisher) *PubSubSink {
	return &PubSubSink{publisher: publisher}
}

// Consume publishes every sample in batch.
func (s *PubSubSink) Consume(ctx context.Context, batch []metricstore.Sample) error {
	if s == nil || s.publisher == nil {
		return errors.New("pubsub publisher is not configured")
	}
	for _, sample := range batch {
		data, err := json.Marshal(sample)
		if err != nil {
			return fmt.Errorf("marshal sample: %w", err)
		}
		attrs := attrCarrier{"namespace": sample.ID}
		if sample.HasError() {
			attrs["error"] = "true"
		}
		otel.GetTextMapPropagator().Inject(ctx, attrs)
		if _, err := s.publisher.Publish(ctx, data, attrs); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the publisher.
func (s *PubSubSink) Close(context.Context) error {
	if s != nil && s.publisher != nil {
		s.publisher.Stop()
	}
	return nil
}

// attrCarrier implements propagation.TextMapCarrier over message attributes.
type attrCarrier map[string]string

func (c attrCarrier) Get(key string) string { return c[key] }

func (c attrCarrier) Set(key, value string) { c[key] = value }

func (c attrCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}
