// Package queue carries job messages from the dispatchers to the launcher as CloudEvents.
package queue

import (
	"context"
	"fmt"
	"strings"

	"github.com/Lllllllleong/docinsight/internal/models"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/google/uuid"
)

const (
	eventTypePrefix = "docinsight."
	eventTypeSuffix = ".requested"
)

// EventType is the CloudEvent type carrying a job message of kind.
func EventType(kind models.JobKind) string {
	return eventTypePrefix + string(kind) + eventTypeSuffix
}

// KindFromEventType reverses EventType.
func KindFromEventType(eventType string) (models.JobKind, error) {
	rest, ok := strings.CutPrefix(eventType, eventTypePrefix)
	if !ok {
		return "", fmt.Errorf("unexpected event type %q", eventType)
	}
	kind, ok := strings.CutSuffix(rest, eventTypeSuffix)
	if !ok {
		return "", fmt.Errorf("unexpected event type %q", eventType)
	}
	return models.ParseJobKind(kind)
}

// Publisher enqueues a job message.
type Publisher interface {
	Publish(ctx context.Context, kind models.JobKind, msg models.QueueMessage) error
}

type sender interface {
	Send(ctx context.Context, event cloudevents.Event) cloudevents.Result
}

// CloudEventPublisher posts each message as a structured CloudEvent to a broker URL.
type CloudEventPublisher struct {
	client    sender
	brokerURL string
	source    string
}

var _ Publisher = (*CloudEventPublisher)(nil)

// NewCloudEventPublisher creates an HTTP CloudEvents client targeting brokerURL.
func NewCloudEventPublisher(brokerURL, source string) (*CloudEventPublisher, error) {
	if brokerURL == "" {
		return nil, fmt.Errorf("broker URL must be set")
	}
	client, err := cloudevents.NewClientHTTP()
	if err != nil {
		return nil, fmt.Errorf("failed to create cloudevents client: %w", err)
	}
	return &CloudEventPublisher{client: client, brokerURL: brokerURL, source: source}, nil
}

// Publish sends msg. Anything the broker does not acknowledge is an error.
func (p *CloudEventPublisher) Publish(ctx context.Context, kind models.JobKind, msg models.QueueMessage) error {
	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(p.source)
	event.SetType(EventType(kind))
	event.SetSubject(msg.DocumentID)
	if err := event.SetData(cloudevents.ApplicationJSON, msg); err != nil {
		return fmt.Errorf("failed to encode queue message: %w", err)
	}

	result := p.client.Send(cloudevents.ContextWithTarget(ctx, p.brokerURL), event)
	if !cloudevents.IsACK(result) {
		return fmt.Errorf("failed to publish %s for %s: %w", event.Type(), msg.DocumentID, result)
	}
	return nil
}
