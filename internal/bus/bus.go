// Package bus publishes evaluation run lifecycle events so external
// consumers can track long-running batch jobs.
package bus

import (
	"context"
	"time"
)

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Bus defines the interface for event publishers.
type Bus interface {
	// Publish publishes an event to a topic.
	Publish(ctx context.Context, topic string, event Event) error

	// Close closes the bus and releases resources.
	Close() error
}

// Event represents a run lifecycle event.
type Event struct {
	// ID is the unique event identifier.
	ID string `json:"id"`

	// Type is the event type, same as the topic it is published to.
	Type string `json:"type"`

	// RunID identifies the evaluation run.
	RunID string `json:"run_id,omitempty"`

	// Timestamp is when the event was created.
	Timestamp int64 `json:"timestamp"`

	// Payload contains the event data.
	Payload any `json:"payload,omitempty"`
}

// NewEvent creates an event stamped with the current time.
func NewEvent(eventType, runID string, payload any) Event {
	now := time.Now()
	return Event{
		ID:        runID + "-" + eventType + "-" + now.Format("150405.000"),
		Type:      eventType,
		RunID:     runID,
		Timestamp: now.Unix(),
		Payload:   payload,
	}
}

// Topics for run lifecycle events.
const (
	TopicRunStarted        = "eval.run.started"
	TopicQuestionCompleted = "eval.question.completed"
	TopicRunCompleted      = "eval.run.completed"
	TopicIndexCompleted    = "index.build.completed"
)
