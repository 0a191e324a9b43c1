// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package events

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// EventTypeRunCompleted is the type of RunCompletedEvent.
const EventTypeRunCompleted = "pipeline.run.completed"

// Message metadata keys.
const (
	MetadataEventType     = "event_type"
	MetadataRunID         = "run_id"
	MetadataStatus        = "status"
	MetadataCorrelationID = "correlation_id"
)

// RunCompletedEvent is the payload announcing a completed run.
type RunCompletedEvent struct {
	EventID    string                               `json:"event_id"`
	Type       string                               `json:"type"`
	OccurredAt time.Time                            `json:"occurred_at"`
	Summary    pipeline.Summary                     `json:"summary"`
	Stages     map[recommend.Stage]recommend.Status `json:"stages"`
	Persisted  bool                                 `json:"persisted"`
}

// NewRunCompletedMessage serializes a run summary into a Watermill message.
func NewRunCompletedMessage(ctx context.Context, r *pipeline.Result) (*message.Message, error) {
	event := RunCompletedEvent{
		EventID:    uuid.NewString(),
		Type:       EventTypeRunCompleted,
		OccurredAt: time.Now().UTC(),
		Summary:    r.Summarize(),
		Stages:     r.Stages,
		Persisted:  r.Persisted,
	}
	data, err := json.Marshal(&event)
	if err != nil {
		return nil, fmt.Errorf("serialize run event: %w", err)
	}

	msg := message.NewMessage(event.EventID, data)
	msg.Metadata.Set(MetadataEventType, event.Type)
	msg.Metadata.Set(MetadataRunID, r.RunID)
	msg.Metadata.Set(MetadataStatus, event.Summary.Status)
	if id := logging.CorrelationIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataCorrelationID, id)
	}
	return msg, nil
}

// DecodeRunCompleted parses a message produced by NewRunCompletedMessage.
func DecodeRunCompleted(msg *message.Message) (*RunCompletedEvent, error) {
	var event RunCompletedEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return nil, fmt.Errorf("deserialize run event: %w", err)
	}
	if event.Type != EventTypeRunCompleted {
		return nil, fmt.Errorf("unexpected event type %q", event.Type)
	}
	return &event, nil
}
