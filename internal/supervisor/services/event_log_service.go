// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package services

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/finrec/internal/events"
)

// EventSource delivers published run events.
// Satisfied by *events.Publisher on the memory backend.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan *message.Message, error)
}

// EventLogService consumes run-completed events and writes an audit line
// for each one.
type EventLogService struct {
	source EventSource
	logger zerolog.Logger
}

// NewEventLogService creates the consumer.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEventLogService(source EventSource, logger zerolog.Logger) *EventLogService {
	return &EventLogService{
		source: source,
		logger: logger.With().Str("service", "event-log").Logger(),
	}
}

// Serve implements suture.Service. A closed source stops the service for
// good rather than restarting it.
func (s *EventLogService) Serve(ctx context.Context) error {
	msgs, err := s.source.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to run events: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Info().Msg("Event source closed")
				return suture.ErrDoNotRestart
			}
			s.handle(msg)
		}
	}
}

func (s *EventLogService) handle(msg *message.Message) {
	event, err := events.DecodeRunCompleted(msg)
	if err != nil {
		// A message that cannot be decoded never will be.
		s.logger.Warn().Err(err).Str("message_id", msg.UUID).Msg("Dropping undecodable event")
		msg.Ack()
		return
	}
	s.logger.Info().
		Str("event_id", event.EventID).
		Str("run_id", event.Summary.RunID).
		Str("status", event.Summary.Status).
		Str("strategy", string(event.Summary.Strategy)).
		Int("recommendations", event.Summary.Recommendations).
		Float64("overall_score", event.Summary.OverallScore).
		Bool("persisted", event.Persisted).
		Msg("Run completed")
	msg.Ack()
}

// String implements fmt.Stringer for suture's event log.
func (s *EventLogService) String() string {
	return "event-log"
}
