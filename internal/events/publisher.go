// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/metrics"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("publisher is closed")

// breakerName labels the publisher breaker in metrics.
const breakerName = "events"

// Supported backends.
const (
	BackendMemory = "memory"
	BackendNATS   = "nats"
)

// Publisher announces completed pipeline runs over Watermill with circuit
// breaker protection. It implements pipeline.Notifier.
type Publisher struct {
	publisher message.Publisher
	breaker   *gobreaker.CircuitBreaker[any]
	topic     string
	timeout   time.Duration

	// channel is set for the in-memory backend so local consumers can subscribe.
	channel *gochannel.GoChannel

	mu     sync.RWMutex
	closed bool
	logger zerolog.Logger
}

var _ pipeline.Notifier = (*Publisher)(nil)

// New creates a publisher for the configured backend. The nats backend
// ensures the JetStream stream exists before connecting the publisher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(ctx context.Context, cfg *config.EventsConfig, logger zerolog.Logger) (*Publisher, error) {
	logger = logger.With().Str("component", "events").Str("backend", cfg.Backend).Logger()
	wmLogger := NewLoggerAdapter(logger)

	switch cfg.Backend {
	case BackendMemory:
		ch := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, wmLogger)
		p := NewWithPublisher(ch, cfg, logger)
		p.channel = ch
		return p, nil
	case BackendNATS:
		if err := ensureNATSStream(ctx, cfg, logger); err != nil {
			return nil, err
		}
		pub, err := wmNats.NewPublisher(wmNats.PublisherConfig{
			URL:         cfg.URL,
			NatsOptions: natsOptions(logger),
			Marshaler:   &wmNats.NATSMarshaler{},
			JetStream: wmNats.JetStreamConfig{
				Disabled:      false,
				AutoProvision: false, // created by ensureNATSStream
				TrackMsgId:    true,
				PublishOptions: []natsgo.PubOpt{
					natsgo.RetryAttempts(3),
					natsgo.RetryWait(100 * time.Millisecond),
				},
			},
		}, wmLogger)
		if err != nil {
			return nil, fmt.Errorf("create watermill publisher: %w", err)
		}
		return NewWithPublisher(pub, cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NewWithPublisher wraps an existing Watermill publisher.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewWithPublisher(pub message.Publisher, cfg *config.EventsConfig, logger zerolog.Logger) *Publisher {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Publisher circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(metrics.BreakerStateValue(to))
		},
	})
	return &Publisher{
		publisher: pub,
		breaker:   cb,
		topic:     cfg.Topic,
		timeout:   cfg.PublishTimeout,
		logger:    logger,
	}
}

// natsOptions configures reconnection and logs connection changes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func natsOptions(logger zerolog.Logger) []natsgo.Option {
	return []natsgo.Option{
		natsgo.Name("finrec"),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2 * time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info().Str("url", logging.SanitizeURL(nc.ConnectedUrl())).Msg("NATS reconnected")
		}),
	}
}

//nolint:gocritic // logger passed by value is acceptable for zerolog
func ensureNATSStream(ctx context.Context, cfg *config.EventsConfig, logger zerolog.Logger) error {
	nc, err := natsgo.Connect(cfg.URL, natsgo.Name("finrec-provision"), natsgo.Timeout(cfg.PublishTimeout))
	if err != nil {
		return fmt.Errorf("connect to NATS: %w", err)
	}
	defer nc.Close()

	js, err := jetstream.New(nc)
	if err != nil {
		return fmt.Errorf("create JetStream context: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.PublishTimeout)
	defer cancel()
	if err := EnsureStream(ctx, js, cfg.Stream, cfg.Topic); err != nil {
		return err
	}
	logger.Info().Str("stream", cfg.Stream).Str("topic", cfg.Topic).Msg("JetStream stream ready")
	return nil
}

// Publish sends msg to the configured topic through the circuit breaker.
// The message UUID doubles as Nats-Msg-Id so redeliveries are deduplicated.
func (p *Publisher) Publish(ctx context.Context, msg *message.Message) (err error) {
	defer func() { metrics.RecordPublish(err) }()

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}
	msg.SetContext(ctx)

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.publishWithTimeout(ctx, msg)
	})
	return err
}

// publishWithTimeout bounds a publish call that does not take a context.
func (p *Publisher) publishWithTimeout(ctx context.Context, msg *message.Message) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	done := make(chan error, 1)
	go func() { done <- p.publisher.Publish(p.topic, msg) }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("publish %s: %w", p.topic, ctx.Err())
	}
}

// RunCompleted publishes the summary of a completed run.
func (p *Publisher) RunCompleted(ctx context.Context, r *pipeline.Result) error {
	msg, err := NewRunCompletedMessage(ctx, r)
	if err != nil {
		return err
	}
	if err := p.Publish(ctx, msg); err != nil {
		return fmt.Errorf("publish run %s: %w", r.RunID, err)
	}
	p.logger.Debug().Str("run_id", r.RunID).Str("message_id", msg.UUID).Msg("Run completion published")
	return nil
}

// Subscribe returns the message stream of the configured topic. Only the
// in-memory backend supports it.
func (p *Publisher) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	if p.channel == nil {
		return nil, fmt.Errorf("subscribe is only supported by the memory backend")
	}
	return p.channel.Subscribe(ctx, p.topic)
}

// BreakerState returns the circuit breaker state.
func (p *Publisher) BreakerState() gobreaker.State {
	return p.breaker.State()
}

// Close gracefully shuts down the publisher.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}
