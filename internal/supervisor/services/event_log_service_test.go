// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/finrec/internal/config"
	"github.com/tomtom215/finrec/internal/events"
	"github.com/tomtom215/finrec/internal/logging"
	"github.com/tomtom215/finrec/internal/recommend"
	"github.com/tomtom215/finrec/internal/recommend/pipeline"
)

// chanSource hands out a fixed channel.
type chanSource struct {
	ch  chan *message.Message
	err error
}

func (c *chanSource) Subscribe(context.Context) (<-chan *message.Message, error) {
	return c.ch, c.err
}

// lockedBuffer guards log output written from the service goroutine.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEventLogService_MemoryBackend(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pub, err := events.New(ctx, &config.EventsConfig{
		Enabled:         true,
		Backend:         "memory",
		Topic:           "pipeline.completed",
		PublishTimeout:  time.Second,
		BreakerFailures: 3,
		BreakerTimeout:  time.Minute,
	}, logging.NewTestLogger(io.Discard))
	if err != nil {
		t.Fatalf("events.New() error = %v", err)
	}
	defer func() { _ = pub.Close() }()

	logs := &lockedBuffer{}
	svc := NewEventLogService(pub, logging.NewTestLogger(logs))
	done := make(chan error, 1)
	svcCtx, stop := context.WithCancel(ctx)
	go func() { done <- svc.Serve(svcCtx) }()

	res := &pipeline.Result{
		RunID:    "run-42",
		Strategy: recommend.StrategyRevenue,
		Metrics:  &recommend.MetricsReport{},
	}
	// The subscription may not exist yet; the memory backend drops
	// messages published before it does.
	deadline := time.Now().Add(3 * time.Second)
	for !strings.Contains(logs.String(), "run-42") {
		if time.Now().After(deadline) {
			t.Fatalf("run event never logged: %s", logs.String())
		}
		if err := pub.RunCompleted(ctx, res); err != nil {
			t.Fatalf("RunCompleted() error = %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !strings.Contains(logs.String(), `"strategy":"revenue"`) {
		t.Errorf("strategy missing from log: %s", logs.String())
	}

	stop()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}

func TestEventLogService_DropsUndecodable(t *testing.T) {
	src := &chanSource{ch: make(chan *message.Message, 1)}
	logs := &lockedBuffer{}
	svc := NewEventLogService(src, logging.NewTestLogger(logs))

	msg := message.NewMessage(watermill.NewUUID(), []byte("garbage"))
	src.ch <- msg
	close(src.ch)

	if err := svc.Serve(context.Background()); !errors.Is(err, suture.ErrDoNotRestart) {
		t.Errorf("Serve() error = %v, want ErrDoNotRestart", err)
	}
	select {
	case <-msg.Acked():
	default:
		t.Error("undecodable message was not acked")
	}
	if !strings.Contains(logs.String(), "Dropping undecodable event") {
		t.Errorf("drop not logged: %s", logs.String())
	}
}

func TestEventLogService_SubscribeError(t *testing.T) {
	svc := NewEventLogService(&chanSource{err: errors.New("not supported")}, logging.NewTestLogger(io.Discard))
	if err := svc.Serve(context.Background()); err == nil {
		t.Error("expected subscribe error")
	}
}
