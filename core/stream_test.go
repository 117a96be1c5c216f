package core

import (
	"context"
	"testing"
	"time"

	"launchpad/core/events"
	"launchpad/core/types"
)

func emitN(s *Stream, n int) {
	for i := 0; i < n; i++ {
		s.Emit(events.Wrap(&types.Event{Type: "sale.purchased", Attributes: map[string]string{"saleId": "1"}}))
	}
}

func TestStreamBacklogAfterCursor(t *testing.T) {
	s := NewStream(0)
	emitN(s, 3)
	_, cancel, backlog, err := s.Subscribe(context.Background(), "1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if len(backlog) != 2 || backlog[0].Sequence != 2 || backlog[1].Cursor != "3" {
		t.Fatalf("unexpected backlog %+v", backlog)
	}
	if backlog[0].Attributes["saleId"] != "1" {
		t.Fatalf("attributes not carried: %+v", backlog[0])
	}
}

func TestStreamHistoryIsBounded(t *testing.T) {
	s := NewStream(4)
	emitN(s, 10)
	_, cancel, backlog, err := s.Subscribe(context.Background(), "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer cancel()
	if len(backlog) != 4 || backlog[0].Sequence != 7 {
		t.Fatalf("expected the last four events, got %+v", backlog)
	}
}

func TestStreamLiveDeliveryAndCancel(t *testing.T) {
	s := NewStream(0)
	ctx, stop := context.WithCancel(context.Background())
	updates, _, _, err := s.Subscribe(ctx, "")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	emitN(s, 1)
	select {
	case evt := <-updates:
		if evt.Type != "sale.purchased" || evt.Sequence != 1 {
			t.Fatalf("unexpected event %+v", evt)
		}
	case <-time.After(time.Second):
		t.Fatalf("no live event delivered")
	}
	stop()
	select {
	case _, ok := <-updates:
		if ok {
			t.Fatalf("expected channel to close after cancel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel not closed after context cancel")
	}
}

func TestStreamRejectsBadCursor(t *testing.T) {
	if _, _, _, err := NewStream(0).Subscribe(context.Background(), "abc"); err == nil {
		t.Fatalf("expected cursor error")
	}
}

func TestStreamHistoryWindowSlides(t *testing.T) {
	s := NewStream(8)
	emitN(s, 10_000)
	s.mu.Lock()
	size, capacity := len(s.history), cap(s.history)
	first := s.history[0].Sequence
	s.mu.Unlock()
	if size != 8 || first != 9_993 {
		t.Fatalf("window holds %d events from %d", size, first)
	}
	if capacity > 64 {
		t.Fatalf("history backing array grew to %d", capacity)
	}
}

func TestStreamCancelDuringEmit(t *testing.T) {
	s := NewStream(16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		emitN(s, 5_000)
	}()
	for i := 0; i < 500; i++ {
		ctx, stop := context.WithCancel(context.Background())
		updates, cancel, _, err := s.Subscribe(ctx, "")
		if err != nil {
			t.Fatalf("subscribe: %v", err)
		}
		if i%2 == 0 {
			stop()
		} else {
			cancel()
			stop()
		}
		for range updates {
		}
	}
	<-done
	if got := s.seq; got != 5_000 {
		t.Fatalf("emitted %d events", got)
	}
}
