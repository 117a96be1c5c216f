package core

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"launchpad/core/events"
)

const streamHistoryLimit = 2048

// StreamEvent is one committed ledger event as delivered to subscribers.
type StreamEvent struct {
	Sequence   uint64            `json:"sequence"`
	Cursor     string            `json:"cursor"`
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

func cloneStreamEvent(evt StreamEvent) StreamEvent {
	cloned := evt
	if len(evt.Attributes) > 0 {
		cloned.Attributes = make(map[string]string, len(evt.Attributes))
		for k, v := range evt.Attributes {
			cloned.Attributes[k] = v
		}
	}
	return cloned
}

// Stream sequences committed events and fans them out to subscribers. A
// bounded history lets late subscribers resume from a cursor.
type Stream struct {
	mu      sync.Mutex
	seq     uint64
	nextID  uint64
	limit   int
	history []StreamEvent
	subs    map[uint64]chan StreamEvent
	nowFn   func() time.Time
}

// NewStream creates a hub keeping up to limit past events. A non-positive
// limit uses the default.
func NewStream(limit int) *Stream {
	if limit <= 0 {
		limit = streamHistoryLimit
	}
	return &Stream{limit: limit, subs: make(map[uint64]chan StreamEvent), nowFn: time.Now}
}

// Emit implements events.Emitter.
func (s *Stream) Emit(evt events.Event) {
	if s == nil || evt == nil {
		return
	}
	entry := StreamEvent{Type: evt.EventType()}
	if payload, ok := evt.(events.Payload); ok && payload.Event() != nil {
		entry.Attributes = payload.Event().Attributes
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	entry.Sequence = s.seq
	entry.Cursor = strconv.FormatUint(entry.Sequence, 10)
	entry.Timestamp = s.nowFn().Unix()
	s.history = append(s.history, cloneStreamEvent(entry))
	if excess := len(s.history) - s.limit; excess > 0 {
		// append reallocates once the window reaches the end of the backing
		// array, dropping the trimmed prefix.
		s.history = s.history[excess:]
	}
	// Sends stay under the lock so cancel cannot close a channel mid send.
	for _, ch := range s.subs {
		select {
		case ch <- cloneStreamEvent(entry):
		default:
		}
	}
}

// Subscribe registers a subscriber for events after cursor. It returns the
// live channel, a cancel function and the retained backlog past the cursor.
// Slow subscribers miss live events rather than blocking the node.
func (s *Stream) Subscribe(ctx context.Context, cursor string) (<-chan StreamEvent, func(), []StreamEvent, error) {
	if s == nil {
		return nil, nil, nil, fmt.Errorf("stream not initialised")
	}
	var since uint64
	if trimmed := strings.TrimSpace(cursor); trimmed != "" {
		parsed, err := strconv.ParseUint(trimmed, 10, 64)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("invalid cursor %q", cursor)
		}
		since = parsed
	}
	updates := make(chan StreamEvent, 32)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = updates
	history := make([]StreamEvent, len(s.history))
	copy(history, s.history)
	s.mu.Unlock()

	backlog := make([]StreamEvent, 0, len(history))
	for _, entry := range history {
		if entry.Sequence > since {
			backlog = append(backlog, cloneStreamEvent(entry))
		}
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			sub, ok := s.subs[id]
			if ok {
				delete(s.subs, id)
				close(sub)
			}
			s.mu.Unlock()
		})
	}

	if ctx != nil {
		go func() {
			<-ctx.Done()
			cancel()
		}()
	}

	return updates, cancel, backlog, nil
}
