package events

import "sync"

// Buffer collects events until Flush is called. The ledger uses it to hold
// back events emitted inside an operation that may still be rolled back.
type Buffer struct {
	mu     sync.Mutex
	queued []Event
}

// Emit implements the Emitter interface.
func (b *Buffer) Emit(evt Event) {
	if b == nil || evt == nil {
		return
	}
	b.mu.Lock()
	b.queued = append(b.queued, evt)
	b.mu.Unlock()
}

// Flush forwards queued events to dst in emission order and empties the
// buffer.
func (b *Buffer) Flush(dst Emitter) {
	for _, evt := range b.Drain() {
		if dst != nil {
			dst.Emit(evt)
		}
	}
}

// Drain returns and clears the queued events.
func (b *Buffer) Drain() []Event {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.queued
	b.queued = nil
	return out
}

// Multi fans every event out to each emitter in order.
type Multi []Emitter

// Emit implements the Emitter interface.
func (m Multi) Emit(evt Event) {
	for _, e := range m {
		if e != nil {
			e.Emit(evt)
		}
	}
}
