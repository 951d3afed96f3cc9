// Package events provides a publish/subscribe event bus for the
// observer surface. Events flow from components (conversation loop,
// tool dispatcher, approval gateway) to subscribers (WebSocket handler,
// CLI progress display). The bus is nil-safe: calling Publish on a nil
// *Bus is a no-op, so components do not need guard checks, and failure
// to deliver an event never aborts the operation it describes.
package events

import (
	"sync"
	"time"
)

// Kind constants describe the type of event.
const (
	// KindActivity is a tool progress notification.
	// Data: id, status (running|success|error), message.
	KindActivity = "activity"
	// KindPlan is an ordered step list update.
	// Data: steps, current_step.
	KindPlan = "plan_update"
	// KindTelemetry records a timed tool or backend call.
	// Data: tool, status, duration_ms, kind (tool|api).
	KindTelemetry = "telemetry"
	// KindApprovalRequest signals a tool call awaiting approval.
	// Data: id, action, reason, expires_at.
	KindApprovalRequest = "approval_request"
	// KindApprovalResolved signals an approve/deny outcome.
	// Data: id, status (approved|denied).
	KindApprovalResolved = "approval_resolved"
	// KindChatStream carries a streamed answer token.
	// Data: token, done.
	KindChatStream = "chat_stream"
)

// Event represents a single notification published by a component.
type Event struct {
	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"ts"`
	// Kind describes the type of event.
	Kind string `json:"kind"`
	// Data holds event-specific key/value pairs.
	Data map[string]any `json:"data,omitempty"`
}

// Bus is a non-blocking broadcast event bus. Subscribers receive events
// on buffered channels; slow subscribers miss events rather than
// blocking publishers.
type Bus struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
	// recvToSend maps the receive-only channel returned by Subscribe
	// back to the bidirectional channel stored in subs. This allows
	// Unsubscribe to accept <-chan Event (the caller's view) without
	// an illegal type conversion.
	recvToSend map[<-chan Event]chan Event
}

// New creates a new event bus ready for use.
func New() *Bus {
	return &Bus{
		subs:       make(map[chan Event]struct{}),
		recvToSend: make(map[<-chan Event]chan Event),
	}
}

// Publish sends an event to all subscribers. Non-blocking: if a
// subscriber's channel is full, the event is dropped for that
// subscriber. Safe to call on a nil receiver (no-op).
func (b *Bus) Publish(kind string, data map[string]any) {
	if b == nil {
		return
	}
	e := Event{Timestamp: time.Now(), Kind: kind, Data: data}
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
			// Subscriber is full. Drop the event rather than block.
		}
	}
}

// Subscribe returns a channel that receives published events. The
// caller must eventually call Unsubscribe to avoid resource leaks.
// bufSize controls the channel buffer; 64 is a reasonable default for
// WebSocket consumers.
func (b *Bus) Subscribe(bufSize int) <-chan Event {
	ch := make(chan Event, bufSize)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[ch] = struct{}{}
	b.recvToSend[ch] = ch
	return ch
}

// Unsubscribe removes a subscription and closes the channel. Safe to
// call with a channel that is already unsubscribed (no-op).
func (b *Bus) Unsubscribe(ch <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sendCh, ok := b.recvToSend[ch]
	if !ok {
		return
	}
	delete(b.subs, sendCh)
	delete(b.recvToSend, ch)
	close(sendCh)
}

// SubscriberCount returns the number of active subscribers.
func (b *Bus) SubscriberCount() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
