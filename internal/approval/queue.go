package approval

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deskwork/deskwork/internal/events"
)

// Expiry is how long a pending approval stays poppable.
const Expiry = 600 * time.Second

// Pending is a queued approval request. It lives only in memory; a
// process restart loses all pending approvals.
type Pending struct {
	ID         string
	Tool       string
	Action     string
	Args       map[string]any
	WorkingDir string
	ExpiresAt  time.Time
}

// Queue holds pending approvals behind a mutex. Entries are consumed
// exactly once by Pop or silently skipped after expiry; there is no
// active eviction timer.
type Queue struct {
	mu    sync.Mutex
	items []Pending
	bus   *events.Bus
	now   func() time.Time
}

// NewQueue creates an approval queue publishing to bus (nil is fine).
func NewQueue(bus *events.Bus) *Queue {
	return &Queue{bus: bus, now: time.Now}
}

// Request queues a flagged tool call and returns the message the
// model/user sees, instructing them to reply "approve <id>" or
// "deny <id>".
func (q *Queue) Request(tool, action string, args map[string]any, workingDir, reason string) string {
	p := Pending{
		ID:         uuid.NewString(),
		Tool:       tool,
		Action:     action,
		Args:       args,
		WorkingDir: workingDir,
		ExpiresAt:  q.now().Add(Expiry),
	}

	q.mu.Lock()
	q.items = append(q.items, p)
	q.mu.Unlock()

	q.bus.Publish(events.KindApprovalRequest, map[string]any{
		"id":         p.ID,
		"action":     action,
		"reason":     reason,
		"expires_at": p.ExpiresAt.Unix(),
	})

	return fmt.Sprintf("Approval required (%s). Reply 'approve %s' or 'deny %s'. Reason: %s",
		tool, p.ID, p.ID, reason)
}

// Pop scans the queue in order, discarding expired entries as it goes,
// and removes and returns the first live entry matching id. An expired
// or unknown id yields ok=false.
func (q *Queue) Pop(id string) (Pending, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := q.now()
	live := q.items[:0]
	var found *Pending
	for i := range q.items {
		item := q.items[i]
		if !item.ExpiresAt.After(now) {
			continue // expired, dropped during compaction
		}
		if found == nil && item.ID == id {
			p := item
			found = &p
			continue
		}
		live = append(live, item)
	}
	q.items = live

	if found == nil {
		return Pending{}, false
	}
	return *found, true
}

// Len returns the number of queued entries, expired ones included.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Resolved publishes the approve/deny outcome for an id.
func (q *Queue) Resolved(id, status string) {
	q.bus.Publish(events.KindApprovalResolved, map[string]any{
		"id":     id,
		"status": status,
	})
}
