package session

import (
	"context"
	"sync"
	"time"

	"stemsplit/internal/pipeline"
)

// StatusEvent is a pipeline event stamped with a hub sequence number.
type StatusEvent struct {
	Sequence uint64 `json:"seq"`
	RunID    string `json:"run_id,omitempty"`
	pipeline.Event
}

// Hub stores recent status events and wakes waiters when new events arrive.
type Hub struct {
	mu       sync.Mutex
	cond     *sync.Cond
	capacity int
	buffer   []StatusEvent
	nextSeq  uint64
	runID    string
}

// NewHub constructs a bounded in-memory event buffer.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = 256
	}
	h := &Hub{capacity: capacity}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Report implements pipeline.Reporter.
func (h *Hub) Report(evt pipeline.Event) {
	h.Publish(StatusEvent{Event: evt})
}

// Publish appends evt, assigning its sequence number.
func (h *Hub) Publish(evt StatusEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	h.nextSeq++
	evt.Sequence = h.nextSeq
	if evt.RunID == "" {
		evt.RunID = h.runID
	}
	if evt.Time.IsZero() {
		evt.Time = time.Now().UTC()
	}
	if len(h.buffer) == h.capacity {
		copy(h.buffer, h.buffer[1:])
		h.buffer = h.buffer[:h.capacity-1]
	}
	h.buffer = append(h.buffer, evt)
	h.cond.Broadcast()
	h.mu.Unlock()
}

func (h *Hub) setRun(runID string) {
	h.mu.Lock()
	h.runID = runID
	h.mu.Unlock()
}

// Fetch returns events with sequence greater than since. When wait is true,
// Fetch blocks until at least one event is available or ctx ends.
func (h *Hub) Fetch(ctx context.Context, since uint64, limit int, wait bool) ([]StatusEvent, uint64, error) {
	if h == nil {
		return nil, since, nil
	}
	if limit <= 0 || limit > h.capacity {
		limit = h.capacity
	}

	cancelWait := make(chan struct{})
	if wait && ctx != nil && ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				h.mu.Lock()
				h.cond.Broadcast()
				h.mu.Unlock()
			case <-cancelWait:
			}
		}()
	}
	defer close(cancelWait)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		events, next := h.snapshotLocked(since, limit)
		if len(events) > 0 || !wait {
			return events, next, contextError(ctx)
		}
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
		h.cond.Wait()
		if err := contextError(ctx); err != nil {
			return nil, next, err
		}
	}
}

// Last returns the most recent event, if any.
func (h *Hub) Last() (StatusEvent, bool) {
	if h == nil {
		return StatusEvent{}, false
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.buffer) == 0 {
		return StatusEvent{}, false
	}
	return h.buffer[len(h.buffer)-1], true
}

func (h *Hub) snapshotLocked(since uint64, limit int) ([]StatusEvent, uint64) {
	start := len(h.buffer)
	for i, evt := range h.buffer {
		if evt.Sequence > since {
			start = i
			break
		}
	}
	if start == len(h.buffer) {
		return nil, h.nextSeq
	}
	end := start + limit
	if end > len(h.buffer) {
		end = len(h.buffer)
	}
	out := make([]StatusEvent, end-start)
	copy(out, h.buffer[start:end])
	return out, h.nextSeq
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	return ctx.Err()
}
