package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/grcspl/storefront/internal/domain"
)

type memoryEntry struct {
	Entry
	resolved bool
}

// MemoryQueue keeps entries in process memory; they do not survive a restart
type MemoryQueue struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
}

// NewMemoryQueue creates an empty in-process queue
func NewMemoryQueue() *MemoryQueue {
	return NewMemoryQueueWithClock(time.Now)
}

// NewMemoryQueueWithClock creates an empty queue that reads time from now
func NewMemoryQueueWithClock(now func() time.Time) *MemoryQueue {
	return &MemoryQueue{now: now, entries: make(map[string]*memoryEntry)}
}

func (q *MemoryQueue) Enqueue(_ context.Context, order *domain.Order, cause error) error {
	if err := ValidateOrder(order); err != nil {
		return err
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if e, ok := q.entries[order.TransactionID]; ok {
		if !e.resolved {
			e.LastError = causeText(cause)
		}
		return nil
	}

	now := q.now()
	q.entries[order.TransactionID] = &memoryEntry{Entry: Entry{
		Order:         order,
		LastError:     causeText(cause),
		EnqueuedAt:    now,
		NextAttemptAt: now,
	}}
	return nil
}

func (q *MemoryQueue) Claim(_ context.Context, transactionID string) (*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[transactionID]
	if !ok {
		return nil, ErrNotQueued
	}
	if e.resolved {
		return nil, ErrResolved
	}
	now := q.now()
	if q.held(e, now) {
		return nil, ErrAlreadyClaimed
	}
	e.ClaimedAt = &now
	return e.copy(), nil
}

func (q *MemoryQueue) ClaimDue(_ context.Context, now time.Time, limit int) ([]*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var due []*memoryEntry
	for _, e := range q.entries {
		if e.resolved || q.held(e, now) || e.NextAttemptAt.After(now) {
			continue
		}
		due = append(due, e)
	}
	sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]*Entry, 0, len(due))
	for _, e := range due {
		at := now
		e.ClaimedAt = &at
		claimed = append(claimed, e.copy())
	}
	return claimed, nil
}

func (q *MemoryQueue) Resolve(_ context.Context, transactionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[transactionID]
	if !ok {
		return ErrNotQueued
	}
	e.resolved = true
	e.ClaimedAt = nil
	return nil
}

func (q *MemoryQueue) Release(_ context.Context, transactionID string, cause error, retryAt time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	e, ok := q.entries[transactionID]
	if !ok {
		return ErrNotQueued
	}
	if e.resolved {
		return ErrResolved
	}
	e.Attempts++
	e.LastError = causeText(cause)
	e.NextAttemptAt = retryAt
	e.ClaimedAt = nil
	return nil
}

func (q *MemoryQueue) Pending(_ context.Context) ([]*Entry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*Entry, 0, len(q.entries))
	for _, e := range q.entries {
		if !e.resolved {
			out = append(out, e.copy())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EnqueuedAt.Before(out[j].EnqueuedAt) })
	return out, nil
}

func (q *MemoryQueue) held(e *memoryEntry, now time.Time) bool {
	return e.ClaimedAt != nil && now.Sub(*e.ClaimedAt) < ClaimLease
}

func (e *memoryEntry) copy() *Entry {
	c := e.Entry
	if e.ClaimedAt != nil {
		at := *e.ClaimedAt
		c.ClaimedAt = &at
	}
	return &c
}
