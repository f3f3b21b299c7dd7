package solver

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

// SearchPool bounds the in-process searches alive at once. A search abandoned at its time limit cannot be
// interrupted, so it keeps its slot until it ends on its own. A nil pool bounds nothing.
type SearchPool struct {
	slots          *semaphore.Weighted
	size           int64
	running        atomic.Int64
	abandoned      atomic.Int64
	abandonedTotal atomic.Int64
}

func NewSearchPool(size int64) *SearchPool {
	size = max(size, 1)
	return &SearchPool{
		slots: semaphore.NewWeighted(size),
		size:  size,
	}
}

const (
	searchRunning int32 = iota
	searchFinished
	searchAbandoned
)

// searchTicket tracks one search from the moment it holds a slot
type searchTicket struct {
	pool  *SearchPool
	state atomic.Int32
}

// acquire blocks until a slot is free or ctx is done
func (pool *SearchPool) acquire(ctx context.Context) (*searchTicket, error) {
	if pool != nil {
		if err := pool.slots.Acquire(ctx, 1); err != nil {
			return nil, err
		}
		pool.running.Add(1)
	}
	return &searchTicket{pool: pool}, nil
}

// abandon marks a search whose result is no longer awaited
func (ticket *searchTicket) abandon() {
	if ticket.state.CompareAndSwap(searchRunning, searchAbandoned) && ticket.pool != nil {
		ticket.pool.abandoned.Add(1)
		ticket.pool.abandonedTotal.Add(1)
	}
}

// finish gives the slot back, it is called by the search goroutine once the search returns
func (ticket *searchTicket) finish() {
	finished := ticket.state.CompareAndSwap(searchRunning, searchFinished)
	if ticket.pool == nil {
		return
	}
	if !finished {
		ticket.pool.abandoned.Add(-1)
	}
	ticket.pool.running.Add(-1)
	ticket.pool.slots.Release(1)
}

func (pool *SearchPool) Size() int64 {
	return pool.size
}

// Running counts the searches holding a slot, abandoned ones included
func (pool *SearchPool) Running() int64 {
	return pool.running.Load()
}

// Abandoned counts the searches still running after their caller gave up on them
func (pool *SearchPool) Abandoned() int64 {
	return pool.abandoned.Load()
}

func (pool *SearchPool) AbandonedTotal() int64 {
	return pool.abandonedTotal.Load()
}
