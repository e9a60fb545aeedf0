package core

import (
	"context"
	"sync"
	"time"
)

const roomQueueSize = 64

// Sequencer runs jobs for the same room one at a time, in submission order.
// Each room gets a worker goroutine on first use; the worker exits after
// idling so rooms nobody draws in cost nothing.
type Sequencer struct {
	ctx  context.Context
	idle time.Duration

	mu     sync.Mutex
	queues map[int64]*roomQueue
	wg     sync.WaitGroup
}

type roomQueue struct {
	jobs    chan func()
	pending int // guarded by Sequencer.mu
}

// NewSequencer creates a sequencer whose workers stop when ctx is done.
func NewSequencer(ctx context.Context, idle time.Duration) *Sequencer {
	if idle <= 0 {
		idle = time.Minute
	}
	return &Sequencer{
		ctx:    ctx,
		idle:   idle,
		queues: make(map[int64]*roomQueue),
	}
}

// Submit queues job behind every job previously submitted for roomID.
// It returns false if the sequencer is shutting down.
func (s *Sequencer) Submit(roomID int64, job func()) bool {
	s.mu.Lock()
	if s.ctx.Err() != nil {
		s.mu.Unlock()
		return false
	}
	q, ok := s.queues[roomID]
	if !ok {
		q = &roomQueue{jobs: make(chan func(), roomQueueSize)}
		s.queues[roomID] = q
		s.wg.Add(1)
		go s.run(roomID, q)
	}
	q.pending++
	s.mu.Unlock()

	select {
	case q.jobs <- job:
		return true
	case <-s.ctx.Done():
		return false
	}
}

func (s *Sequencer) run(roomID int64, q *roomQueue) {
	defer s.wg.Done()

	timer := time.NewTimer(s.idle)
	defer timer.Stop()

	for {
		select {
		case job := <-q.jobs:
			s.mu.Lock()
			q.pending--
			s.mu.Unlock()

			job()

			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer.Reset(s.idle)
		case <-timer.C:
			s.mu.Lock()
			if q.pending == 0 {
				delete(s.queues, roomID)
				s.mu.Unlock()
				return
			}
			s.mu.Unlock()
			timer.Reset(s.idle)
		case <-s.ctx.Done():
			return
		}
	}
}

// Active returns the number of rooms with a running worker.
func (s *Sequencer) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.queues)
}

// Wait blocks until every worker has exited. Call it after ctx is done.
func (s *Sequencer) Wait() {
	s.wg.Wait()
}
