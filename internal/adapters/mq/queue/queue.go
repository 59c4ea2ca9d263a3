// Package queue defines the contract for enqueuing and consuming async I/O
// jobs: publishes, lookups and exports that must not block the session.
//
// The in-memory implementation is a bounded channel; enqueue never blocks.
package queue

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/clicker/pkg/metrics"
)

// Default queue configuration constants.
const (
	defaultQueueCapacity = 1024
	defaultBufferSize    = 1024
)

// Job kinds.
const (
	KindPublish = "publish"
	KindQuery   = "query"
	KindExport  = "export"
)

// Job is a unit of async I/O. Run executes it; Done, when set, receives the
// result on the worker goroutine.
type Job struct {
	ID         uuid.UUID
	Kind       string
	Run        func(ctx context.Context) error
	Done       func(err error)
	EnqueuedAt time.Time
}

// NewJob builds a job with a fresh id.
func NewJob(kind string, run func(ctx context.Context) error, done func(err error)) Job {
	return Job{ID: uuid.New(), Kind: kind, Run: run, Done: done}
}

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a job. It returns ErrBackpressure when the queue is full
	// and ErrClosed after Close.
	Enqueue(ctx context.Context, j Job) error

	// Dequeue returns a channel that will receive jobs as they become available.
	Dequeue(ctx context.Context) <-chan Job

	// Len returns the current number of queued jobs.
	Len(ctx context.Context) int

	// Close gracefully shuts down the queue.
	// After closing, no new jobs can be enqueued and the dequeue channel will be closed.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	jobs       chan Job
	capacity   int
	bufferSize int
	mu         sync.RWMutex
	closed     bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{
		capacity:   defaultQueueCapacity,
		bufferSize: defaultBufferSize,
	}
	for _, opt := range opts {
		opt(q)
	}
	q.jobs = make(chan Job, max(q.bufferSize, q.capacity))

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)
	return q
}

// Enqueue adds a job to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, j Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordQueueEnqueueError()
		return ErrClosed
	}
	if len(q.jobs) >= q.capacity {
		metrics.RecordQueueEnqueueError()
		return ErrBackpressure
	}
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	j.EnqueuedAt = time.Now()

	select {
	case q.jobs <- j:
		metrics.UpdateQueueSize(len(q.jobs))
		return nil
	case <-ctx.Done():
		metrics.RecordQueueEnqueueError()
		return ctx.Err()
	default:
		metrics.RecordQueueEnqueueError()
		return ErrBackpressure
	}
}

// Dequeue returns a channel that will receive jobs as they become available.
// The channel closes when ctx is done or the queue is closed. A job taken off
// the queue but not handed over before ctx ends is put back.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Job {
	out := make(chan Job)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case j, ok := <-q.jobs:
				if !ok {
					return
				}
				select {
				case out <- j:
					metrics.UpdateQueueSize(len(q.jobs))
				case <-ctx.Done():
					q.requeue(j)
					return
				}
			}
		}
	}()
	return out
}

func (q *InMemoryQueue) requeue(j Job) { //nolint:gocritic // hugeParam
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return
	}
	select {
	case q.jobs <- j:
	default:
		metrics.RecordQueueEnqueueError()
	}
}

// Len returns the current number of queued jobs.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.jobs)
	metrics.UpdateQueueSize(size)
	return size
}

// Capacity returns the configured capacity.
func (q *InMemoryQueue) Capacity() int { return q.capacity }

// Close gracefully shuts down the queue.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.jobs)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
