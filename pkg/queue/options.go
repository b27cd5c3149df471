package queue

import (
	"runtime"
	"sync/atomic"
)

var defaultParallelism atomic.Int64

// SetDefaultParallelism sets the process-wide parallelism cap used by queues created without
// WithParallelism. A value lower than 1 resets it to the CPU count.
func SetDefaultParallelism(n int) {
	defaultParallelism.Store(int64(n))
}

// DefaultParallelism returns the process-wide parallelism cap.
func DefaultParallelism() int {
	n := int(defaultParallelism.Load())
	if n < 1 {
		return runtime.NumCPU()
	}

	return n
}

// Option configures a Queue created by New.
type Option func(q *Queue)

// WithParallelism sets the maximum number of tasks in flight.
func WithParallelism(n int) Option {
	return func(q *Queue) {
		if n > 0 {
			q.parallelism = n
		}
	}
}

// WithSkip makes Drain return the enqueued output paths without running any task.
func WithSkip(skip bool) Option {
	return func(q *Queue) {
		q.skip = skip
	}
}

// WithProgress reports drain progress to p.
func WithProgress(p Progress) Option {
	return func(q *Queue) {
		if p != nil {
			q.progress = p
		}
	}
}

// WithRefill starts a new task as soon as a slot frees instead of waiting for the whole batch.
func WithRefill() Option {
	return func(q *Queue) {
		q.refill = true
	}
}
