package capture

import (
	"context"
	"sync"
)

// FrameScheduler runs work at the frame-complete boundary of the render loop.
type FrameScheduler interface {
	// AtFrameEnd queues fn for the next frame boundary and waits until it has
	// run. fn executes on the render loop and must return promptly.
	AtFrameEnd(ctx context.Context, fn func(Frame) error) error
}

type frameJob struct {
	fn   func(Frame) error
	done chan error
}

// FrameQueue is a FrameScheduler driven by the render loop calling
// RunFrameEnd once every frame has been drawn.
type FrameQueue struct {
	mu   sync.Mutex
	jobs []*frameJob
}

func NewFrameQueue() *FrameQueue {
	return &FrameQueue{}
}

func (q *FrameQueue) AtFrameEnd(ctx context.Context, fn func(Frame) error) error {
	job := &frameJob{fn: fn, done: make(chan error, 1)}
	q.mu.Lock()
	q.jobs = append(q.jobs, job)
	q.mu.Unlock()

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		if q.remove(job) {
			return ctx.Err()
		}
		// Already picked up by the loop; it finishes within this frame.
		return <-job.done
	}
}

func (q *FrameQueue) remove(job *frameJob) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, j := range q.jobs {
		if j == job {
			q.jobs = append(q.jobs[:i], q.jobs[i+1:]...)
			return true
		}
	}
	return false
}

// RunFrameEnd runs every job queued before this call against f. Jobs queued
// while running wait for the next frame.
func (q *FrameQueue) RunFrameEnd(f Frame) {
	q.mu.Lock()
	jobs := q.jobs
	q.jobs = nil
	q.mu.Unlock()

	for _, job := range jobs {
		job.done <- job.fn(f)
	}
}

// Pending reports how many jobs wait for the next frame.
func (q *FrameQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}
