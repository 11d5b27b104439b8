// Package bridge moves work between the host's single main loop and a bounded
// background pool.
//
// Everything that mutates host state (world, UI, navigation) runs on the main loop.
// Blocking I/O runs on workers. A worker that needs to touch host state hands a
// continuation back with RunOnMain or CallOnMain.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/vietddude/stepbridge/internal/metrics"
)

// ErrStopped is returned for work submitted after Stop.
var ErrStopped = errors.New("scheduler stopped")

// WorkFunc is blocking work run on the background pool.
type WorkFunc func(ctx context.Context) (any, error)

// Config sizes the scheduler.
type Config struct {
	Workers   int
	QueueSize int
}

// Scheduler owns the main loop queue and the worker pool.
type Scheduler struct {
	queue chan func()
	sem   *semaphore.Weighted
	log   *slog.Logger

	mu      sync.Mutex
	closing bool
	wg      sync.WaitGroup

	done     chan struct{} // closed when the main loop must drain and exit
	exited   chan struct{} // closed when the main loop has exited
	running  atomic.Bool
	stopOnce sync.Once
}

// NewScheduler creates a scheduler. Call Start, or drive the queue with Drain from the
// host's own tick.
func NewScheduler(cfg Config, log *slog.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		queue:  make(chan func(), cfg.QueueSize),
		sem:    semaphore.NewWeighted(int64(cfg.Workers)),
		log:    log.With("component", "scheduler"),
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Start runs the main loop in its own goroutine until ctx ends or Stop is called.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		return
	}
	go s.loop(ctx)
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.exited)
	for {
		select {
		case <-ctx.Done():
			s.Drain()
			return
		case <-s.done:
			s.Drain()
			return
		case fn := <-s.queue:
			metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
			s.exec(fn)
		}
	}
}

// Drain runs every queued main-loop task and returns how many ran. Hosts that own
// their tick loop call this once per tick instead of Start.
func (s *Scheduler) Drain() int {
	n := 0
	for {
		select {
		case fn := <-s.queue:
			s.exec(fn)
			n++
		default:
			metrics.SchedulerQueueDepth.Set(0)
			return n
		}
	}
}

func (s *Scheduler) exec(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Main loop task panicked", "panic", r)
		}
	}()
	fn()
}

// RunOnMain queues fn for the main loop.
func (s *Scheduler) RunOnMain(fn func()) error {
	select {
	case <-s.done:
		return ErrStopped
	default:
	}
	select {
	case s.queue <- fn:
		metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
		return nil
	case <-s.done:
		return ErrStopped
	}
}

// CallOnMain runs fn on the main loop and waits for it. Once queued before the loop
// exits, fn always runs; ctx only bounds the wait for queue space. Panics in fn are returned as errors.
// Must not be called from the main loop itself.
func (s *Scheduler) CallOnMain(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	task := func() { result <- safeCall(fn) }

	select {
	case s.queue <- task:
		metrics.SchedulerQueueDepth.Set(float64(len(s.queue)))
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-s.exited:
		// The loop drains on exit, so the result may still be there.
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// RunAsync runs work on the pool and returns a handle to its result.
func (s *Scheduler) RunAsync(ctx context.Context, work WorkFunc) *Handle {
	h := newHandle()

	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		h.complete(nil, ErrStopped)
		return h
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		if err := s.sem.Acquire(ctx, 1); err != nil {
			h.complete(nil, err)
			return
		}
		defer s.sem.Release(1)
		h.complete(safeWork(ctx, work))
	}()
	return h
}

// Submit runs work on the pool, then onDone on the main loop with its result.
func (s *Scheduler) Submit(ctx context.Context, work WorkFunc, onDone func(any, error)) *Handle {
	h := s.RunAsync(ctx, work)
	if onDone == nil {
		return h
	}
	go func() {
		<-h.Done()
		v, err := h.Result()
		if qErr := s.RunOnMain(func() { onDone(v, err) }); qErr != nil {
			s.log.Warn("Dropped continuation", "error", qErr, "result_error", err)
		}
	}()
	return h
}

// Schedule runs fn on the main loop after delay. The returned Timer cancels it.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) *Timer {
	t := &Timer{}
	t.timer = time.AfterFunc(delay, func() {
		if t.stopped.Load() {
			return
		}
		if err := s.RunOnMain(func() {
			if !t.stopped.Load() {
				fn()
			}
		}); err != nil {
			s.log.Debug("Scheduled task dropped", "error", err)
		}
	})
	return t
}

// Stop refuses new background work, waits for in-flight workers, then drains the
// main loop queue and stops it.
func (s *Scheduler) Stop(ctx context.Context) error {
	var err error
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.closing = true
		s.mu.Unlock()

		workersDone := make(chan struct{})
		go func() {
			s.wg.Wait()
			close(workersDone)
		}()
		select {
		case <-workersDone:
		case <-ctx.Done():
			err = fmt.Errorf("waiting for workers: %w", ctx.Err())
		}

		close(s.done)
		if s.running.Load() {
			select {
			case <-s.exited:
			case <-ctx.Done():
				if err == nil {
					err = fmt.Errorf("waiting for main loop: %w", ctx.Err())
				}
			}
		} else {
			s.Drain()
		}
	})
	return err
}

// Timer is a cancellable scheduled task.
type Timer struct {
	timer   *time.Timer
	stopped atomic.Bool
}

// Stop cancels the task. It is safe to call after the task ran.
func (t *Timer) Stop() {
	t.stopped.Store(true)
	t.timer.Stop()
}

// Handle is the result of background work.
type Handle struct {
	done chan struct{}
	val  any
	err  error
}

func newHandle() *Handle {
	return &Handle{done: make(chan struct{})}
}

func (h *Handle) complete(v any, err error) {
	h.val, h.err = v, err
	close(h.done)
}

// Done is closed when the work finished.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Result returns the outcome. Only valid after Done is closed.
func (h *Handle) Result() (any, error) {
	return h.val, h.err
}

// Wait blocks until the work finished or ctx ends.
func (h *Handle) Wait(ctx context.Context) (any, error) {
	select {
	case <-h.done:
		return h.val, h.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func safeCall(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn()
}

func safeWork(ctx context.Context, work WorkFunc) (v any, err error) {
	defer func() {
		if r := recover(); r != nil {
			v, err = nil, fmt.Errorf("panic: %v", r)
		}
	}()
	return work(ctx)
}
