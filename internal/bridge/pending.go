package bridge

import (
	"context"
	"time"
)

// DefaultPendingDelay is how long work may run before the "processing" notice shows.
const DefaultPendingDelay = time.Second

// WithPending runs work like Submit and calls notify on the main loop if the work is
// still running after delay. The notice is cancelled when the work completes, whether it
// succeeded or failed; completion and the notice are ordered on the main loop, so a
// notice never shows after the result.
func (s *Scheduler) WithPending(
	ctx context.Context,
	delay time.Duration,
	notify func(),
	work WorkFunc,
	onDone func(any, error),
) *Handle {
	if delay <= 0 {
		delay = DefaultPendingDelay
	}

	// Only touched on the main loop.
	completed := false
	timer := s.Schedule(delay, func() {
		if !completed && notify != nil {
			notify()
		}
	})

	return s.Submit(ctx, work, func(v any, err error) {
		completed = true
		timer.Stop()
		if onDone != nil {
			onDone(v, err)
		}
	})
}
