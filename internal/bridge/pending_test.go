package bridge

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type eventLog struct {
	mu     sync.Mutex
	events []string
}

func (l *eventLog) add(e string) {
	l.mu.Lock()
	l.events = append(l.events, e)
	l.mu.Unlock()
}

func (l *eventLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.events...)
}

func TestWithPendingNotifiesSlowWork(t *testing.T) {
	s := startScheduler(t, Config{})

	var log eventLog
	done := make(chan struct{})
	s.WithPending(context.Background(), 20*time.Millisecond,
		func() { log.add("processing") },
		func(ctx context.Context) (any, error) {
			time.Sleep(150 * time.Millisecond)
			return "ok", nil
		},
		func(v any, err error) {
			log.add("done")
			close(done)
		})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("work did not complete")
	}
	assert.Equal(t, []string{"processing", "done"}, log.snapshot())
}

func TestWithPendingSkipsNoticeForFastWork(t *testing.T) {
	s := startScheduler(t, Config{})

	var log eventLog
	done := make(chan struct{})
	s.WithPending(context.Background(), 100*time.Millisecond,
		func() { log.add("processing") },
		func(ctx context.Context) (any, error) { return nil, nil },
		func(v any, err error) {
			log.add("done")
			close(done)
		})

	<-done
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, s.CallOnMain(context.Background(), func() error { return nil }))
	assert.Equal(t, []string{"done"}, log.snapshot())
}

func TestWithPendingCancelsNoticeOnFailure(t *testing.T) {
	s := startScheduler(t, Config{})

	var log eventLog
	done := make(chan struct{})
	s.WithPending(context.Background(), 100*time.Millisecond,
		func() { log.add("processing") },
		func(ctx context.Context) (any, error) { return nil, assert.AnError },
		func(v any, err error) {
			log.add("failed")
			close(done)
		})

	<-done
	time.Sleep(200 * time.Millisecond)
	require.NoError(t, s.CallOnMain(context.Background(), func() error { return nil }))
	assert.Equal(t, []string{"failed"}, log.snapshot())
}
