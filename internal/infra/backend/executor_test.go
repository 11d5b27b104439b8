package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// flakyDoer fails the first n calls with a transport error, then delegates.
type flakyDoer struct {
	failures int
	next     Doer
	calls    atomic.Int32
}

func (d *flakyDoer) Do(req *http.Request) (*http.Response, error) {
	n := d.calls.Add(1)
	if int(n) <= d.failures {
		return nil, errors.New("connection refused")
	}
	return d.next.Do(req)
}

type okDoer struct{ body string }

func (d okDoer) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Status:     "200 OK",
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Header:     http.Header{},
	}, nil
}

// recordingSleep records requested backoff delays without sleeping.
type recordingSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (r *recordingSleep) Sleep(ctx context.Context, d time.Duration) error {
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return ctx.Err()
}

func newTestExecutor(doer Doer, sleeper *recordingSleep) *Executor {
	return NewExecutor("http://backend.test", doer, NewStaticCredentials("key"), WithSleep(sleeper.Sleep))
}

func TestExecutor_RetriesTransportFailures(t *testing.T) {
	doer := &flakyDoer{failures: 2, next: okDoer{body: `{"ok":true}`}}
	sleeper := &recordingSleep{}
	exec := newTestExecutor(doer, sleeper)

	body, err := exec.Execute(context.Background(), Get("rewards", "/v1/servers/rewards", nil, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != `{"ok":true}` {
		t.Errorf("unexpected body %q", body)
	}
	if got := doer.calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if len(sleeper.delays) != 2 {
		t.Fatalf("expected 2 backoffs, got %v", sleeper.delays)
	}
	if sleeper.delays[0] < 250*time.Millisecond || sleeper.delays[1] < 500*time.Millisecond {
		t.Errorf("expected delays >= 250ms and >= 500ms, got %v", sleeper.delays)
	}
}

func TestExecutor_NonRetryableSingleAttempt(t *testing.T) {
	doer := &flakyDoer{failures: 5, next: okDoer{body: "x"}}
	sleeper := &recordingSleep{}
	exec := newTestExecutor(doer, sleeper)

	_, err := exec.Execute(context.Background(), Post("claim-reward", "/v1/servers/players/a/claim-reward", nil, nil, false))

	var netErr *domain.NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if netErr.Attempts != 1 {
		t.Errorf("expected 1 attempt in error, got %d", netErr.Attempts)
	}
	if got := doer.calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 attempt, got %d", got)
	}
	if len(sleeper.delays) != 0 {
		t.Errorf("expected no backoff, got %v", sleeper.delays)
	}
}

func TestExecutor_NoSleepAfterFinalAttempt(t *testing.T) {
	doer := &flakyDoer{failures: 10, next: okDoer{}}
	sleeper := &recordingSleep{}
	exec := newTestExecutor(doer, sleeper)

	_, err := exec.Execute(context.Background(), Get("health", "/health", nil, true))
	if err == nil {
		t.Fatal("expected error")
	}
	if got := doer.calls.Load(); got != 3 {
		t.Errorf("expected 3 attempts, got %d", got)
	}
	if len(sleeper.delays) != 2 {
		t.Errorf("expected 2 backoffs (none after last attempt), got %v", sleeper.delays)
	}
}

func TestExecutor_RetriesGatewayErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"tiers":[]}`))
	}))
	defer server.Close()

	sleeper := &recordingSleep{}
	exec := NewExecutor(server.URL, server.Client(), NewStaticCredentials("key"), WithSleep(sleeper.Sleep))

	body, err := exec.Execute(context.Background(), Get("rewards", "/v1/servers/rewards", nil, true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != `{"tiers":[]}` {
		t.Errorf("unexpected body %q", body)
	}
	if hits.Load() != 3 {
		t.Errorf("expected 3 hits, got %d", hits.Load())
	}
}

func TestExecutor_DoesNotRetryClientErrors(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`player not found`))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, server.Client(), NewStaticCredentials("key"), WithSleep((&recordingSleep{}).Sleep))

	_, err := exec.Execute(context.Background(), Get("yesterday-steps", "/v1/servers/players/x/yesterday-steps", nil, true))

	var remoteErr *domain.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Code != 404 {
		t.Errorf("expected 404, got %d", remoteErr.Code)
	}
	if remoteErr.Error() != "Error: 404 - Not Found - player not found" {
		t.Errorf("unexpected message %q", remoteErr.Error())
	}
	if hits.Load() != 1 {
		t.Errorf("expected 1 hit, got %d", hits.Load())
	}
}

func TestExecutor_EmptyBodyNormalized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, server.Client(), NewStaticCredentials("key"))

	body, err := exec.Execute(context.Background(), Delete("unban", "/v1/servers/players/x/ban", true))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != NoResponseBody {
		t.Errorf("expected %q, got %q", NoResponseBody, body)
	}
}

func TestExecutor_SendsAPIKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get(APIKeyHeader); got != "secret" {
			t.Errorf("expected api key header, got %q", got)
		}
		_, _ = w.Write([]byte("{}"))
	}))
	defer server.Close()

	exec := NewExecutor(server.URL, server.Client(), NewStaticCredentials("secret"))
	if _, err := exec.Execute(context.Background(), Get("info", "/v1/servers/info", nil, true)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExecutor_RequiresCredential(t *testing.T) {
	exec := NewExecutor("http://backend.test", okDoer{}, NewStaticCredentials(""))

	_, err := exec.Execute(context.Background(), Get("info", "/v1/servers/info", nil, true))
	if !errors.Is(err, domain.ErrNoCredential) {
		t.Fatalf("expected ErrNoCredential, got %v", err)
	}
}

func TestExecutor_ContextCancelDuringBackoff(t *testing.T) {
	doer := &flakyDoer{failures: 10, next: okDoer{}}
	exec := NewExecutor("http://backend.test", doer, NewStaticCredentials("key"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := exec.Execute(ctx, Get("health", "/health", nil, true))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > 200*time.Millisecond {
		t.Errorf("expected backoff to abort promptly, took %v", time.Since(start))
	}
	if doer.calls.Load() != 1 {
		t.Errorf("expected 1 attempt before cancel, got %d", doer.calls.Load())
	}
}
