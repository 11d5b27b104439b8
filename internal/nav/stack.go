// Package nav keeps per-session back-navigation history for the admin UI.
package nav

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// MaxDepth bounds one session's history. The oldest entries are dropped first.
const MaxDepth = 64

// Transition describes how a screen is being opened. Screens opened while replaying
// history must not record themselves again.
type Transition struct {
	Replaying bool
}

// Replayer reopens the screen described by an entry. It must pass t to whatever
// screen it opens so that screen's PushCurrent is suppressed.
type Replayer interface {
	Replay(t Transition, e Entry) error
}

// ReplayerFunc adapts a function to Replayer.
type ReplayerFunc func(t Transition, e Entry) error

func (f ReplayerFunc) Replay(t Transition, e Entry) error { return f(t, e) }

// Registry owns one history stack per session.
type Registry struct {
	mu     sync.Mutex
	stacks map[string][]Entry
	log    *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		stacks: make(map[string][]Entry),
		log:    log.With("component", "nav"),
	}
}

// NewSession returns a fresh session id.
func (r *Registry) NewSession() string {
	return uuid.NewString()
}

// PushCurrent records the screen being left. It does nothing while replaying or when
// there is no current screen. Reports whether an entry was pushed.
func (r *Registry) PushCurrent(sessionID string, current Entry, t Transition) bool {
	if t.Replaying || current.Kind == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stack := append(r.stacks[sessionID], current.clone())
	if len(stack) > MaxDepth {
		stack = stack[len(stack)-MaxDepth:]
	}
	r.stacks[sessionID] = stack
	return true
}

// GoBack pops the latest entry and replays it. fallback runs exactly once instead when
// the stack is empty, the entry kind is unknown, or the replay fails.
func (r *Registry) GoBack(sessionID string, replayer Replayer, fallback func()) error {
	entry, ok := r.pop(sessionID)
	if !ok || !entry.Kind.Known() {
		if ok {
			r.log.Warn("Unknown navigation entry", "session", sessionID, "kind", string(entry.Kind))
		}
		runFallback(fallback)
		return nil
	}

	if err := replay(replayer, entry); err != nil {
		r.log.Warn("Navigation replay failed", "session", sessionID, "kind", string(entry.Kind), "error", err)
		runFallback(fallback)
		return err
	}
	return nil
}

// replay scopes the replaying flag to one call; a panicking screen is reported as an
// error.
func replay(replayer Replayer, e Entry) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("replay %s panicked: %v", e.Kind, rec)
		}
	}()
	return replayer.Replay(Transition{Replaying: true}, e)
}

func runFallback(fallback func()) {
	if fallback != nil {
		fallback()
	}
}

func (r *Registry) pop(sessionID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stack := r.stacks[sessionID]
	if len(stack) == 0 {
		return Entry{}, false
	}
	e := stack[len(stack)-1]
	r.stacks[sessionID] = stack[:len(stack)-1]
	return e, true
}

// Peek returns the latest entry without popping it.
func (r *Registry) Peek(sessionID string) (Entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stack := r.stacks[sessionID]
	if len(stack) == 0 {
		return Entry{}, false
	}
	return stack[len(stack)-1].clone(), true
}

// Depth returns how many entries the session can go back.
func (r *Registry) Depth(sessionID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stacks[sessionID])
}

// End discards the session's history.
func (r *Registry) End(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.stacks, sessionID)
}
