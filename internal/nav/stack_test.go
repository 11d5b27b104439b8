package nav

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// screens simulates a host UI: opening a screen pushes the one being left.
type screens struct {
	reg     *Registry
	session string
	current Entry
	opened  []Entry
}

func (s *screens) open(t Transition, e Entry) {
	s.reg.PushCurrent(s.session, s.current, t)
	s.current = e
	s.opened = append(s.opened, e)
}

func (s *screens) Replay(t Transition, e Entry) error {
	s.open(t, e)
	return nil
}

func newScreens() *screens {
	reg := NewRegistry(nil)
	return &screens{reg: reg, session: reg.NewSession()}
}

func TestGoBackRestoresExactEntry(t *testing.T) {
	s := newScreens()
	list := PlayerList([]string{"alex", "sam"}, "a", 2, 41, domain.ActionBan)

	s.open(Transition{}, Admin())
	s.open(Transition{}, list)
	s.open(Transition{}, Confirm(domain.ActionBan, "alex", true))
	require.Equal(t, 2, s.reg.Depth(s.session))

	fallbacks := 0
	require.NoError(t, s.reg.GoBack(s.session, s, func() { fallbacks++ }))
	assert.Equal(t, list, s.current)
	assert.Equal(t, 0, fallbacks)
	assert.Equal(t, 1, s.reg.Depth(s.session), "replay must not push")

	require.NoError(t, s.reg.GoBack(s.session, s, func() { fallbacks++ }))
	assert.Equal(t, Admin(), s.current)
	assert.Equal(t, 0, s.reg.Depth(s.session))
}

func TestGoBackEmptyStackRunsFallbackOnce(t *testing.T) {
	s := newScreens()
	fallbacks := 0
	assert.NotPanics(t, func() {
		_ = s.reg.GoBack(s.session, s, func() { fallbacks++ })
	})
	assert.Equal(t, 1, fallbacks)
	assert.Empty(t, s.opened)
}

func TestGoBackUnknownKindRunsFallback(t *testing.T) {
	s := newScreens()
	s.reg.PushCurrent(s.session, Entry{Kind: "lectern"}, Transition{})

	fallbacks := 0
	require.NoError(t, s.reg.GoBack(s.session, s, func() { fallbacks++ }))
	assert.Equal(t, 1, fallbacks)
	assert.Empty(t, s.opened)
}

func TestReplayFailureDoesNotSuppressLaterPushes(t *testing.T) {
	reg := NewRegistry(nil)
	id := reg.NewSession()
	reg.PushCurrent(id, Settings(), Transition{})
	reg.PushCurrent(id, Rewards(), Transition{})

	boom := ReplayerFunc(func(tr Transition, e Entry) error { panic("screen crashed") })
	fallbacks := 0
	err := reg.GoBack(id, boom, func() { fallbacks++ })
	require.Error(t, err)
	assert.Equal(t, 1, fallbacks)

	var replaying bool
	failing := ReplayerFunc(func(tr Transition, e Entry) error {
		replaying = tr.Replaying
		return errors.New("backend down")
	})
	require.Error(t, reg.GoBack(id, failing, func() { fallbacks++ }))
	assert.True(t, replaying)
	assert.Equal(t, 2, fallbacks)

	// A normal transition still records history.
	assert.True(t, reg.PushCurrent(id, Admin(), Transition{}))
	assert.Equal(t, 1, reg.Depth(id))
}

func TestPushCurrentIgnoresEmptyScreen(t *testing.T) {
	reg := NewRegistry(nil)
	id := reg.NewSession()
	assert.False(t, reg.PushCurrent(id, Entry{}, Transition{}))
	assert.Equal(t, 0, reg.Depth(id))
}

func TestSessionsAreIsolatedAndEnd(t *testing.T) {
	reg := NewRegistry(nil)
	a, b := reg.NewSession(), reg.NewSession()
	reg.PushCurrent(a, ActionMenu("alex"), Transition{})
	assert.Equal(t, 1, reg.Depth(a))
	assert.Equal(t, 0, reg.Depth(b))

	reg.End(a)
	assert.Equal(t, 0, reg.Depth(a))
}

func TestStackIsBoundedAndCopiesPlayers(t *testing.T) {
	reg := NewRegistry(nil)
	id := reg.NewSession()
	players := []string{"alex"}
	reg.PushCurrent(id, PlayerList(players, "", 0, 1, domain.ActionNone), Transition{})
	players[0] = "mutated"

	top, ok := reg.Peek(id)
	require.True(t, ok)
	assert.Equal(t, []string{"alex"}, top.Players)

	for i := 0; i < MaxDepth+10; i++ {
		reg.PushCurrent(id, ClaimStatus("sam"), Transition{})
	}
	assert.Equal(t, MaxDepth, reg.Depth(id))
}
