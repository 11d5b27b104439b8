package redis

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestKeysUseNormalizedPlayer(t *testing.T) {
	if got := optInKey("  Alex "); got != "autoclaim:alex" {
		t.Errorf("optInKey = %q", got)
	}
	if got := claimLockKey("ALEX"); got != "claiming:alex" {
		t.Errorf("claimLockKey = %q", got)
	}
}

func TestConfigEnabled(t *testing.T) {
	if (Config{}).Enabled() {
		t.Error("empty config should be disabled")
	}
	if !(Config{URL: "redis://localhost:6379/0"}).Enabled() {
		t.Error("config with URL should be enabled")
	}
}

// Live tests run only when STEPBRIDGE_REDIS_URL points at a disposable Redis.
func liveClient(t *testing.T) *Client {
	t.Helper()
	url := os.Getenv("STEPBRIDGE_REDIS_URL")
	if url == "" {
		t.Skip("STEPBRIDGE_REDIS_URL not set")
	}
	c, err := NewClient(Config{URL: url})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestLiveOptInRoundTrip(t *testing.T) {
	c := liveClient(t)
	ctx := context.Background()
	repo := NewOptInRepo(c)
	player := "stepbridge-test-" + time.Now().Format("150405.000")
	t.Cleanup(func() { c.rdb.Del(context.Background(), optInKey(player)) })

	if err := repo.SetEnabled(ctx, player, 10000, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	if err := repo.SetEnabled(ctx, player, 5000, true); err != nil {
		t.Fatalf("SetEnabled: %v", err)
	}
	got, err := repo.Enabled(ctx, player)
	if err != nil {
		t.Fatalf("Enabled: %v", err)
	}
	if len(got) != 2 || got[0] != 5000 || got[1] != 10000 {
		t.Fatalf("unexpected thresholds: %v", got)
	}
	_ = repo.SetEnabled(ctx, player, 5000, false)
	_ = repo.SetEnabled(ctx, player, 10000, false)
	if ok, _ := repo.HasAny(ctx, player); ok {
		t.Error("expected no opt-ins")
	}
}

func TestLiveClaimLockExclusive(t *testing.T) {
	c := liveClient(t)
	ctx := context.Background()
	locker := NewClaimLocker(c, 5*time.Second)
	player := "stepbridge-lock-" + time.Now().Format("150405.000")

	unlock, err := locker.Lock(ctx, player)
	if err != nil {
		t.Fatalf("Lock: %v", err)
	}
	if _, err := locker.Lock(ctx, player); err != ErrLockHeld {
		t.Fatalf("expected ErrLockHeld, got %v", err)
	}
	unlock()
	unlock2, err := locker.Lock(ctx, player)
	if err != nil {
		t.Fatalf("Lock after release: %v", err)
	}
	unlock2()
}
