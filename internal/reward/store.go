package reward

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vietddude/stepbridge/internal/core/domain"
)

// Fetcher loads the current tier list from the backend.
type Fetcher interface {
	Rewards(ctx context.Context) ([]domain.RewardTier, error)
}

// Store is the process-wide catalog holder. Readers get whole snapshots; a refresh
// swaps the pointer and never mutates a published snapshot.
type Store struct {
	fetcher Fetcher
	group   singleflight.Group

	current   atomic.Pointer[Catalog]
	fetchedAt atomic.Int64
}

// NewStore creates an empty store.
func NewStore(f Fetcher) *Store {
	return &Store{fetcher: f}
}

// Refresh fetches a fresh snapshot and publishes it. Concurrent callers share one fetch.
func (s *Store) Refresh(ctx context.Context) (*Catalog, error) {
	v, err, _ := s.group.Do("rewards", func() (any, error) {
		tiers, err := s.fetcher.Rewards(ctx)
		if err != nil {
			return nil, err
		}
		cat := NewCatalog(tiers)
		s.current.Store(cat)
		s.fetchedAt.Store(time.Now().UnixNano())
		return cat, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Catalog), nil
}

// Current returns the last published snapshot, or nil before the first refresh.
func (s *Store) Current() *Catalog {
	return s.current.Load()
}

// FetchedAt returns when the current snapshot was fetched.
func (s *Store) FetchedAt() time.Time {
	ns := s.fetchedAt.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}
