package memory

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/infra/storage"
)

type MemoryStorage struct {
	pending map[string]*domain.PendingCommit
	optIns  map[string]map[int64]struct{}
	mu      sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		pending: make(map[string]*domain.PendingCommit),
		optIns:  make(map[string]map[int64]struct{}),
	}
}

// -----------------------------------------------------------------------------
// Pending Commit Repository
// -----------------------------------------------------------------------------

type PendingCommitRepo struct {
	store *MemoryStorage
}

func NewPendingCommitRepo(store *MemoryStorage) *PendingCommitRepo {
	return &PendingCommitRepo{store: store}
}

func (r *PendingCommitRepo) Add(ctx context.Context, pc *domain.PendingCommit) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if pc.ID == "" {
		pc.ID = uuid.NewString()
	}
	now := time.Now()
	if pc.CreatedAt.IsZero() {
		pc.CreatedAt = now
	}
	if pc.LastTry.IsZero() {
		pc.LastTry = now
	}
	if pc.Status == "" {
		pc.Status = domain.PendingCommitStatusPending
	}
	cp := *pc
	r.store.pending[pc.ID] = &cp
	return nil
}

func (r *PendingCommitRepo) ListPending(ctx context.Context, limit int) ([]*domain.PendingCommit, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var result []*domain.PendingCommit
	for _, pc := range r.store.pending {
		if pc.Status == domain.PendingCommitStatusPending {
			cp := *pc
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].LastTry.Before(result[j].LastTry)
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *PendingCommitRepo) IncrementRetry(ctx context.Context, id string, errMsg string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pc, ok := r.store.pending[id]
	if !ok {
		return storage.ErrPendingCommitNotFound
	}
	pc.RetryCount++
	pc.Error = errMsg
	pc.LastTry = time.Now()
	return nil
}

func (r *PendingCommitRepo) MarkResolved(ctx context.Context, id string) error {
	return r.setStatus(id, domain.PendingCommitStatusResolved)
}

func (r *PendingCommitRepo) MarkAbandoned(ctx context.Context, id string) error {
	return r.setStatus(id, domain.PendingCommitStatusAbandoned)
}

func (r *PendingCommitRepo) setStatus(id string, status domain.PendingCommitStatus) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	pc, ok := r.store.pending[id]
	if !ok {
		return storage.ErrPendingCommitNotFound
	}
	pc.Status = status
	return nil
}

func (r *PendingCommitRepo) CountPending(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	n := 0
	for _, pc := range r.store.pending {
		if pc.Status == domain.PendingCommitStatusPending {
			n++
		}
	}
	return n, nil
}

func (r *PendingCommitRepo) DeleteSettledBefore(ctx context.Context, t time.Time) (int64, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var n int64
	for id, pc := range r.store.pending {
		if pc.Status != domain.PendingCommitStatusPending && pc.LastTry.Before(t) {
			delete(r.store.pending, id)
			n++
		}
	}
	return n, nil
}

// -----------------------------------------------------------------------------
// Opt-In Repository
// -----------------------------------------------------------------------------

type OptInRepo struct {
	store *MemoryStorage
}

func NewOptInRepo(store *MemoryStorage) *OptInRepo {
	return &OptInRepo{store: store}
}

func (r *OptInRepo) Enabled(ctx context.Context, player string) ([]int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	set := r.store.optIns[domain.NormalizePlayer(player)]
	result := make([]int64, 0, len(set))
	for minSteps := range set {
		result = append(result, minSteps)
	}
	slices.Sort(result)
	return result, nil
}

func (r *OptInRepo) SetEnabled(ctx context.Context, player string, minSteps int64, on bool) error {
	key := domain.NormalizePlayer(player)
	if key == "" {
		return nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	set := r.store.optIns[key]
	if on {
		if set == nil {
			set = make(map[int64]struct{})
			r.store.optIns[key] = set
		}
		set[minSteps] = struct{}{}
		return nil
	}
	delete(set, minSteps)
	if len(set) == 0 {
		delete(r.store.optIns, key)
	}
	return nil
}

func (r *OptInRepo) HasAny(ctx context.Context, player string) (bool, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return len(r.store.optIns[domain.NormalizePlayer(player)]) > 0, nil
}
