package memory

import (
	"context"
	"sync"
	"time"

	"github.com/fastygo/orderdesk/repository"
)

type lease struct {
	holder    string
	expiresAt time.Time
}

type leaseRepository struct {
	mu     sync.Mutex
	leases map[string]lease
	now    func() time.Time
}

// NewLeaseRepository returns a process-local LeaseRepository.
func NewLeaseRepository() repository.LeaseRepository {
	return NewLeaseRepositoryWithClock(time.Now)
}

// NewLeaseRepositoryWithClock is NewLeaseRepository with an explicit time source.
func NewLeaseRepositoryWithClock(now func() time.Time) repository.LeaseRepository {
	if now == nil {
		now = time.Now
	}
	return &leaseRepository{
		leases: make(map[string]lease),
		now:    now,
	}
}

func (r *leaseRepository) Acquire(_ context.Context, key, holder string, ttl time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if current, ok := r.live(key, now); ok && current.holder != holder {
		return false, nil
	}
	l := lease{holder: holder}
	if ttl > 0 {
		l.expiresAt = now.Add(ttl)
	}
	r.leases[key] = l
	return true, nil
}

func (r *leaseRepository) Release(_ context.Context, key, holder string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.leases[key]; ok && current.holder == holder {
		delete(r.leases, key)
	}
	return nil
}

func (r *leaseRepository) Holder(_ context.Context, key string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.live(key, r.now()); ok {
		return current.holder, nil
	}
	return "", nil
}

func (r *leaseRepository) live(key string, now time.Time) (lease, bool) {
	current, ok := r.leases[key]
	if !ok {
		return lease{}, false
	}
	if !current.expiresAt.IsZero() && !current.expiresAt.After(now) {
		delete(r.leases, key)
		return lease{}, false
	}
	return current, true
}
