// Package resolver caches hostname resolution for the backend transport.
package resolver

import (
	"context"
	"log/slog"
	"net/netip"
	"slices"
	"sync"
	"time"

	"github.com/vietddude/stepbridge/internal/core/domain"
	"github.com/vietddude/stepbridge/internal/metrics"
)

// DefaultTTL is how long a resolution stays fresh.
const DefaultTTL = 60 * time.Second

// Resolver performs the actual lookup. *net.Resolver satisfies it.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Entry is an immutable resolution result. Entries are replaced, never mutated.
type Entry struct {
	Host     string
	Addrs    []netip.Addr
	CachedAt time.Time
}

// Cache caches resolved addresses per hostname with a TTL.
// Results are ordered with the preferred address family first.
type Cache struct {
	resolver   Resolver
	ttl        time.Duration
	preferIPv6 bool
	now        func() time.Time
	log        *slog.Logger

	mu      sync.RWMutex
	entries map[string]*Entry
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithPreferIPv6 puts IPv6 addresses ahead of IPv4.
func WithPreferIPv6(prefer bool) Option {
	return func(c *Cache) { c.preferIPv6 = prefer }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// NewCache creates a new address cache with the given TTL.
func NewCache(r Resolver, ttl time.Duration, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Cache{
		resolver: r,
		ttl:      ttl,
		now:      time.Now,
		log:      slog.Default(),
		entries:  make(map[string]*Entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("component", "resolver")
	return c
}

// Resolve returns the cached addresses for host if still within TTL, otherwise resolves
// fresh. When the fresh lookup fails, an expired entry is served instead; only a host
// with no entry at all yields a *domain.ResolutionError.
func (c *Cache) Resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip}, nil
	}

	c.mu.RLock()
	cached := c.entries[host]
	c.mu.RUnlock()

	if cached != nil && c.now().Sub(cached.CachedAt) <= c.ttl {
		metrics.DNSCacheTotal.WithLabelValues("hit").Inc()
		return slices.Clone(cached.Addrs), nil
	}

	addrs, err := c.resolver.LookupNetIP(ctx, "ip", host)
	if err == nil && len(addrs) == 0 {
		err = errNoAddresses
	}
	if err != nil {
		if cached != nil {
			metrics.DNSCacheTotal.WithLabelValues("stale").Inc()
			c.log.Warn("Resolution failed, serving stale entry",
				"host", host, "age", c.now().Sub(cached.CachedAt), "error", err)
			return slices.Clone(cached.Addrs), nil
		}
		metrics.DNSCacheTotal.WithLabelValues("error").Inc()
		return nil, &domain.ResolutionError{Host: host, Err: err}
	}

	entry := &Entry{
		Host:     host,
		Addrs:    c.order(addrs),
		CachedAt: c.now(),
	}

	// Concurrent misses may both land here; last writer wins.
	c.mu.Lock()
	c.entries[host] = entry
	c.mu.Unlock()

	metrics.DNSCacheTotal.WithLabelValues("miss").Inc()
	return slices.Clone(entry.Addrs), nil
}

// Lookup returns a copy of the current entry for host without resolving.
func (c *Cache) Lookup(host string) (*Entry, bool) {
	c.mu.RLock()
	e, ok := c.entries[host]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	cp := *e
	cp.Addrs = slices.Clone(e.Addrs)
	return &cp, true
}

// Invalidate drops the entry for host, forcing the next call to resolve fresh.
func (c *Cache) Invalidate(host string) {
	c.mu.Lock()
	delete(c.entries, host)
	c.mu.Unlock()
}

// Len returns the number of cached hostnames.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *Cache) order(addrs []netip.Addr) []netip.Addr {
	v4 := make([]netip.Addr, 0, len(addrs))
	v6 := make([]netip.Addr, 0, len(addrs))
	for _, a := range addrs {
		a = a.Unmap()
		if a.Is4() {
			v4 = append(v4, a)
		} else {
			v6 = append(v6, a)
		}
	}
	if c.preferIPv6 {
		return append(v6, v4...)
	}
	return append(v4, v6...)
}
