package resolver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

var errNoAddresses = errors.New("no addresses found")

// Dialer dials hosts through the address cache, trying each address in order.
type Dialer struct {
	cache  *Cache
	dialer *net.Dialer
}

// NewDialer creates a Dialer with the given connect timeout.
func NewDialer(cache *Cache, connectTimeout time.Duration) *Dialer {
	return &Dialer{
		cache: cache,
		dialer: &net.Dialer{
			Timeout:   connectTimeout,
			KeepAlive: 30 * time.Second,
		},
	}
}

// DialContext matches http.Transport.DialContext.
func (d *Dialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, fmt.Errorf("split %q: %w", address, err)
	}

	addrs, err := d.cache.Resolve(ctx, host)
	if err != nil {
		return nil, err
	}

	var lastErr error
	for _, a := range addrs {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(a.String(), port))
		if err == nil {
			return conn, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errNoAddresses
	}
	return nil, fmt.Errorf("dial %s (%d addresses): %w", address, len(addrs), lastErr)
}
