package resolver

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"
)

func listenLoopback(t *testing.T) (port string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_ = conn.Close()
		}
	}()
	return strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)
}

func TestDialer_UsesCachedAddresses(t *testing.T) {
	port := listenLoopback(t)
	mock := &mockResolver{addrs: mustAddrs(t, "127.0.0.1")}
	d := NewDialer(NewCache(mock, time.Minute), time.Second)

	for i := 0; i < 2; i++ {
		conn, err := d.DialContext(context.Background(), "tcp", net.JoinHostPort("api.stepcraft.test", port))
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		_ = conn.Close()
	}
	if mock.calls() != 1 {
		t.Errorf("expected 1 lookup, got %d", mock.calls())
	}
}

func TestDialer_FallsThroughToNextAddress(t *testing.T) {
	port := listenLoopback(t)
	// ::1 is tried first and refused; the listener only binds IPv4.
	mock := &mockResolver{addrs: mustAddrs(t, "127.0.0.1", "::1")}
	d := NewDialer(NewCache(mock, time.Minute, WithPreferIPv6(true)), time.Second)

	conn, err := d.DialContext(context.Background(), "tcp", net.JoinHostPort("api.stepcraft.test", port))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	_ = conn.Close()
}

func TestDialer_ResolutionFailure(t *testing.T) {
	mock := &mockResolver{err: errNoAddresses}
	d := NewDialer(NewCache(mock, time.Minute), time.Second)

	if _, err := d.DialContext(context.Background(), "tcp", "api.stepcraft.test:443"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := d.DialContext(context.Background(), "tcp", "no-port"); err == nil {
		t.Fatal("expected split error")
	}
}
