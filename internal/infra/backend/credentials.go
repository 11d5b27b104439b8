package backend

import (
	"strings"
	"sync"
)

// CredentialStore holds the API key for the single configured backend.
type CredentialStore interface {
	APIKey() string
	SetAPIKey(key string)
	Configured() bool
}

// StaticCredentials is an in-memory CredentialStore.
type StaticCredentials struct {
	mu  sync.RWMutex
	key string
}

// NewStaticCredentials creates a store seeded with key.
func NewStaticCredentials(key string) *StaticCredentials {
	return &StaticCredentials{key: strings.TrimSpace(key)}
}

func (c *StaticCredentials) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.key
}

func (c *StaticCredentials) SetAPIKey(key string) {
	c.mu.Lock()
	c.key = strings.TrimSpace(key)
	c.mu.Unlock()
}

func (c *StaticCredentials) Configured() bool {
	return c.APIKey() != ""
}
