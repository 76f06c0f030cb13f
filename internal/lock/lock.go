// Package lock serialises runs against the same target so two runners never
// clear each other's entities mid-battery.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrHeld is returned by Acquire when another holder owns the key
var ErrHeld = errors.New("lock is held")

// Lease is a held lock
type Lease interface {
	Release(ctx context.Context) error
}

// Locker hands out exclusive, expiring leases
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error)
}

// Key builds the lock key for a target base URL
func Key(baseURL string) string {
	return "uiflow:lock:" + baseURL
}

// LocalLocker keeps leases in process memory
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	nowFn func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

// NewLocalLocker returns an empty in-process locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]localEntry), nowFn: time.Now}
}

// Acquire implements Locker
func (l *LocalLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.nowFn()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrHeld
	}
	token := uuid.NewString()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}
	return &localLease{l: l, key: key, token: token}, nil
}

type localLease struct {
	l     *LocalLocker
	key   string
	token string
}

func (ll *localLease) Release(context.Context) error {
	ll.l.mu.Lock()
	defer ll.l.mu.Unlock()
	if e, ok := ll.l.held[ll.key]; ok && e.token == ll.token {
		delete(ll.l.held, ll.key)
	}
	return nil
}
