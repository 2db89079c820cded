// Package lock provides short-lived named locks used to serialise clustering
// runs per tenant.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrLocked is returned when the lock is held by someone else.
var ErrLocked = errors.New("lock is held")

// Locker acquires named locks that expire after ttl if never released.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (*Lease, error)
}

// Lease is a held lock.
type Lease struct {
	Key     string
	Token   string
	release func(ctx context.Context) error
	once    sync.Once
	err     error
}

// Release gives the lock up. Releasing twice is a no-op.
func (l *Lease) Release(ctx context.Context) error {
	l.once.Do(func() {
		l.err = l.release(ctx)
	})
	return l.err
}

func newToken() string {
	return uuid.New().String()
}

// LocalLocker is an in-process Locker for single-replica deployments and tests.
type LocalLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	clock func() time.Time
}

type localEntry struct {
	token   string
	expires time.Time
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{
		held:  make(map[string]localEntry),
		clock: time.Now,
	}
}

// TryLock acquires key or returns ErrLocked.
func (l *LocalLocker) TryLock(_ context.Context, key string, ttl time.Duration) (*Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}

	token := newToken()
	l.held[key] = localEntry{token: token, expires: now.Add(ttl)}

	return &Lease{
		Key:   key,
		Token: token,
		release: func(context.Context) error {
			l.mu.Lock()
			defer l.mu.Unlock()
			if e, ok := l.held[key]; ok && e.token == token {
				delete(l.held, key)
			}
			return nil
		},
	}, nil
}
