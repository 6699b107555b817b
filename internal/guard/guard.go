// Package guard provides short leases used to keep two closes of the same table from
// running at once.
package guard

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned by Acquire when another holder owns the key.
var ErrHeld = errors.New("guard: key is held")

type Guard interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Memory is a process-local Guard.
type Memory struct {
	mu   sync.Mutex
	held map[string]memoryLease
	now  func() time.Time
	seq  uint64
}

type memoryLease struct {
	token   uint64
	expires time.Time
}

func NewMemory() *Memory {
	return &Memory{held: map[string]memoryLease{}, now: time.Now}
}

func (m *Memory) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if lease, ok := m.held[key]; ok && now.Before(lease.expires) {
		return nil, ErrHeld
	}
	m.seq++
	token := m.seq
	m.held[key] = memoryLease{token: token, expires: now.Add(ttl)}

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if lease, ok := m.held[key]; ok && lease.token == token {
				delete(m.held, key)
			}
		})
	}, nil
}
