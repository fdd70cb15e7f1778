package revoke

import (
	"context"
	"sync"
	"time"
)

type Mem struct {
	mu      sync.RWMutex
	entries map[string]time.Time
	now     func() time.Time
}

func NewMem() *Mem {
	return &Mem{entries: make(map[string]time.Time), now: time.Now}
}

func (m *Mem) Add(_ context.Context, token string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[token] = exp
	return nil
}

func (m *Mem) Contains(_ context.Context, token string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[token]
	return ok, nil
}

// Sweep drops entries whose token has expired anyway.
func (m *Mem) Sweep() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	n := 0
	for token, exp := range m.entries {
		if exp.Before(now) {
			delete(m.entries, token)
			n++
		}
	}
	return n
}

// Run sweeps once per interval until ctx is done.
func (m *Mem) Run(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
