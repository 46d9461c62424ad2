package attrstore

import (
	"context"
	"sync"
	"time"

	"bazil.org/attest/credential"
	"bazil.org/attest/identity"
)

// Memory is an in-process Storage.
type Memory struct {
	now func() time.Time

	mu   sync.RWMutex
	sets map[identity.Identifier]*credential.AttributeSet
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		now:  time.Now,
		sets: make(map[identity.Identifier]*credential.AttributeSet),
	}
}

func (m *Memory) GetAttributes(ctx context.Context, id identity.Identifier) (*credential.AttributeSet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	set, ok := m.sets[id]
	if !ok || set.Expired(m.now()) {
		return nil, nil
	}
	return set.Clone(), nil
}

func (m *Memory) PutAttributes(ctx context.Context, id identity.Identifier, set *credential.AttributeSet) error {
	c := set.Clone()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sets[id] = c
	return nil
}

// Sweep removes sets that expired before now, and returns how many.
func (m *Memory) Sweep(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, set := range m.sets {
		if set.Expired(now) {
			delete(m.sets, id)
			n++
		}
	}
	return n
}

// Len returns the number of stored sets, expired or not.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sets)
}
