// Package store provides durable session snapshot backends implementing
// the session.Store contract: memory (tests), JSON file (single node)
// and Postgres (shared deployments).
package store

import (
	"context"
	"sync"

	"github.com/MikeSquared-Agency/sentinel/internal/session"
)

// Memory keeps snapshots in process memory. Used in tests and as the
// fallback when no durable backend is configured.
type Memory struct {
	mu       sync.Mutex
	sessions map[string]*session.State
}

func NewMemory() *Memory {
	return &Memory{sessions: make(map[string]*session.State)}
}

func (m *Memory) LoadAll(ctx context.Context) (map[string]*session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]*session.State, len(m.sessions))
	for id, s := range m.sessions {
		out[id] = s.Clone()
	}
	return out, nil
}

func (m *Memory) SaveAll(ctx context.Context, sessions map[string]*session.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.sessions = make(map[string]*session.State, len(sessions))
	for id, s := range sessions {
		m.sessions[id] = s.Clone()
	}
	return nil
}
