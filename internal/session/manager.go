package session

import (
	"context"
	"log/slog"
	"sync"
)

// Store is the durable snapshot contract. Both operations are
// best-effort: a load failure yields an empty map, a save failure is
// logged and the turn proceeds with in-memory state only.
type Store interface {
	LoadAll(ctx context.Context) (map[string]*State, error)
	SaveAll(ctx context.Context, sessions map[string]*State) error
}

// Manager owns all live sessions and serializes access per session id.
// Ledger appends and intelligence merges are not commutative-safe, so
// concurrent turns for the same session must run one at a time; turns
// for different sessions proceed in parallel.
type Manager struct {
	store  Store
	logger *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	mu    sync.Mutex
	state *State
}

// NewManager builds a manager rehydrated from the store. A failed load
// is degraded to an empty session map, never a startup failure.
func NewManager(ctx context.Context, store Store, logger *slog.Logger) *Manager {
	m := &Manager{
		store:   store,
		logger:  logger,
		entries: make(map[string]*entry),
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		logger.Warn("session rehydration failed, starting empty", "error", err)
		return m
	}
	for id, s := range loaded {
		if id == "" || s == nil {
			continue
		}
		s.ID = id
		m.entries[id] = &entry{state: s}
	}
	if len(m.entries) > 0 {
		logger.Info("sessions rehydrated", "count", len(m.entries))
	}
	return m
}

// Acquire returns the session for id, creating it on first use, with its
// per-session lock held. The caller owns the state until it calls
// release.
func (m *Manager) Acquire(id string) (*State, func()) {
	m.mu.Lock()
	e, ok := m.entries[id]
	if !ok {
		e = &entry{state: New(id)}
		m.entries[id] = e
	}
	m.mu.Unlock()

	e.mu.Lock()
	return e.state, e.mu.Unlock
}

// RecordReport advances the reporting watermark after a confirmed
// delivery. Called from the reporter's worker goroutine, so it takes the
// session lock itself.
func (m *Manager) RecordReport(id string, intelligenceCount int) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return
	}

	e.mu.Lock()
	e.state.Reported = true
	if intelligenceCount > e.state.LastReportedCount {
		e.state.LastReportedCount = intelligenceCount
	}
	e.mu.Unlock()
}

// Flush snapshots every session to the store. Failures are logged, not
// returned: persistence is best-effort and must never fail a turn.
func (m *Manager) Flush(ctx context.Context) {
	m.mu.Lock()
	entries := make(map[string]*entry, len(m.entries))
	for id, e := range m.entries {
		entries[id] = e
	}
	m.mu.Unlock()

	snapshot := make(map[string]*State, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		snapshot[id] = e.state.Clone()
		e.mu.Unlock()
	}

	if err := m.store.SaveAll(ctx, snapshot); err != nil {
		m.logger.Error("session snapshot failed", "error", err, "sessions", len(snapshot))
	}
}
