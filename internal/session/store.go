package session

import (
	"context"
	"hash/fnv"
	"sync"
	"time"
)

// Store is the persistence contract consumed by the orchestrator.
// load/recall/save all come through this: load is the fast authoritative
// path, recall hydrates from a miss, save stamps UpdatedAt and mirrors.
type Store interface {
	// Load returns the in-memory session, or ok=false on a miss.
	Load(ctx context.Context, sessionID string) (*SessionState, bool)
	// Recall is used when Load misses but a prior persisted snapshot may
	// exist in a mirrored external store; it hydrates and re-admits the
	// session into memory on success.
	Recall(ctx context.Context, sessionID string) (*SessionState, bool)
	// Save stamps UpdatedAt, stores in memory, and best-effort mirrors to
	// the external store if one is configured.
	Save(ctx context.Context, s *SessionState) error
	// Delete removes a session from memory. A mirrored copy, if any, is
	// left in place, so a later Recall can hydrate the session again.
	Delete(ctx context.Context, sessionID string) error
}

const shardCount = 32

type shard struct {
	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	state       *SessionState
	lastTouched time.Time
}

// Mirror is the optional external write-through target (e.g. Redis).
// It is never polled; only written on save and read on a Recall miss.
type Mirror interface {
	Put(ctx context.Context, sessionID string, s *SessionState, ttl time.Duration) error
	Get(ctx context.Context, sessionID string) (*SessionState, bool, error)
}

// MemoryStore is the authoritative, sharded, TTL-bounded session store.
// Sharding bounds lock contention across concurrently active sessions
// (SPEC_FULL.md §4.2), generalizing the teacher's single-mutex
// MemoryDialogStore.
type MemoryStore struct {
	shards [shardCount]*shard
	ttl    time.Duration
	mirror Mirror
	onMirrorErr func(error)
	mirrorErrOnce sync.Once
}

// NewMemoryStore creates an in-memory store. ttl == 0 means sessions never
// expire. mirror may be nil to disable the external write-through.
func NewMemoryStore(ttl time.Duration, mirror Mirror, onMirrorErr func(error)) *MemoryStore {
	m := &MemoryStore{ttl: ttl, mirror: mirror, onMirrorErr: onMirrorErr}
	for i := range m.shards {
		m.shards[i] = &shard{sessions: map[string]*entry{}}
	}
	return m
}

func (m *MemoryStore) shardFor(sessionID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(sessionID))
	return m.shards[h.Sum32()%shardCount]
}

func (m *MemoryStore) Load(ctx context.Context, sessionID string) (*SessionState, bool) {
	sh := m.shardFor(sessionID)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if m.ttl > 0 && time.Since(e.lastTouched) > m.ttl {
		delete(sh.sessions, sessionID)
		return nil, false
	}
	return e.state, true
}

func (m *MemoryStore) Recall(ctx context.Context, sessionID string) (*SessionState, bool) {
	if s, ok := m.Load(ctx, sessionID); ok {
		return s, true
	}
	if m.mirror == nil {
		return nil, false
	}
	s, ok, err := m.mirror.Get(ctx, sessionID)
	if err != nil {
		m.reportMirrorErr(err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	sh := m.shardFor(sessionID)
	sh.mu.Lock()
	sh.sessions[sessionID] = &entry{state: s, lastTouched: time.Now()}
	sh.mu.Unlock()
	return s, true
}

func (m *MemoryStore) Save(ctx context.Context, s *SessionState) error {
	now := time.Now()
	s.UpdatedAt = now

	sh := m.shardFor(s.SessionID)
	sh.mu.Lock()
	sh.sessions[s.SessionID] = &entry{state: s, lastTouched: now}
	sh.mu.Unlock()

	if m.mirror != nil {
		if err := m.mirror.Put(ctx, s.SessionID, s, m.ttl); err != nil {
			m.reportMirrorErr(err)
		}
	}
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	sh := m.shardFor(sessionID)
	sh.mu.Lock()
	delete(sh.sessions, sessionID)
	sh.mu.Unlock()
	return nil
}

// reportMirrorErr logs (via the caller-supplied callback) at most the
// first mirror failure per process, then degrades to in-memory only
// silently (spec.md §7: "Session store unavailable... log once per process").
func (m *MemoryStore) reportMirrorErr(err error) {
	m.mirrorErrOnce.Do(func() {
		if m.onMirrorErr != nil {
			m.onMirrorErr(err)
		}
	})
}

// ClearExpired sweeps every shard for TTL-expired sessions. Returns the
// count removed. The orchestrator does not call this on the hot path; it
// is meant to be driven by an external ticker if the deployment wants
// proactive cleanup (session TTL policy is left to the Store collaborator
// per spec.md §9 Open Questions).
func (m *MemoryStore) ClearExpired(now time.Time) int {
	if m.ttl == 0 {
		return 0
	}
	var removed int
	for _, sh := range m.shards {
		sh.mu.Lock()
		for id, e := range sh.sessions {
			if now.Sub(e.lastTouched) > m.ttl {
				delete(sh.sessions, id)
				removed++
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
