package session

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore sesiones en memoria de proceso. Para desarrollo y para el
// modo degradado cuando redis no está configurado. No sobrevive restarts.
type MemoryStore struct {
	c *gocache.Cache
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{c: gocache.New(gocache.NoExpiration, 10*time.Minute)}
}

func (m *MemoryStore) Create(_ context.Context, p Principal) error {
	if p.SessionID == "" {
		return fmt.Errorf("session: missing session_id")
	}
	ttl := time.Until(p.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session: expires_at must be in the future")
	}
	m.c.Set(p.SessionID, p, ttl)
	return nil
}

func (m *MemoryStore) Get(_ context.Context, sessionID string) (*Principal, error) {
	v, ok := m.c.Get(sessionID)
	if !ok {
		return nil, nil
	}
	p := v.(Principal)
	return &p, nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.c.Delete(sessionID)
	return nil
}
