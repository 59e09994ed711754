package oa

import (
	"context"
	"sync"
	"time"

	"github.com/chris/researchhub/internal/db"
)

// Cache stores answers by DOI. Writes overwrite; concurrent writers for the
// same DOI race and the last one wins.
type Cache interface {
	Get(ctx context.Context, doi string) (Status, bool, error)
	Put(ctx context.Context, doi string, st Status) error
	Delete(ctx context.Context, doi string) error
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Status
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Status)}
}

func (m *MemoryCache) Get(_ context.Context, doi string) (Status, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	st, ok := m.entries[doi]
	return st, ok, nil
}

func (m *MemoryCache) Put(_ context.Context, doi string, st Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[doi] = st
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, doi string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, doi)
	return nil
}

func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// StatusStore is the persistence the StoreCache needs. *db.DB satisfies it.
type StatusStore interface {
	GetOAStatus(ctx context.Context, doi string) (db.OARecord, bool, error)
	PutOAStatus(ctx context.Context, rec db.OARecord) error
	DeleteOAStatus(ctx context.Context, doi string) error
	PruneOAStatus(ctx context.Context, cutoff time.Time) (int64, error)
}

// StoreCache keeps answers in the library database so they survive
// restarts.
type StoreCache struct {
	store StatusStore
}

func NewStoreCache(store StatusStore) *StoreCache {
	return &StoreCache{store: store}
}

func (c *StoreCache) Get(ctx context.Context, doi string) (Status, bool, error) {
	rec, ok, err := c.store.GetOAStatus(ctx, doi)
	if err != nil || !ok {
		return Status{}, false, err
	}
	return Status{
		IsOpenAccess: rec.IsOA,
		Location:     rec.Location,
		Version:      rec.Version,
		CheckedAt:    rec.CheckedAt,
		Source:       SourceUnpaywall,
	}, true, nil
}

func (c *StoreCache) Put(ctx context.Context, doi string, st Status) error {
	return c.store.PutOAStatus(ctx, db.OARecord{
		DOI:       doi,
		IsOA:      st.IsOpenAccess,
		Location:  st.Location,
		Version:   st.Version,
		CheckedAt: st.CheckedAt,
	})
}

func (c *StoreCache) Delete(ctx context.Context, doi string) error {
	return c.store.DeleteOAStatus(ctx, doi)
}

// Prune drops entries checked before cutoff.
func (c *StoreCache) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	return c.store.PruneOAStatus(ctx, cutoff)
}
