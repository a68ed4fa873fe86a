package storage

import (
	"context"
	"sync"
	"time"

	"github.com/phambaophuc/image-compressor/internal/common"
	"github.com/phambaophuc/image-compressor/internal/models"
)

// MemoryRegistry keeps batch records in process. Records older than the TTL
// read as missing.
type MemoryRegistry struct {
	mu      sync.RWMutex
	records map[string]models.BatchRecord
	latest  string
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryRegistry(ttl time.Duration) *MemoryRegistry {
	return &MemoryRegistry{
		records: make(map[string]models.BatchRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (r *MemoryRegistry) Save(_ context.Context, record models.BatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records[record.ID] = record
	r.latest = record.ID
	return nil
}

func (r *MemoryRegistry) Get(_ context.Context, id string) (*models.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lookup(id)
}

func (r *MemoryRegistry) Latest(_ context.Context) (*models.BatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.latest == "" {
		return nil, common.ErrBatchNotFound
	}
	return r.lookup(r.latest)
}

func (r *MemoryRegistry) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.records, id)
	if r.latest == id {
		r.promoteNewest()
	}
	return nil
}

func (r *MemoryRegistry) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.records = make(map[string]models.BatchRecord)
	r.latest = ""
	return nil
}

// Prune drops expired records and returns how many were removed.
func (r *MemoryRegistry) Prune() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, record := range r.records {
		if r.expired(record) {
			delete(r.records, id)
			removed++
		}
	}
	if _, ok := r.records[r.latest]; !ok {
		r.promoteNewest()
	}
	return removed
}

func (r *MemoryRegistry) HealthCheck(_ context.Context) string {
	return "healthy"
}

func (r *MemoryRegistry) lookup(id string) (*models.BatchRecord, error) {
	record, ok := r.records[id]
	if !ok || r.expired(record) {
		return nil, common.ErrBatchNotFound
	}
	return &record, nil
}

// promoteNewest points latest at the most recently created live record.
func (r *MemoryRegistry) promoteNewest() {
	r.latest = ""
	var newest time.Time
	for id, record := range r.records {
		if r.expired(record) {
			continue
		}
		if r.latest == "" || record.CreatedAt.After(newest) {
			r.latest = id
			newest = record.CreatedAt
		}
	}
}

func (r *MemoryRegistry) expired(record models.BatchRecord) bool {
	return r.ttl > 0 && r.now().Sub(record.CreatedAt) > r.ttl
}
