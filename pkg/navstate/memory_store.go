package navstate

import (
	"context"
	"sync"
	"time"

	queryopts "github.com/goliatone/go-queryopts"
	"github.com/google/uuid"
)

// etagNamespace seeds content-derived ETags.
var etagNamespace = uuid.MustParse("6f1d8e0c-54f4-4c1b-9d55-2b3c8f0a7e41")

// MemoryStore is an in-memory Store for tests and examples. Every save gets a
// fresh SnapshotID and an ETag derived from the canonical query string.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]memoryRecord
	now     func() time.Time
}

type memoryRecord struct {
	params queryopts.Params
	meta   Meta
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]memoryRecord{}, now: time.Now}
}

func (s *MemoryStore) Load(_ context.Context, ref Ref) (queryopts.Params, Meta, bool, error) {
	key, err := ref.Identifier()
	if err != nil {
		return nil, Meta{}, false, err
	}

	s.mu.RLock()
	record, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, Meta{}, false, nil
	}
	return record.params.Clone(), cloneMeta(record.meta), true, nil
}

func (s *MemoryStore) Save(_ context.Context, ref Ref, params queryopts.Params, meta Meta) (Meta, error) {
	key, err := ref.Identifier()
	if err != nil {
		return Meta{}, err
	}

	saved := cloneMeta(meta)
	saved.SnapshotID = uuid.NewString()
	saved.ETag = ETagFor(params)
	if saved.UpdatedAt.IsZero() {
		saved.UpdatedAt = s.now()
	}

	s.mu.Lock()
	s.records[key] = memoryRecord{params: params.Clone(), meta: saved}
	s.mu.Unlock()
	return cloneMeta(saved), nil
}

// Len returns the number of stored routes.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// ETagFor derives a stable ETag from the canonical encoding of params.
func ETagFor(params queryopts.Params) string {
	return uuid.NewSHA1(etagNamespace, []byte(params.Encode())).String()
}
