package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/AntoineSierzputowski/carmen"
)

// Compile-time interface check
var _ carmen.AnalysisStore = (*MemoryStore)(nil)

// MemoryStore is an in-memory AnalysisStore for tests. Failure toggles let
// tests exercise the pipeline's degradation paths.
type MemoryStore struct {
	mu      sync.Mutex
	records []carmen.AnalysisRecord
	nextID  int64

	FailFetch  bool
	FailAppend bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

func (m *MemoryStore) Append(ctx context.Context, rec carmen.AnalysisRecord) (carmen.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAppend {
		return carmen.AnalysisRecord{}, fmt.Errorf("%w: append disabled", carmen.ErrStoreUnavailable)
	}

	rec.ID = m.nextID
	m.nextID++
	m.records = append(m.records, rec)
	return rec, nil
}

func (m *MemoryStore) FetchRecent(ctx context.Context, plantID string, limit int) ([]carmen.AnalysisRecord, error) {
	return m.List(ctx, plantID, limit, 0)
}

func (m *MemoryStore) List(ctx context.Context, plantID string, limit, offset int) ([]carmen.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFetch {
		return nil, fmt.Errorf("%w: fetch disabled", carmen.ErrStoreUnavailable)
	}

	var matched []carmen.AnalysisRecord
	for _, rec := range m.records {
		if rec.PlantID == plantID {
			matched = append(matched, rec)
		}
	}
	return page(matched, limit, offset), nil
}

func (m *MemoryStore) ListAll(ctx context.Context, limit, offset int) ([]carmen.AnalysisRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailFetch {
		return nil, fmt.Errorf("%w: fetch disabled", carmen.ErrStoreUnavailable)
	}

	matched := make([]carmen.AnalysisRecord, len(m.records))
	copy(matched, m.records)
	return page(matched, limit, offset), nil
}

// Len reports how many records were appended.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// page sorts newest first and applies limit/offset.
func page(records []carmen.AnalysisRecord, limit, offset int) []carmen.AnalysisRecord {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].Timestamp.Equal(records[j].Timestamp) {
			return records[i].ID > records[j].ID
		}
		return records[i].Timestamp.After(records[j].Timestamp)
	})

	if offset >= len(records) {
		return nil
	}
	records = records[offset:]
	if limit > 0 && limit < len(records) {
		records = records[:limit]
	}
	return records
}
