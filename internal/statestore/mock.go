package statestore

import (
	"context"
	"sort"
	"strconv"
	"sync"

	"botcore/internal/model"
)

// MockStore is an in-process Store used for BOT_STORE_TYPE=mock and for
// tests that would rather not carry a sqlmock harness. It mirrors the
// teacher's mock-mode split in internal/datastore: same interface,
// no database, state lost on process exit.
type MockStore struct {
	mu    sync.Mutex
	doc   *model.Document
	audit []model.AuditRecord
	seq   int
}

// NewMockStore returns an empty MockStore; LoadDocument returns nil
// until the first SaveDocument.
func NewMockStore() *MockStore {
	return &MockStore{}
}

func (m *MockStore) LoadDocument(ctx context.Context) (*model.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc, nil
}

func (m *MockStore) SaveDocument(ctx context.Context, doc *model.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc = doc
	return nil
}

func (m *MockStore) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		m.seq++
		rec.ID = "mock-audit-" + strconv.Itoa(m.seq)
	}
	m.audit = append(m.audit, rec)
	return nil
}

func (m *MockStore) ListAudit(ctx context.Context, chatID string, limit int) ([]model.AuditRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []model.AuditRecord
	for _, rec := range m.audit {
		if rec.ChatID == chatID {
			matched = append(matched, rec)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (m *MockStore) Close() error { return nil }
