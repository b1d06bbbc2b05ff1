// Package storage implements the Storage Manager (spec §4.6): CRUD
// over a ServiceInstance's storage[name] ordered record lists. Scoped
// to (chatId, service, storageName) the way the state manager scopes
// its own ChatAPI, and bound to the state manager's document so
// mutations are visible to the next Persist call.
package storage

import (
	"fmt"

	"github.com/google/uuid"

	"botcore/internal/exec"
	"botcore/internal/model"
)

// DocumentSource is the subset of the state manager a Manager needs:
// read access to a chat's service instance, under the caller's already
// -held chat lock (spec §5: storage mutations happen lock-free
// internally, under the lock the router holds across the whole
// handler invocation).
type DocumentSource interface {
	ServiceInstance(chatID, serviceID string) (*model.ServiceInstance, bool)
}

// Manager is the (chat, service)-scoped storage CRUD surface; one is
// constructed per handler invocation by the router.
type Manager struct {
	source    DocumentSource
	chatID    string
	serviceID string
}

// NewManager binds a Manager to one (chat, service) pair.
func NewManager(source DocumentSource, chatID, serviceID string) *Manager {
	return &Manager{source: source, chatID: chatID, serviceID: serviceID}
}

var _ exec.StorageAPI = (*Manager)(nil)

func (m *Manager) instance() (*model.ServiceInstance, error) {
	si, ok := m.source.ServiceInstance(m.chatID, m.serviceID)
	if !ok {
		return nil, fmt.Errorf("storage: service %s not installed in chat %s", m.serviceID, m.chatID)
	}
	return si, nil
}

// Add assigns a unique "_id", appends item to the named collection,
// and returns the stored record (spec §4.6 "add(item)").
func (m *Manager) Add(name string, item map[string]any) (map[string]any, error) {
	si, err := m.instance()
	if err != nil {
		return nil, err
	}
	rec := model.Record{}
	for k, v := range item {
		rec[k] = v
	}
	rec["_id"] = uuid.NewString()
	si.Storage[name] = append(si.Storage[name], rec)
	return rec.Clone(), nil
}

func findByID(records []model.Record, id string) (int, bool) {
	for i, r := range records {
		if r.ID() == id {
			return i, true
		}
	}
	return -1, false
}

// Get returns the record with the given "_id".
func (m *Manager) Get(name, id string) (map[string]any, bool) {
	si, err := m.instance()
	if err != nil {
		return nil, false
	}
	i, ok := findByID(si.Storage[name], id)
	if !ok {
		return nil, false
	}
	return si.Storage[name][i].Clone(), true
}

// GetByIndex returns the record at the 1-based position index.
func (m *Manager) GetByIndex(name string, index int) (map[string]any, bool) {
	si, err := m.instance()
	if err != nil {
		return nil, false
	}
	records := si.Storage[name]
	if index < 1 || index > len(records) {
		return nil, false
	}
	return records[index-1].Clone(), true
}

func shallowMerge(rec model.Record, patch map[string]any) model.Record {
	out := rec.Clone()
	for k, v := range patch {
		out[k] = v
	}
	out["_id"] = rec.ID() // patch can never overwrite the identity field
	return out
}

// Update shallow-merges patch into the record identified by id.
func (m *Manager) Update(name, id string, patch map[string]any) (map[string]any, bool) {
	si, err := m.instance()
	if err != nil {
		return nil, false
	}
	i, ok := findByID(si.Storage[name], id)
	if !ok {
		return nil, false
	}
	merged := shallowMerge(si.Storage[name][i], patch)
	si.Storage[name][i] = merged
	return merged.Clone(), true
}

// UpdateByIndex shallow-merges patch into the record at the 1-based
// position index.
func (m *Manager) UpdateByIndex(name string, index int, patch map[string]any) (map[string]any, bool) {
	si, err := m.instance()
	if err != nil {
		return nil, false
	}
	records := si.Storage[name]
	if index < 1 || index > len(records) {
		return nil, false
	}
	merged := shallowMerge(records[index-1], patch)
	records[index-1] = merged
	return merged.Clone(), true
}

// Delete removes the record identified by id, returning whether it existed.
func (m *Manager) Delete(name, id string) bool {
	si, err := m.instance()
	if err != nil {
		return false
	}
	i, ok := findByID(si.Storage[name], id)
	if !ok {
		return false
	}
	records := si.Storage[name]
	si.Storage[name] = append(records[:i], records[i+1:]...)
	return true
}

// DeleteByIndex removes the record at the 1-based position index.
func (m *Manager) DeleteByIndex(name string, index int) bool {
	si, err := m.instance()
	if err != nil {
		return false
	}
	records := si.Storage[name]
	if index < 1 || index > len(records) {
		return false
	}
	si.Storage[name] = append(records[:index-1], records[index:]...)
	return true
}

// Clear empties the named collection.
func (m *Manager) Clear(name string) {
	si, err := m.instance()
	if err != nil {
		return
	}
	si.Storage[name] = []model.Record{}
}

func matchesFilter(rec model.Record, filter map[string]any) bool {
	for k, v := range filter {
		if rec[k] != v {
			return false
		}
	}
	return true
}

// Query returns every record matching filter (equality-only),
// preserving storage order.
func (m *Manager) Query(name string, filter map[string]any) []map[string]any {
	si, err := m.instance()
	if err != nil {
		return nil
	}
	var out []map[string]any
	for _, rec := range si.Storage[name] {
		if matchesFilter(rec, filter) {
			out = append(out, rec.Clone())
		}
	}
	return out
}

func numericField(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	case float32:
		return float64(n), true
	default:
		return 0, false
	}
}

// Aggregate computes sum/avg/min/max/count over field across every
// record matching filter.
func (m *Manager) Aggregate(name, field, op string, filter map[string]any) (float64, error) {
	si, err := m.instance()
	if err != nil {
		return 0, err
	}
	if op == "count" {
		n := 0
		for _, rec := range si.Storage[name] {
			if matchesFilter(rec, filter) {
				n++
			}
		}
		return float64(n), nil
	}

	var values []float64
	for _, rec := range si.Storage[name] {
		if !matchesFilter(rec, filter) {
			continue
		}
		n, ok := numericField(rec[field])
		if !ok {
			continue
		}
		values = append(values, n)
	}
	if len(values) == 0 {
		return 0, nil
	}
	switch op {
	case "sum":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum, nil
	case "avg":
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values)), nil
	case "min":
		min := values[0]
		for _, v := range values[1:] {
			if v < min {
				min = v
			}
		}
		return min, nil
	case "max":
		max := values[0]
		for _, v := range values[1:] {
			if v > max {
				max = v
			}
		}
		return max, nil
	default:
		return 0, fmt.Errorf("storage: unknown aggregate op %q", op)
	}
}

// Paginate returns the records on the given 1-based page of size limit.
func (m *Manager) Paginate(name string, page, limit int) []map[string]any {
	si, err := m.instance()
	if err != nil || limit <= 0 || page < 1 {
		return nil
	}
	records := si.Storage[name]
	start := (page - 1) * limit
	if start >= len(records) {
		return nil
	}
	end := start + limit
	if end > len(records) {
		end = len(records)
	}
	out := make([]map[string]any, 0, end-start)
	for _, rec := range records[start:end] {
		out = append(out, rec.Clone())
	}
	return out
}

// Count returns the number of records matching filter.
func (m *Manager) Count(name string, filter map[string]any) int {
	si, err := m.instance()
	if err != nil {
		return 0
	}
	n := 0
	for _, rec := range si.Storage[name] {
		if matchesFilter(rec, filter) {
			n++
		}
	}
	return n
}
