package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/model"
)

type fakeSource struct {
	si *model.ServiceInstance
}

func (f *fakeSource) ServiceInstance(chatID, serviceID string) (*model.ServiceInstance, bool) {
	if f.si == nil {
		return nil, false
	}
	return f.si, true
}

func newTestManager() (*Manager, *fakeSource) {
	si := model.NewServiceInstance("exp", []string{"admin", "member"}, []string{"items"})
	src := &fakeSource{si: si}
	return NewManager(src, "g1@g.us", "exp"), src
}

func TestAddAssignsIDAndAppends(t *testing.T) {
	m, _ := newTestManager()
	rec, err := m.Add("items", map[string]any{"item": "Lunch", "amount": 50})
	require.NoError(t, err)
	assert.NotEmpty(t, rec["_id"])
	assert.Equal(t, "Lunch", rec["item"])
}

func TestGetByIndexIsOneBasedAndStable(t *testing.T) {
	m, _ := newTestManager()
	_, _ = m.Add("items", map[string]any{"item": "A"})
	_, _ = m.Add("items", map[string]any{"item": "B"})

	first, ok := m.GetByIndex("items", 1)
	require.True(t, ok)
	assert.Equal(t, "A", first["item"])

	second, ok := m.GetByIndex("items", 2)
	require.True(t, ok)
	assert.Equal(t, "B", second["item"])

	_, ok = m.GetByIndex("items", 3)
	assert.False(t, ok)
}

func TestUpdatePreservesIDAndMergesShallowly(t *testing.T) {
	m, _ := newTestManager()
	rec, _ := m.Add("items", map[string]any{"item": "A", "amount": 10})
	updated, ok := m.Update("items", rec["_id"].(string), map[string]any{"amount": 20})
	require.True(t, ok)
	assert.Equal(t, rec["_id"], updated["_id"])
	assert.Equal(t, "A", updated["item"])
	assert.Equal(t, 20, updated["amount"])
}

func TestDeleteByIndexShiftsRemainingIndices(t *testing.T) {
	m, _ := newTestManager()
	_, _ = m.Add("items", map[string]any{"item": "A"})
	_, _ = m.Add("items", map[string]any{"item": "B"})

	assert.True(t, m.DeleteByIndex("items", 1))
	remaining, ok := m.GetByIndex("items", 1)
	require.True(t, ok)
	assert.Equal(t, "B", remaining["item"])
}

func TestQueryEqualityOnly(t *testing.T) {
	m, _ := newTestManager()
	_, _ = m.Add("items", map[string]any{"item": "A", "amount": 10})
	_, _ = m.Add("items", map[string]any{"item": "B", "amount": 20})

	results := m.Query("items", map[string]any{"item": "B"})
	require.Len(t, results, 1)
	assert.Equal(t, "B", results[0]["item"])
}

func TestAggregateSumAvgMinMaxCount(t *testing.T) {
	m, _ := newTestManager()
	_, _ = m.Add("items", map[string]any{"amount": 10})
	_, _ = m.Add("items", map[string]any{"amount": 20})
	_, _ = m.Add("items", map[string]any{"amount": 30})

	sum, err := m.Aggregate("items", "amount", "sum", nil)
	require.NoError(t, err)
	assert.Equal(t, 60.0, sum)

	avg, _ := m.Aggregate("items", "amount", "avg", nil)
	assert.Equal(t, 20.0, avg)

	min, _ := m.Aggregate("items", "amount", "min", nil)
	assert.Equal(t, 10.0, min)

	max, _ := m.Aggregate("items", "amount", "max", nil)
	assert.Equal(t, 30.0, max)

	count, _ := m.Aggregate("items", "amount", "count", nil)
	assert.Equal(t, 3.0, count)
}

func TestPaginate(t *testing.T) {
	m, _ := newTestManager()
	for i := 0; i < 5; i++ {
		_, _ = m.Add("items", map[string]any{"n": i})
	}
	page1 := m.Paginate("items", 1, 2)
	require.Len(t, page1, 2)
	assert.Equal(t, 0, page1[0]["n"])

	page3 := m.Paginate("items", 3, 2)
	require.Len(t, page3, 1)
	assert.Equal(t, 4, page3[0]["n"])
}

func TestClear(t *testing.T) {
	m, _ := newTestManager()
	_, _ = m.Add("items", map[string]any{"n": 1})
	m.Clear("items")
	assert.Equal(t, 0, m.Count("items", nil))
}

func TestUninstalledServiceReturnsEmptyNotPanic(t *testing.T) {
	src := &fakeSource{}
	m := NewManager(src, "g1@g.us", "exp")
	_, err := m.Add("items", map[string]any{})
	assert.Error(t, err)
	assert.False(t, m.Delete("items", "x"))
	assert.Nil(t, m.Query("items", nil))
}
