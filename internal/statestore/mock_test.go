package statestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/model"
)

func TestMockStoreLoadEmpty(t *testing.T) {
	store := NewMockStore()
	doc, err := store.LoadDocument(context.Background())
	require.NoError(t, err)
	assert.Nil(t, doc)
}

func TestMockStoreSaveLoadRoundTrip(t *testing.T) {
	store := NewMockStore()
	doc := model.NewDocument("1111@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	require.NoError(t, store.SaveDocument(context.Background(), doc))

	loaded, err := store.LoadDocument(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.Root.IsRoot("1111@s.whatsapp.net"))
}

func TestMockStoreAuditOrderingAndFilter(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	base := time.Now()
	require.NoError(t, store.AppendAudit(ctx, model.AuditRecord{ChatID: "c1", Timestamp: base, RawMessage: "first"}))
	require.NoError(t, store.AppendAudit(ctx, model.AuditRecord{ChatID: "c1", Timestamp: base.Add(time.Second), RawMessage: "second"}))
	require.NoError(t, store.AppendAudit(ctx, model.AuditRecord{ChatID: "c2", Timestamp: base, RawMessage: "other chat"}))

	recs, err := store.ListAudit(ctx, "c1", 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "second", recs[0].RawMessage, "newest first")

	limited, err := store.ListAudit(ctx, "c1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
}
