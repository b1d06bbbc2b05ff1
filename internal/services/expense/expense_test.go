package expense

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/exec"
	"botcore/internal/model"
	"botcore/internal/schema"
	"botcore/internal/state"
	"botcore/internal/statestore"
	"botcore/internal/storage"
)

func newTestContext(t *testing.T) (*exec.Context, *state.Manager, string) {
	t.Helper()
	store := statestore.NewMockStore()
	st := state.NewManager(store, "root@s.whatsapp.net", `^\.`)
	require.NoError(t, st.Boot(context.Background()))

	chatID := "g1@g.us"
	def := schema.ServiceDefinition{
		ID: "exp", Roles: []string{"child", "parent", "admin", "member"},
		Storage: map[string]schema.StorageDeclaration{"expenses": {}},
	}
	require.NoError(t, st.InstallService(chatID, model.ChatGroup, def, nil, nil))

	ctx := exec.NewContext(nil)
	ctx.ChatID = chatID
	ctx.UserID = "u1@s.whatsapp.net"
	ctx.Storage = storage.NewManager(st, chatID, "exp")
	return ctx, st, chatID
}

func TestAddAccumulatesRunningTotal(t *testing.T) {
	ctx, _, _ := newTestContext(t)

	ctx.Args = map[string]any{"amount": 50, "item": "Lunch"}
	reply, err := add(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Added: Lunch - 50 (new total: 50)", reply)

	ctx.Args = map[string]any{"amount": 20, "item": "Coffee"}
	reply, err = add(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Added: Coffee - 20 (new total: 70)", reply)
}

func TestEditUpdatesRecordAtIndex(t *testing.T) {
	ctx, _, _ := newTestContext(t)
	ctx.Args = map[string]any{"amount": 50, "item": "Lunch"}
	_, err := add(ctx)
	require.NoError(t, err)

	ctx.Args = map[string]any{"itemNo": 1, "price": 60}
	reply, err := edit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Updated #1: Lunch - 60", reply)

	ctx.Args = map[string]any{"itemNo": 99, "price": 1}
	reply, err = edit(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "No expense at position")
}

func TestListAndTotal(t *testing.T) {
	ctx, _, _ := newTestContext(t)

	reply, err := list(ctx)
	require.NoError(t, err)
	assert.Equal(t, "No expenses recorded.", reply)

	ctx.Args = map[string]any{"amount": 10, "item": "Snacks"}
	_, err = add(ctx)
	require.NoError(t, err)
	ctx.Args = map[string]any{"amount": 5, "item": "Bus"}
	_, err = add(ctx)
	require.NoError(t, err)

	reply, err = list(ctx)
	require.NoError(t, err)
	assert.Contains(t, reply, "1. Snacks - 10")
	assert.Contains(t, reply, "2. Bus - 5")

	reply, err = total(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Total: 15", reply)
}
