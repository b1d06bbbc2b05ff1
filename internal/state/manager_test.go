package state

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/model"
	"botcore/internal/schema"
	"botcore/internal/statestore"
)

func newBootedManager(t *testing.T) *Manager {
	t.Helper()
	m := NewManager(statestore.NewMockStore(), "1111@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	require.NoError(t, m.Boot(context.Background()))
	return m
}

func TestBootSeedsRootUser(t *testing.T) {
	m := newBootedManager(t)
	assert.True(t, m.Document().Root.IsRoot("1111@s.whatsapp.net"))
}

func TestBootLoadsExistingDocument(t *testing.T) {
	store := statestore.NewMockStore()
	doc := model.NewDocument("9999@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	require.NoError(t, store.SaveDocument(context.Background(), doc))

	m := NewManager(store, "1111@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	require.NoError(t, m.Boot(context.Background()))
	assert.True(t, m.Document().Root.IsRoot("9999@s.whatsapp.net"), "boot must prefer the persisted document over reseeding")
}

func TestWithChatLockCreatesChatLazily(t *testing.T) {
	m := newBootedManager(t)
	err := m.WithChatLock("g1@g.us", model.ChatGroup, func(cs *model.ChatState) error {
		assert.Equal(t, model.ChatGroup, cs.ChatType)
		return nil
	})
	require.NoError(t, err)
	assert.Contains(t, m.Document().Chats, "g1@g.us")
}

func TestInstallServicePartitionsRoles(t *testing.T) {
	m := newBootedManager(t)
	def := schema.ServiceDefinition{ID: "exp", Roles: []string{"admin", "member", "child", "parent"}}
	require.NoError(t, m.InstallService("g1@g.us", model.ChatGroup, def, []string{"a1"}, []string{"b1"}))

	si := m.Document().Chats["g1@g.us"].Services["exp"]
	assert.Contains(t, si.Roles["admin"], "a1")
	assert.Contains(t, si.Roles["member"], "b1")

	err := m.InstallService("g1@g.us", model.ChatGroup, def, nil, nil)
	assert.Error(t, err, "reinstalling without uninstall must fail")
}

func TestApplyParticipantEventPromoteThenLeave(t *testing.T) {
	m := newBootedManager(t)
	def := schema.ServiceDefinition{ID: "exp", Roles: []string{"admin", "member"}}
	require.NoError(t, m.InstallService("g1@g.us", model.ChatGroup, def, []string{"a1"}, []string{"b1"}))

	require.NoError(t, m.ApplyParticipantEvent("g1@g.us", model.ChatGroup, ParticipantPromote, []string{"b1"}))
	si := m.Document().Chats["g1@g.us"].Services["exp"]
	assert.Contains(t, si.Roles["admin"], "b1")
	assert.NotContains(t, si.Roles["member"], "b1")

	require.NoError(t, m.ApplyParticipantEvent("g1@g.us", model.ChatGroup, ParticipantLeave, []string{"b1"}))
	si = m.Document().Chats["g1@g.us"].Services["exp"]
	assert.NotContains(t, si.Roles["admin"], "b1")
	assert.NotContains(t, si.Roles["member"], "b1")
}

func TestChatAPIRoleHelpers(t *testing.T) {
	m := newBootedManager(t)
	def := schema.ServiceDefinition{ID: "exp", Roles: []string{"admin", "member", "child"}}
	require.NoError(t, m.InstallService("g1@g.us", model.ChatGroup, def, []string{"a1"}, []string{"b1"}))

	api := m.ForChat("g1@g.us", "exp")
	require.NoError(t, api.AddUserRole("", "c1", "child"))
	assert.Contains(t, api.GetUsersWithRole("", "child"), "c1")

	require.NoError(t, api.RemoveUserRole("", "c1", "child"))
	assert.NotContains(t, api.GetUsersWithRole("", "child"), "c1")

	assert.Equal(t, "u1", api.ResolveUserName("u1"), "unknown user id resolves to itself")
}
