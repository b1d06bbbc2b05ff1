package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentJSONRoundTripWithDottedIDs(t *testing.T) {
	doc := NewDocument("1111@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	chatID := "120363012345@g.us"
	cs := NewChatState(chatID, ChatGroup)
	cs.DisplayNames["1111@s.whatsapp.net"] = "Alice"
	doc.Chats[chatID] = cs
	doc.Sessions[chatID] = map[string]*Session{
		"1111@s.whatsapp.net": {ChatID: chatID, UserID: "1111@s.whatsapp.net", Scope: "exp", Command: "add"},
	}

	data, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.NotContains(t, string(data), `"120363012345@g.us":`, "raw dotted chat id must not appear as a JSON key")

	var roundTripped Document
	require.NoError(t, json.Unmarshal(data, &roundTripped))
	assert.Equal(t, doc.Chats[chatID].DisplayNames, roundTripped.Chats[chatID].DisplayNames)
	assert.Contains(t, roundTripped.Chats, chatID)
	assert.Contains(t, roundTripped.Sessions[chatID], "1111@s.whatsapp.net")
}

func TestServiceInstanceRoles(t *testing.T) {
	si := NewServiceInstance("exp", []string{"admin", "member", "child", "parent"}, []string{"items"})
	si.AddRole("u1", "child")
	si.AddRole("u1", "child") // idempotent
	assert.True(t, si.HasRole("u1", "child"))
	assert.ElementsMatch(t, []string{"child"}, si.EffectiveRoles("u1"))

	si.RemoveRole("u1", "child")
	assert.False(t, si.HasRole("u1", "child"))
}

func TestServiceInstanceWildcardRole(t *testing.T) {
	si := NewServiceInstance("exp", []string{"admin", "member"}, nil)
	si.Roles["member"] = []string{"*"}
	assert.True(t, si.HasRole("anyone", "member"))
}

func TestRemoveUserEverywhere(t *testing.T) {
	si := NewServiceInstance("exp", []string{"admin", "member", "child"}, nil)
	si.AddRole("u1", "admin")
	si.AddRole("u1", "child")
	si.RemoveUserEverywhere("u1")
	assert.False(t, si.HasRole("u1", "admin"))
	assert.False(t, si.HasRole("u1", "child"))
}

func TestBlacklistEntryMatches(t *testing.T) {
	e := BlacklistEntry{UserID: "u1", Groups: []string{"g1"}, Commands: []string{"ping"}}
	assert.True(t, e.Matches("u1", "g1", "anything", "ping"))
	assert.False(t, e.Matches("u1", "g2", "anything", "ping"), "group not in set")
	assert.False(t, e.Matches("u1", "g1", "anything", "other"), "command not in set")
	assert.False(t, e.Matches("u2", "g1", "anything", "ping"), "wrong user")

	wildcard := BlacklistEntry{UserID: "u1", Groups: []string{"*"}}
	assert.True(t, wildcard.Matches("u1", "anygroup", "svc", "cmd"))

	unrestricted := BlacklistEntry{UserID: "u1"}
	assert.True(t, unrestricted.Matches("u1", "anygroup", "svc", "cmd"), "missing set = unrestricted")
}
