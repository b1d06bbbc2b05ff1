package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/model"
	"botcore/internal/schema"
)

func newExpChat(t *testing.T) (*model.RootState, *model.ChatState, *schema.ServiceDefinition) {
	t.Helper()
	root := model.NewRootState("root@s.whatsapp.net", `^\.(?!\.)\s*([\s\S]+)$`)
	cs := model.NewChatState("g1@g.us", model.ChatGroup)
	si := model.NewServiceInstance("exp", []string{"admin", "member", "child", "parent"}, []string{"items"})
	si.AddRole("child1", "child")
	si.AddRole("parent1", "parent")
	si.AddRole("member1", "member")
	cs.Services["exp"] = si
	def := &schema.ServiceDefinition{ID: "exp", Roles: si.EffectiveRoles("child1"), AllowInPrivateChat: false}
	return root, cs, def
}

func editSyntaxes() []schema.Syntax {
	return []schema.Syntax{
		{AllowedRoles: []string{"child"}, Parameters: []schema.Parameter{
			{Name: "itemNo", Def: schema.ParameterDefinition{Type: "int"}},
			{Name: "price", Def: schema.ParameterDefinition{Type: "int", Optional: true}},
			{Name: "item", Def: schema.ParameterDefinition{Type: "string", Optional: true}},
		}},
		{AllowedRoles: []string{"parent"}, Parameters: []schema.Parameter{
			{Name: "childNo", Def: schema.ParameterDefinition{Type: "int"}},
			{Name: "itemNo", Def: schema.ParameterDefinition{Type: "int"}},
			{Name: "price", Def: schema.ParameterDefinition{Type: "int", Optional: true}},
			{Name: "item", Def: schema.ParameterDefinition{Type: "string", Optional: true}},
		}},
	}
}

func TestAuthorizeServiceSelectsChildSyntax(t *testing.T) {
	root, cs, def := newExpChat(t)
	m := New()
	dec, err := m.Authorize(Request{
		Scope: "exp", Command: "edit", ChatID: "g1@g.us", ChatType: model.ChatGroup,
		UserID: "child1", Root: root, Chat: cs, ServiceDef: def, Syntaxes: editSyntaxes(),
	})
	require.NoError(t, err)
	assert.Equal(t, 0, dec.SyntaxIndex)
}

func TestAuthorizeServiceDeniesMemberOnlyRole(t *testing.T) {
	root, cs, def := newExpChat(t)
	m := New()
	_, err := m.Authorize(Request{
		Scope: "exp", Command: "edit", ChatID: "g1@g.us", ChatType: model.ChatGroup,
		UserID: "member1", Root: root, Chat: cs, ServiceDef: def, Syntaxes: editSyntaxes(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "permission")
}

func TestAuthorizeAdminRequiresServiceAdminRole(t *testing.T) {
	root, cs, _ := newExpChat(t)
	cs.Services["exp"].AddRole("admin1", "admin")
	m := New()

	_, err := m.Authorize(Request{Scope: schema.ScopeAdmin, Command: "settings", ChatID: "g1@g.us", ChatType: model.ChatGroup, UserID: "member1", Root: root, Chat: cs})
	assert.Error(t, err)

	dec, err := m.Authorize(Request{Scope: schema.ScopeAdmin, Command: "settings", ChatID: "g1@g.us", ChatType: model.ChatGroup, UserID: "admin1", Root: root, Chat: cs})
	require.NoError(t, err)
	assert.Contains(t, dec.EffectiveRoles, "admin")
}

func TestAuthorizeRootRequiresRootUser(t *testing.T) {
	root, cs, _ := newExpChat(t)
	m := New()
	_, err := m.Authorize(Request{Scope: schema.ScopeRoot, Command: "install", ChatID: "g1@g.us", ChatType: model.ChatGroup, UserID: "member1", Root: root, Chat: cs})
	assert.Error(t, err)

	_, err = m.Authorize(Request{Scope: schema.ScopeRoot, Command: "install", ChatID: "g1@g.us", ChatType: model.ChatGroup, UserID: "root@s.whatsapp.net", Root: root, Chat: cs})
	assert.NoError(t, err)
}

func TestAuthorizeGlobalBlacklistDenies(t *testing.T) {
	root, cs, def := newExpChat(t)
	root.GlobalBlacklist = []model.BlacklistEntry{{UserID: "child1"}}
	m := New()
	_, err := m.Authorize(Request{
		Scope: "exp", Command: "edit", ChatID: "g1@g.us", ChatType: model.ChatGroup,
		UserID: "child1", Root: root, Chat: cs, ServiceDef: def, Syntaxes: editSyntaxes(),
	})
	assert.Error(t, err)
}

func TestAuthorizeBuiltinAlwaysAllowed(t *testing.T) {
	m := New()
	dec, err := m.Authorize(Request{Scope: schema.ScopeBuiltin, Command: "ping", ChatID: "g1@g.us", ChatType: model.ChatGroup, UserID: "anyone"})
	require.NoError(t, err)
	assert.Equal(t, 0, dec.SyntaxIndex)
}

func TestSelectSyntaxWildcardMatches(t *testing.T) {
	syntaxes := []schema.Syntax{{AllowedRoles: []string{"*"}}}
	idx, ok := SelectSyntax(syntaxes, nil)
	assert.True(t, ok)
	assert.Equal(t, 0, idx)
}
