package help

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/schema"
)

func testCatalog() *schema.Catalog {
	min := 1
	return &schema.Catalog{
		Types: map[string]schema.TypeDef{"int": {Description: "integer"}},
		Scopes: map[string]schema.ScopeDefinition{
			schema.ScopeBuiltin: {
				Commands: map[string]schema.CommandDefinition{
					"ping": {Description: "replies Pong"},
					"help": {Description: "lists commands", Syntaxes: []schema.Syntax{
						{AllowedRoles: []string{"*"}, Parameters: []schema.Parameter{
							{Name: "command", Def: schema.ParameterDefinition{Type: "word", Optional: true, Min: &min}},
						}},
					}},
				},
				CommandOrder: []string{"ping", "help"},
			},
		},
		Services: map[string]schema.ServiceDefinition{},
	}
}

func TestListBuiltinsPreservesDeclarationOrder(t *testing.T) {
	g := New(testCatalog())
	out := g.ListBuiltins()
	require.True(t, strings.HasPrefix(out, "*Commands*"))
	pingIdx := strings.Index(out, "ping")
	helpIdx := strings.Index(out, "help")
	assert.Less(t, pingIdx, helpIdx)
}

func TestDetailRendersSyntaxAndRoles(t *testing.T) {
	g := New(testCatalog())
	out, ok := g.Detail(schema.ScopeBuiltin, "help")
	require.True(t, ok)
	assert.Contains(t, out, "Syntax 1")
	assert.Contains(t, out, "command")
}

func TestDetailUnknownCommandNotFound(t *testing.T) {
	g := New(testCatalog())
	_, ok := g.Detail(schema.ScopeBuiltin, "nonexistent")
	assert.False(t, ok)
}
