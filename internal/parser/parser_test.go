package parser

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/model"
	"botcore/internal/schema"
	"botcore/internal/types"
)

var invokePattern = regexp.MustCompile(`^\.([^.\s][\s\S]*|\s[\s\S]*)$`)

func testCatalog() *schema.Catalog {
	return &schema.Catalog{
		Types: map[string]schema.TypeDef{},
		Scopes: map[string]schema.ScopeDefinition{
			schema.ScopeBuiltin: {
				Commands:     map[string]schema.CommandDefinition{"ping": {}},
				CommandOrder: []string{"ping"},
			},
			schema.ScopeAdmin: {Commands: map[string]schema.CommandDefinition{}},
			schema.ScopeRoot:  {Commands: map[string]schema.CommandDefinition{}},
		},
		Services: map[string]schema.ServiceDefinition{},
	}
}

func baseContext() Context {
	return Context{
		RootPrefix:          "root",
		AdminPrefix:         "admin",
		InvokePrefixPattern: invokePattern,
		Catalog:             testCatalog(),
	}
}

func TestTokenizeQuotesAndEscapes(t *testing.T) {
	tokens, err := tokenize(`add "Lunch out" 50 \50`)
	require.NoError(t, err)
	assert.Equal(t, []string{"add", "Lunch out", "50", "50"}, tokens)
}

func TestParsePingDispatchesBuiltin(t *testing.T) {
	pcs := Parse(".ping", baseContext())
	require.Len(t, pcs, 1)
	assert.Equal(t, schema.ScopeBuiltin, pcs[0].Scope)
	assert.Equal(t, "ping", pcs[0].Command)
}

func TestParseRootPrefixDispatchesRootScope(t *testing.T) {
	pcs := Parse(".root install exp", baseContext())
	require.Len(t, pcs, 1)
	assert.Equal(t, schema.ScopeRoot, pcs[0].Scope)
	assert.Equal(t, "install", pcs[0].Command)
	assert.Equal(t, []string{"exp"}, pcs[0].Tokens)
}

func TestParseDisableServicePrefixFallback(t *testing.T) {
	ctx := baseContext()
	ctx.AdminSettings = model.AdminSettings{DisableServicePrefix: "exp"}
	pcs := Parse(".add Lunch 50", ctx)
	require.Len(t, pcs, 1)
	assert.Equal(t, "exp", pcs[0].Scope)
	assert.Equal(t, "add", pcs[0].Command)
}

func TestParseUnknownPrefixedCommandDiscarded(t *testing.T) {
	pcs := Parse(".nonsense", baseContext())
	assert.Empty(t, pcs)
}

func TestParseArgsOnlyBindsWholeMessage(t *testing.T) {
	ctx := baseContext()
	ctx.AdminSettings = model.AdminSettings{ArgsOnlyCommand: &model.ArgsOnlyBinding{Service: "exp", Command: "add"}}
	ctx.ServiceInstalled = func(id string) bool { return id == "exp" }

	pcs := Parse("75 Coffee", ctx)
	require.Len(t, pcs, 1)
	assert.True(t, pcs[0].ArgsOnly)
	assert.Equal(t, "exp", pcs[0].Scope)
	assert.Equal(t, []string{"75", "Coffee"}, pcs[0].Tokens)
}

func TestParseArgsOnlyServiceNotInstalledYieldsNoReply(t *testing.T) {
	ctx := baseContext()
	ctx.AdminSettings = model.AdminSettings{ArgsOnlyCommand: &model.ArgsOnlyBinding{Service: "exp", Command: "add"}}
	ctx.ServiceInstalled = func(id string) bool { return false }

	pcs := Parse("75 Coffee", ctx)
	assert.Empty(t, pcs)
}

func TestBindArgumentsLastStringConsumesRemainder(t *testing.T) {
	tp := types.New(testCatalog())
	params := []schema.Parameter{
		{Name: "amount", Def: schema.ParameterDefinition{Type: "int"}},
		{Name: "item", Def: schema.ParameterDefinition{Type: "string"}},
	}
	res := BindArguments(tp, params, []string{"50", "Lunch", "at", "noon"})
	assert.Equal(t, 50, res.Args["amount"])
	assert.Equal(t, "Lunch at noon", res.Args["item"])
	assert.Empty(t, res.Missing)
}

func TestBindArgumentsMissingRequiredRecorded(t *testing.T) {
	tp := types.New(testCatalog())
	params := []schema.Parameter{
		{Name: "amount", Def: schema.ParameterDefinition{Type: "int"}},
		{Name: "item", Def: schema.ParameterDefinition{Type: "string"}},
	}
	res := BindArguments(tp, params, []string{"50"})
	assert.Equal(t, 50, res.Args["amount"])
	assert.Equal(t, []string{"item"}, res.Missing)
}

func TestBindArgumentsOptionalDefaultApplied(t *testing.T) {
	tp := types.New(testCatalog())
	params := []schema.Parameter{
		{Name: "price", Def: schema.ParameterDefinition{Type: "int", Optional: true, Default: 0}},
	}
	res := BindArguments(tp, params, nil)
	assert.Equal(t, 0, res.Args["price"])
	assert.Empty(t, res.Missing)
}

func TestBindArgumentsInvalidValueRecorded(t *testing.T) {
	tp := types.New(testCatalog())
	params := []schema.Parameter{
		{Name: "amount", Def: schema.ParameterDefinition{Type: "int"}},
	}
	res := BindArguments(tp, params, []string{"notanumber"})
	assert.Contains(t, res.Invalid, "amount")
}
