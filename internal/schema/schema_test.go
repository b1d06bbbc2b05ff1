package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"botcore/internal/exec"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoadNormalizesRoles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "services", "exp.yaml"), `
id: exp
displayName: Expenses
roles: [child, parent]
commands:
  - name: add
    description: add an expense
    syntaxes:
      - allowedRoles: ["*"]
        parameters:
          - amount: {type: int}
          - item: {type: string}
`)
	cat, err := Load(dir)
	require.NoError(t, err)
	svc, ok := cat.Get("exp")
	require.True(t, ok)
	assert.ElementsMatch(t, []string{"child", "parent", "admin", "member"}, svc.Roles)
}

func TestLoadFailsOnEmptySyntax(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "services", "bad.yaml"), `
id: bad
roles: []
commands:
  - name: broken
    syntaxes:
      - allowedRoles: []
        parameters: []
`)
	_, err := Load(dir)
	require.Error(t, err)
}

func TestGetCommandCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scopes", "builtin.yaml"), `
commands:
  - name: Ping
    description: pong test
    syntaxes:
      - allowedRoles: ["*"]
        parameters: []
`)
	cat, err := Load(dir)
	require.NoError(t, err)
	canonical, def, ok := cat.GetCommand(ScopeBuiltin, "ping")
	require.True(t, ok)
	assert.Equal(t, "Ping", canonical)
	assert.Equal(t, "pong test", def.Description)
}

func TestBuiltinCommandOrderPreserved(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scopes", "builtin.yaml"), `
commands:
  - name: zeta
    description: z
    syntaxes: [{allowedRoles: ["*"], parameters: []}]
  - name: alpha
    description: a
    syntaxes: [{allowedRoles: ["*"], parameters: []}]
`)
	cat, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha"}, cat.BuiltinCommandNames())
}

func TestRegistryDashToCamelFallback(t *testing.T) {
	cat := &Catalog{Types: map[string]TypeDef{}, Scopes: map[string]ScopeDefinition{}, Services: map[string]ServiceDefinition{}}
	reg := NewRegistry(cat)
	called := false
	reg.Register("exp", "addItem", func(ctx *exec.Context) (string, error) {
		called = true
		return "ok", nil
	})
	fn, ok := reg.GetHandler("exp", "add-item")
	require.True(t, ok)
	_, _ = fn(nil)
	assert.True(t, called)
}

func TestValidateHandlersReportsMissing(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "scopes", "builtin.yaml"), `
commands:
  - name: ping
    description: pong
    syntaxes: [{allowedRoles: ["*"], parameters: []}]
`)
	cat, err := Load(dir)
	require.NoError(t, err)
	reg := NewRegistry(cat)
	err = reg.ValidateHandlers()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "builtin.ping")
}
