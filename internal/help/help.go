// Package help implements the Help Generator (spec §4, table share
// "Help Generator"): the `*Commands*` builtin listing (spec §8
// scenario 2) and the `help <command>` detail view (SPEC_FULL.md §12
// supplemented feature). Grounded on the teacher's
// internal/dsl_templates rendering style (walk a catalog, join
// sections with blank lines).
package help

import (
	"fmt"
	"sort"
	"strings"

	"botcore/internal/schema"
)

// Generator renders help text from a loaded catalog.
type Generator struct {
	catalog *schema.Catalog
}

// New binds a Generator to a catalog.
func New(catalog *schema.Catalog) *Generator {
	return &Generator{catalog: catalog}
}

// ListBuiltins renders "*Commands*" followed by one bullet per builtin
// command, in declaration order (spec §8 scenario 2).
func (g *Generator) ListBuiltins() string {
	var b strings.Builder
	b.WriteString("*Commands*\n")
	scope, _ := g.catalog.GetScope(schema.ScopeBuiltin)
	for _, name := range scope.CommandOrder {
		cmd := scope.Commands[name]
		if cmd.Description != "" {
			fmt.Fprintf(&b, "- %s: %s\n", name, cmd.Description)
		} else {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// Detail renders the full syntax breakdown for one command within
// scope (a builtin/admin/root scope name or a service id).
func (g *Generator) Detail(scopeName, commandName string) (string, bool) {
	canonical, cmd, ok := g.catalog.GetCommand(scopeName, commandName)
	if !ok {
		return "", false
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*%s*", canonical)
	if cmd.Description != "" {
		fmt.Fprintf(&b, " — %s", cmd.Description)
	}
	b.WriteString("\n")

	for i, syn := range cmd.Syntaxes {
		roles := append([]string{}, syn.AllowedRoles...)
		sort.Strings(roles)
		fmt.Fprintf(&b, "\nSyntax %d (roles: %s):\n", i+1, strings.Join(roles, ", "))
		if len(syn.Parameters) == 0 {
			b.WriteString("  (no parameters)\n")
			continue
		}
		for _, p := range syn.Parameters {
			desc := g.typeDescription(p.Def.Type)
			suffix := ""
			if p.Def.Optional {
				suffix = ", optional"
			}
			if p.Def.IsList {
				desc = "list<" + desc + ">"
			}
			fmt.Fprintf(&b, "  - %s (%s%s)", p.Name, desc, suffix)
			if p.Def.Description != "" {
				fmt.Fprintf(&b, ": %s", p.Def.Description)
			}
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n"), true
}

func (g *Generator) typeDescription(typeName string) string {
	if def, ok := g.catalog.Types[typeName]; ok && def.Description != "" {
		return def.Description
	}
	return typeName
}
