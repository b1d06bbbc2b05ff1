package router

import (
	"fmt"
	"strings"

	"botcore/internal/exec"
	"botcore/internal/schema"
)

// findParameter locates paramName within a command's chosen syntax.
func findParameter(cmd schema.CommandDefinition, syntaxIndex int, paramName string) (schema.Parameter, bool) {
	if syntaxIndex < 0 || syntaxIndex >= len(cmd.Syntaxes) {
		return schema.Parameter{}, false
	}
	for _, p := range cmd.Syntaxes[syntaxIndex].Parameters {
		if p.Name == paramName {
			return p, true
		}
	}
	return schema.Parameter{}, false
}

func typeDescription(catalog *schema.Catalog, typeName string) string {
	if def, ok := catalog.Types[typeName]; ok && def.Description != "" {
		return def.Description
	}
	return typeName
}

// renderInteractiveContext turns an exec.InteractiveResult into the
// leading context block placed above the bare parameter prompt (spec
// §4.5 "Prompting").
func renderInteractiveContext(res exec.InteractiveResult) string {
	switch res.Kind {
	case exec.KindText:
		return res.Text
	case exec.KindList:
		if len(res.List) == 0 {
			return res.EmptyMessage
		}
		var b strings.Builder
		for i, item := range res.List {
			if item.Sublabel != "" {
				fmt.Fprintf(&b, "%d. %s (%s)\n", i+1, item.Label, item.Sublabel)
			} else {
				fmt.Fprintf(&b, "%d. %s\n", i+1, item.Label)
			}
		}
		return strings.TrimRight(b.String(), "\n")
	case exec.KindSelected:
		return "Selected: " + res.Selected
	case exec.KindMessage:
		return res.Message
	default:
		return ""
	}
}

// buildPrompt renders the full prompt for paramName of (scope,
// canonicalCommand) per spec §4.5: "context (if any), blank line, then
// *<param description>?* _(<type description>)_ with an optional
// _or "skip"_ suffix".
func (r *Router) buildPrompt(scope, canonicalCommand string, syntaxIndex int, paramName string, collected map[string]any) string {
	_, cmd, ok := r.catalog.GetCommand(scope, canonicalCommand)
	if !ok {
		return fmt.Sprintf("*%s?*", paramName)
	}
	param, _ := findParameter(cmd, syntaxIndex, paramName)

	label := paramName
	if len(label) > 0 {
		label = strings.ToUpper(label[:1]) + label[1:]
	}
	if param.Def.Description != "" {
		label = param.Def.Description
	}

	base := fmt.Sprintf("*%s?* _(%s)_", label, typeDescription(r.catalog, param.Def.Type))
	if param.Def.Optional {
		base += ` _or "skip"_`
	}

	var context string
	if hook, ok := r.registry.GetInteractiveContext(scope, canonicalCommand); ok {
		if res, present := hook(collected, paramName); present {
			context = renderInteractiveContext(res)
		}
	}
	if context == "" {
		return base
	}
	return context + "\n\n" + base
}

// cancellationHint prefixes the first prompt of a newly opened session
// (spec §4.7: "reply with the first prompt (prefixed by a short
// cancellation hint)").
func cancellationHint(prompt string) string {
	return "_(reply \"cancel\" to abort)_\n" + prompt
}
