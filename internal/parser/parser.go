package parser

import (
	"regexp"
	"strings"

	"botcore/internal/model"
	"botcore/internal/schema"
)

// ParsedCommand is the parser's output for one recognized line (spec
// §4.3 contract: "parse(body, context) -> ParsedCommand | list | none").
type ParsedCommand struct {
	// Scope is "builtin", "admin", "root", or a service id.
	Scope string
	// Command is the raw (not yet case-normalized) command name.
	Command string
	// Tokens is the ordered argument token list, already shell-tokenized.
	Tokens []string
	// ArgsOnly marks a command bound via the chat's argsOnlyCommand
	// setting rather than an explicit command-prefix line.
	ArgsOnly bool
}

// Context is everything the parser needs beyond the raw body: the
// chat's dispatch settings and the catalog for builtin-name lookup.
type Context struct {
	RootPrefix          string
	AdminPrefix         string
	InvokePrefixPattern *regexp.Regexp
	Catalog             *schema.Catalog
	AdminSettings       model.AdminSettings
	// ServiceInstalled reports whether a service id has an instance in
	// this chat, consulted for args-only mode (spec §4.3: "that service
	// is installed").
	ServiceInstalled func(serviceID string) bool
}

func isBuiltinCommand(catalog *schema.Catalog, name string) bool {
	lower := strings.ToLower(name)
	for _, n := range catalog.BuiltinCommandNames() {
		if strings.ToLower(n) == lower {
			return true
		}
	}
	return false
}

func isServiceID(catalog *schema.Catalog, name string) bool {
	_, ok := catalog.Get(name)
	return ok
}

// dispatchLine applies spec §4.3 step 5 to one already-tokenized
// prefixed line. A first token naming a catalog service dispatches the
// next token as that service's command. Returns ok=false if no scope
// claims it (silently discarded per step 5 "otherwise unknown").
func dispatchLine(ctx Context, tokens []string) (ParsedCommand, bool) {
	if len(tokens) == 0 {
		return ParsedCommand{}, false
	}
	first := tokens[0]

	switch {
	case first == ctx.RootPrefix:
		if len(tokens) < 2 {
			return ParsedCommand{}, false
		}
		return ParsedCommand{Scope: schema.ScopeRoot, Command: tokens[1], Tokens: tokens[2:]}, true
	case first == ctx.AdminPrefix:
		if len(tokens) < 2 {
			return ParsedCommand{}, false
		}
		return ParsedCommand{Scope: schema.ScopeAdmin, Command: tokens[1], Tokens: tokens[2:]}, true
	case isBuiltinCommand(ctx.Catalog, first):
		return ParsedCommand{Scope: schema.ScopeBuiltin, Command: first, Tokens: tokens[1:]}, true
	case len(tokens) >= 2 && isServiceID(ctx.Catalog, first):
		return ParsedCommand{Scope: first, Command: tokens[1], Tokens: tokens[2:]}, true
	case ctx.AdminSettings.DisableServicePrefix != "":
		return ParsedCommand{Scope: ctx.AdminSettings.DisableServicePrefix, Command: first, Tokens: tokens[1:]}, true
	default:
		return ParsedCommand{}, false
	}
}

// prefixedRemainder returns the captured remainder of line if it
// matches the invoke-prefix pattern.
func prefixedRemainder(pattern *regexp.Regexp, line string) (string, bool) {
	m := pattern.FindStringSubmatch(line)
	if m == nil || len(m) < 2 {
		return "", false
	}
	return m[1], true
}

// tryArgsOnly attempts to bind line, verbatim (no command-name token),
// against the chat's configured args-only command. Success requires
// the service to be installed and the line to tokenize. The tokens are
// not bound or type-checked against the command's parameters here, so
// a line whose arguments do not fit still yields a ParsedCommand (its
// binding failure surfaces later, from BindArguments) and is not
// retried as a mixed-line message.
func tryArgsOnly(ctx Context, line string) (ParsedCommand, bool) {
	binding := ctx.AdminSettings.ArgsOnlyCommand
	if binding == nil || binding.Service == "" || binding.Command == "" {
		return ParsedCommand{}, false
	}
	if ctx.ServiceInstalled == nil || !ctx.ServiceInstalled(binding.Service) {
		return ParsedCommand{}, false
	}
	tokens, err := tokenize(line)
	if err != nil {
		return ParsedCommand{}, false
	}
	return ParsedCommand{Scope: binding.Service, Command: binding.Command, Tokens: tokens, ArgsOnly: true}, true
}

// Parse turns body into zero or more ParsedCommands per spec §4.3.
// Argument binding against a specific command's parameter list happens
// separately via BindArguments once the caller has resolved a
// CommandDefinition and Syntax; Parse only tokenizes and dispatches.
func Parse(body string, ctx Context) []ParsedCommand {
	lines := splitLines(body)
	if len(lines) == 0 {
		return nil
	}

	firstRemainder, firstPrefixed := prefixedRemainder(ctx.InvokePrefixPattern, lines[0])

	if !firstPrefixed {
		if pc, ok := tryArgsOnly(ctx, strings.Join(lines, "\n")); ok {
			return []ParsedCommand{pc}
		}
		return mixedParse(ctx, lines)
	}

	// First line is prefixed: process every line, each independently
	// as prefixed-or-discarded (a non-prefixed line inside a message
	// whose first line IS prefixed is not retried as args-only — only
	// the whole-message fallback path does that).
	var out []ParsedCommand
	if pc, ok := dispatchPrefixedLine(ctx, firstRemainder); ok {
		out = append(out, pc)
	}
	for _, line := range lines[1:] {
		remainder, prefixed := prefixedRemainder(ctx.InvokePrefixPattern, line)
		if !prefixed {
			continue
		}
		if pc, ok := dispatchPrefixedLine(ctx, remainder); ok {
			out = append(out, pc)
		}
	}
	return out
}

func dispatchPrefixedLine(ctx Context, remainder string) (ParsedCommand, bool) {
	tokens, err := tokenize(remainder)
	if err != nil || len(tokens) == 0 {
		return ParsedCommand{}, false
	}
	return dispatchLine(ctx, tokens)
}

// mixedParse implements the fallback path of spec §4.3 step 3: each
// line is parsed as a prefixed command or, failing that, as an
// args-only line; anything that resolves neither way is discarded.
func mixedParse(ctx Context, lines []string) []ParsedCommand {
	var out []ParsedCommand
	for _, line := range lines {
		if remainder, prefixed := prefixedRemainder(ctx.InvokePrefixPattern, line); prefixed {
			if pc, ok := dispatchPrefixedLine(ctx, remainder); ok {
				out = append(out, pc)
				continue
			}
		}
		if pc, ok := tryArgsOnly(ctx, line); ok {
			out = append(out, pc)
		}
	}
	return out
}
