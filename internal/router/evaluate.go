package router

import (
	"fmt"
	"sort"
	"strings"

	"botcore/internal/model"
	"botcore/internal/parser"
	"botcore/internal/permission"
	"botcore/internal/schema"
)

type evalKind int

const (
	evalError evalKind = iota
	evalInteractive
	evalExecute
)

// evaluation is the side-effect-free result of running one
// ParsedCommand through the unknown-command/permission/binding checks
// of spec §4.7 step 5, computed for every parsed command up front so
// the "only one interactive command per message" rule (step 6) can be
// enforced before any session opens or handler runs.
type evaluation struct {
	pc        parser.ParsedCommand
	canonical string
	decision  permission.Decision
	bind      parser.BindResult

	pending         []string
	pendingOptional []bool
	boundArgs       map[string]any

	kind    evalKind
	err     error
	message string
}

func (r *Router) evaluate(root *model.RootState, cs *model.ChatState, chatType model.ChatType, userID string, pc parser.ParsedCommand) evaluation {
	canonical, cmd, ok := r.catalog.GetCommand(pc.Scope, pc.Command)
	if !ok {
		return evaluation{pc: pc, kind: evalError, err: fmt.Errorf("%s.%s: %w", pc.Scope, pc.Command, ErrUnknownCommand)}
	}

	var serviceDef *schema.ServiceDefinition
	if svc, ok := r.catalog.Get(pc.Scope); ok {
		serviceDef = &svc
	}

	req := permission.Request{
		Scope: pc.Scope, Command: canonical, ChatID: cs.ChatID, ChatType: chatType, UserID: userID,
		Root: root, Chat: cs, ServiceDef: serviceDef, Syntaxes: cmd.Syntaxes,
	}
	decision, err := r.perm.Authorize(req)
	if err != nil {
		return evaluation{pc: pc, canonical: canonical, kind: evalError, message: err.Error(), err: fmt.Errorf("%s: %w", err.Error(), ErrPermissionDenied)}
	}

	syntax := cmd.Syntaxes[decision.SyntaxIndex]
	bind := parser.BindArguments(r.typeParser, syntax.Parameters, pc.Tokens)

	if len(bind.Invalid) > 0 {
		msg := formatInvalid(bind.Invalid)
		return evaluation{pc: pc, canonical: canonical, decision: decision, kind: evalError, message: msg, err: fmt.Errorf("%s: %w", msg, ErrParse)}
	}

	if len(bind.Missing) > 0 {
		if cmd.IsInteractive() && len(pc.Tokens) == 0 {
			pending, pendingOptional := buildPending(syntax.Parameters, bind)
			return evaluation{
				pc: pc, canonical: canonical, decision: decision, bind: bind,
				pending: pending, pendingOptional: pendingOptional,
				boundArgs: copyArgsExcluding(bind.Args, pending),
				kind:      evalInteractive,
			}
		}
		msg := "missing required parameter(s): " + strings.Join(bind.Missing, ", ")
		return evaluation{pc: pc, canonical: canonical, decision: decision, kind: evalError, message: msg, err: fmt.Errorf("%s: %w", msg, ErrParse)}
	}

	return evaluation{pc: pc, canonical: canonical, decision: decision, bind: bind, kind: evalExecute}
}

// buildPending selects every parameter from the first missing one
// onward as the session's pending list, so a parameter declared
// optional further down a syntax's parameter list still gets its own
// prompt (and its skippability honored) rather than silently keeping
// whatever BindArguments already defaulted it to.
func buildPending(params []schema.Parameter, bind parser.BindResult) ([]string, []bool) {
	if len(bind.Missing) == 0 {
		return nil, nil
	}
	idx := -1
	for i, p := range params {
		if p.Name == bind.Missing[0] {
			idx = i
			break
		}
	}
	if idx == -1 {
		return append([]string{}, bind.Missing...), make([]bool, len(bind.Missing))
	}
	pending := make([]string, 0, len(params)-idx)
	optional := make([]bool, 0, len(params)-idx)
	for _, p := range params[idx:] {
		pending = append(pending, p.Name)
		optional = append(optional, p.Def.Optional)
	}
	return pending, optional
}

func copyArgsExcluding(args map[string]any, exclude []string) map[string]any {
	excl := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		excl[e] = true
	}
	out := make(map[string]any, len(args))
	for k, v := range args {
		if !excl[k] {
			out[k] = v
		}
	}
	return out
}

func formatInvalid(invalid map[string]string) string {
	parts := make([]string, 0, len(invalid))
	for name, reason := range invalid {
		parts = append(parts, fmt.Sprintf("%s: %s", name, reason))
	}
	sort.Strings(parts)
	return "invalid argument(s): " + strings.Join(parts, "; ")
}
