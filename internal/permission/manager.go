// Package permission implements the Permission Manager (spec §4.4):
// effective role computation, blacklist evaluation, per-scope
// authorization, and syntax selection. Grounded on the teacher's
// internal/agent authorization-gate style (a single Authorize-shaped
// entry point returning either a decision or a reason string).
package permission

import (
	"fmt"

	"botcore/internal/model"
	"botcore/internal/schema"
)

// Decision is the outcome of a successful authorization check (spec
// §4.4: "the manager returns {allowed, effectiveRoles, syntaxIndex}").
type Decision struct {
	EffectiveRoles []string
	SyntaxIndex    int
}

// Manager evaluates authorization against the live state document.
type Manager struct{}

// New constructs a Manager. Stateless: every method takes the document
// slice it needs, so no state manager reference is stored.
func New() *Manager {
	return &Manager{}
}

// EffectiveRoles computes (userId, chatId, service)'s role set per
// spec §4.4: root users implicitly hold root+admin; every role whose
// user list in the service instance contains userId or "*" is added.
func EffectiveRoles(root *model.RootState, si *model.ServiceInstance, userID string) []string {
	var roles []string
	if root != nil && root.IsRoot(userID) {
		roles = append(roles, schema.RoleRoot, schema.RoleAdmin)
	}
	if si != nil {
		roles = append(roles, si.EffectiveRoles(userID)...)
	}
	return dedupStrings(roles)
}

func dedupStrings(in []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func intersects(allowed, effective []string) bool {
	for _, a := range allowed {
		if a == "*" {
			return true
		}
		for _, e := range effective {
			if a == e {
				return true
			}
		}
	}
	return false
}

// blacklisted reports whether any entry in either list denies this
// (userId, chatId, service, command) tuple.
func blacklisted(global, group []model.BlacklistEntry, userID, chatID, service, command string) bool {
	for _, e := range global {
		if e.Matches(userID, chatID, service, command) {
			return true
		}
	}
	for _, e := range group {
		if e.Matches(userID, chatID, service, command) {
			return true
		}
	}
	return false
}

// Request bundles everything Authorize needs about one parsed command.
type Request struct {
	Scope      string // "builtin", "admin", "root", or a service id
	Command    string
	ChatID     string
	ChatType   model.ChatType
	UserID     string
	Root       *model.RootState
	Chat       *model.ChatState
	ServiceDef *schema.ServiceDefinition // nil unless Scope is a service
	Syntaxes   []schema.Syntax           // command's declared syntaxes, in order
}

// Authorize runs spec §4.4's algorithm and returns a Decision or a
// single human-readable denial reason.
func (m *Manager) Authorize(req Request) (Decision, error) {
	if req.Chat != nil && !req.Chat.AdminSettings.BotEnabled {
		return Decision{}, fmt.Errorf("bot is disabled in this chat")
	}

	var si *model.ServiceInstance
	if req.Chat != nil && req.ServiceDef != nil {
		si = req.Chat.Services[req.ServiceDef.ID]
	}
	effective := EffectiveRoles(req.Root, si, req.UserID)

	var groupBlacklist []model.BlacklistEntry
	if req.Chat != nil {
		groupBlacklist = req.Chat.GroupBlacklist
	}
	var globalBlacklist []model.BlacklistEntry
	if req.Root != nil {
		globalBlacklist = req.Root.GlobalBlacklist
	}
	if blacklisted(globalBlacklist, groupBlacklist, req.UserID, req.ChatID, req.Scope, req.Command) {
		return Decision{}, fmt.Errorf("you are blacklisted from this command")
	}

	isRoot := req.Root != nil && req.Root.IsRoot(req.UserID)

	switch req.Scope {
	case schema.ScopeBuiltin:
		return Decision{EffectiveRoles: effective, SyntaxIndex: 0}, nil

	case schema.ScopeRoot:
		if !isRoot {
			return Decision{}, fmt.Errorf("permission denied: root access required")
		}
		return Decision{EffectiveRoles: effective, SyntaxIndex: 0}, nil

	case schema.ScopeAdmin:
		if isRoot {
			return Decision{EffectiveRoles: effective, SyntaxIndex: 0}, nil
		}
		if req.ChatType == model.ChatPrivate {
			return Decision{}, fmt.Errorf("permission denied: admin commands are unavailable in private chats for non-root users")
		}
		if !hasAnyServiceAdmin(req.Chat, req.UserID) {
			return Decision{}, fmt.Errorf("permission denied: admin access required")
		}
		return Decision{EffectiveRoles: dedupStrings(append(effective, schema.RoleAdmin)), SyntaxIndex: 0}, nil

	default:
		return m.authorizeService(req, si, effective)
	}
}

func hasAnyServiceAdmin(cs *model.ChatState, userID string) bool {
	if cs == nil {
		return false
	}
	for _, si := range cs.Services {
		if si.HasRole(userID, schema.RoleAdmin) {
			return true
		}
	}
	return false
}

func (m *Manager) authorizeService(req Request, si *model.ServiceInstance, effective []string) (Decision, error) {
	if req.ServiceDef == nil || si == nil {
		return Decision{}, fmt.Errorf("permission denied: service %s is not installed in this chat", req.Scope)
	}
	if !si.Enabled {
		return Decision{}, fmt.Errorf("permission denied: service %s is disabled in this chat", req.Scope)
	}
	if req.ChatType == model.ChatPrivate && !req.ServiceDef.AllowInPrivateChat {
		return Decision{}, fmt.Errorf("permission denied: service %s is unavailable in private chats", req.Scope)
	}

	idx, ok := SelectSyntax(req.Syntaxes, effective)
	if !ok {
		return Decision{}, fmt.Errorf("permission denied: no matching syntax for your roles")
	}
	return Decision{EffectiveRoles: effective, SyntaxIndex: idx}, nil
}

// SelectSyntax returns the index of the first syntax whose
// AllowedRoles contains "*" or intersects effective (spec §4.4 step
// 4). Admin is never an implicit bypass: it must be listed explicitly.
func SelectSyntax(syntaxes []schema.Syntax, effective []string) (int, bool) {
	for i, s := range syntaxes {
		if intersects(s.AllowedRoles, effective) {
			return i, true
		}
	}
	return 0, false
}
