// Package builtin registers the bot's builtin, admin and root scope
// handlers (spec §4.1 Service Loader, builtin/admin/root scopes):
// "ping"/"help" for everyone, "auditlog"/"blacklist"/"install"/
// "uninstall" for root, and "blacklist" for chat admins. Grounded on
// the teacher's internal/cli command files (one small handler per
// file/command, each taking the already-constructed dependency it
// needs rather than reaching for a package-level singleton).
package builtin

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"botcore/internal/exec"
	"botcore/internal/help"
	"botcore/internal/model"
	"botcore/internal/schema"
	"botcore/internal/state"
)

// Register binds every builtin/admin/root handler this package
// implements into reg. catalog is needed up front to resolve a
// service id against its schema.ServiceDefinition for install/
// uninstall.
func Register(reg *schema.Registry, catalog *schema.Catalog) {
	reg.Register(schema.ScopeBuiltin, "ping", ping)
	reg.Register(schema.ScopeBuiltin, "help", helpList)

	reg.Register(schema.ScopeAdmin, "blacklist", adminBlacklist)

	reg.Register(schema.ScopeRoot, "auditlog", auditLog)
	reg.Register(schema.ScopeRoot, "blacklist", rootBlacklist)
	reg.Register(schema.ScopeRoot, "install", install(catalog))
	reg.Register(schema.ScopeRoot, "uninstall", uninstall)
}

func ping(ctx *exec.Context) (string, error) {
	return "Pong", nil
}

func helpList(ctx *exec.Context) (string, error) {
	gen, ok := ctx.HelpGenerator.(*help.Generator)
	if !ok {
		return "", fmt.Errorf("builtin.help: help generator not wired")
	}
	if cmd, present := ctx.Args["command"]; present {
		name, _ := cmd.(string)
		if name != "" {
			scope, commandName := splitHelpTarget(name)
			if detail, ok := gen.Detail(scope, commandName); ok {
				return detail, nil
			}
			return "No such command: " + name, nil
		}
	}
	return gen.ListBuiltins(), nil
}

// splitHelpTarget lets "help exp.add" address a service command
// explicitly; a bare name is looked up as a builtin.
func splitHelpTarget(name string) (string, string) {
	if idx := strings.Index(name, "."); idx >= 0 {
		return name[:idx], name[idx+1:]
	}
	return schema.ScopeBuiltin, name
}

// auditLog is root-only (spec SPEC_FULL.md §12 "Audit log query
// surface"): `root auditlog <chatId> [limit]` lists the last N audit
// records for a chat, newest first.
func auditLog(ctx *exec.Context) (string, error) {
	chatID, _ := ctx.Args["chatId"].(string)
	if chatID == "" {
		chatID = ctx.ChatID
	}
	limit := 20
	if raw, ok := ctx.Args["limit"]; ok {
		if n, ok2 := raw.(int); ok2 && n > 0 {
			limit = n
		}
	}
	sm, ok := ctx.StateManager.(*state.Manager)
	if !ok {
		return "", fmt.Errorf("builtin.auditlog: state manager not wired")
	}
	records, err := sm.ListAudit(context.Background(), chatID, limit)
	if err != nil {
		return "", fmt.Errorf("listing audit log: %w", err)
	}
	if len(records) == 0 {
		return "No audit records for " + chatID + ".", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "*Audit log for %s*\n", chatID)
	for _, rec := range records {
		fmt.Fprintf(&b, "- [%s] %s: %q (%s)\n", rec.Timestamp.Format("2006-01-02 15:04:05"), rec.Status, rec.RawMessage, rec.UserID)
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

// adminBlacklist implements `admin blacklist add|remove|list <userId>
// [service] [command]` scoped to the chat's GroupBlacklist.
func adminBlacklist(ctx *exec.Context) (string, error) {
	sub, _ := ctx.Args["action"].(string)
	userID, _ := ctx.Args["userId"].(string)
	service, _ := ctx.Args["service"].(string)
	command, _ := ctx.Args["command"].(string)

	sm, ok := ctx.StateManager.(*state.Manager)
	if !ok {
		return "", fmt.Errorf("builtin.blacklist: state manager not wired")
	}

	var result string
	err := sm.WithChatLock(ctx.ChatID, chatTypeFor(ctx), func(cs *model.ChatState) error {
		switch strings.ToLower(sub) {
		case "add":
			cs.GroupBlacklist = append(cs.GroupBlacklist, newEntry(userID, ctx.ChatID, service, command))
			result = "Blacklisted " + userID + " in this chat."
		case "remove":
			cs.GroupBlacklist = removeEntries(cs.GroupBlacklist, userID, service, command)
			result = "Removed blacklist entries for " + userID + " in this chat."
		case "list":
			result = renderBlacklist(cs.GroupBlacklist)
		default:
			result = "Usage: blacklist add|remove|list <userId> [service] [command]"
		}
		return nil
	})
	return result, err
}

// rootBlacklist is the root-scope equivalent, scoped to the global
// blacklist.
func rootBlacklist(ctx *exec.Context) (string, error) {
	sub, _ := ctx.Args["action"].(string)
	userID, _ := ctx.Args["userId"].(string)
	service, _ := ctx.Args["service"].(string)
	command, _ := ctx.Args["command"].(string)

	sm, ok := ctx.StateManager.(*state.Manager)
	if !ok {
		return "", fmt.Errorf("builtin.blacklist: state manager not wired")
	}

	var result string
	err := sm.WithRootLock(func(root *model.RootState) error {
		switch strings.ToLower(sub) {
		case "add":
			root.GlobalBlacklist = append(root.GlobalBlacklist, newEntry(userID, "", service, command))
			result = "Globally blacklisted " + userID + "."
		case "remove":
			root.GlobalBlacklist = removeEntries(root.GlobalBlacklist, userID, service, command)
			result = "Removed global blacklist entries for " + userID + "."
		case "list":
			result = renderBlacklist(root.GlobalBlacklist)
		default:
			result = "Usage: blacklist add|remove|list <userId> [service] [command]"
		}
		return nil
	})
	return result, err
}

func newEntry(userID, chatID, service, command string) model.BlacklistEntry {
	e := model.BlacklistEntry{UserID: userID}
	if chatID != "" {
		e.Groups = []string{chatID}
	}
	if service != "" {
		e.Services = []string{service}
	}
	if command != "" {
		e.Commands = []string{command}
	}
	return e
}

func removeEntries(entries []model.BlacklistEntry, userID, service, command string) []model.BlacklistEntry {
	out := make([]model.BlacklistEntry, 0, len(entries))
	for _, e := range entries {
		if e.UserID == userID && matchesScope(e.Services, service) && matchesScope(e.Commands, command) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func matchesScope(set []string, value string) bool {
	if value == "" {
		return true
	}
	for _, s := range set {
		if s == value {
			return true
		}
	}
	return false
}

func renderBlacklist(entries []model.BlacklistEntry) string {
	if len(entries) == 0 {
		return "No blacklist entries."
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, fmt.Sprintf("%s (services=%v, commands=%v)", e.UserID, e.Services, e.Commands))
	}
	sort.Strings(names)
	return "*Blacklist*\n- " + strings.Join(names, "\n- ")
}

// install is `root install <serviceId> <chatId> [adminIds] [memberIds]`
// (SPEC_FULL.md §12 "root install/uninstall"). adminIds/memberIds are
// taken as explicit comma-bearing list arguments rather than fetched
// live from the chat, since the core deliberately never speaks the
// WhatsApp protocol (spec §1 Non-goals).
func install(catalog *schema.Catalog) exec.HandlerFunc {
	return func(ctx *exec.Context) (string, error) {
		serviceID, _ := ctx.Args["serviceId"].(string)
		chatID, _ := ctx.Args["targetChatId"].(string)
		if chatID == "" {
			chatID = ctx.ChatID
		}
		def, ok := catalog.Get(serviceID)
		if !ok {
			return "Unknown service: " + serviceID, nil
		}
		sm, ok := ctx.StateManager.(*state.Manager)
		if !ok {
			return "", fmt.Errorf("builtin.install: state manager not wired")
		}
		adminIDs := toStringSlice(ctx.Args["adminIds"])
		memberIDs := toStringSlice(ctx.Args["memberIds"])
		if err := sm.InstallService(chatID, chatTypeForID(chatID), def, adminIDs, memberIDs); err != nil {
			return "", fmt.Errorf("installing %s: %w", serviceID, err)
		}
		return "Installed " + def.DisplayName + " (" + serviceID + ") in " + chatID + ".", nil
	}
}

func uninstall(ctx *exec.Context) (string, error) {
	serviceID, _ := ctx.Args["serviceId"].(string)
	chatID, _ := ctx.Args["targetChatId"].(string)
	if chatID == "" {
		chatID = ctx.ChatID
	}
	sm, ok := ctx.StateManager.(*state.Manager)
	if !ok {
		return "", fmt.Errorf("builtin.uninstall: state manager not wired")
	}
	if err := sm.UninstallService(chatID, chatTypeForID(chatID), serviceID); err != nil {
		return "", fmt.Errorf("uninstalling %s: %w", serviceID, err)
	}
	return "Uninstalled " + serviceID + " from " + chatID + ".", nil
}

func toStringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func chatTypeFor(ctx *exec.Context) model.ChatType {
	if ctx.IsGroup {
		return model.ChatGroup
	}
	return model.ChatPrivate
}

func chatTypeForID(chatID string) model.ChatType {
	if strings.HasSuffix(chatID, "@g.us") {
		return model.ChatGroup
	}
	return model.ChatPrivate
}

