package schema

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"botcore/internal/exec"
)

// Catalog is the immutable, boot-time-loaded schema catalog: the
// service loader's data half. The handler-registry half lives in
// Registry (below), constructed separately so services register
// their handlers in Go code after the data catalog has loaded.
type Catalog struct {
	Types    map[string]TypeDef
	Scopes   map[string]ScopeDefinition
	Services map[string]ServiceDefinition
}

type catalogFile struct {
	Types map[string]TypeDef `yaml:"types"`
}

// rawCommandEntry is one entry of an ordered `commands:` sequence. The
// catalog source represents commands as a YAML sequence (not a
// mapping) specifically so declaration order survives decoding — the
// help generator lists builtin commands in that order (spec §8
// scenario 2).
type rawCommandEntry struct {
	Name         string      `yaml:"name"`
	Description  string      `yaml:"description"`
	Interactive  *bool       `yaml:"interactive,omitempty"`
	AllowedRoles []string    `yaml:"allowedRoles,omitempty"`
	Syntaxes     []rawSyntax `yaml:"syntaxes"`
}

type scopeFile struct {
	Settings map[string]SettingDefinition `yaml:"settings"`
	Commands []rawCommandEntry            `yaml:"commands"`
}

type serviceFile struct {
	ID                 string                        `yaml:"id"`
	DisplayName        string                        `yaml:"displayName"`
	Description        string                        `yaml:"description"`
	Roles              []string                      `yaml:"roles"`
	AllowInPrivateChat bool                          `yaml:"allowInPrivateChat"`
	OneCmdPerMsg       bool                          `yaml:"oneCmdPerMsg"`
	Settings           map[string]SettingDefinition  `yaml:"settings"`
	Storage            map[string]StorageDeclaration `yaml:"storage"`
	Commands           []rawCommandEntry             `yaml:"commands"`
}

func buildCommands(scope string, raw []rawCommandEntry) (map[string]CommandDefinition, []string, error) {
	out := make(map[string]CommandDefinition, len(raw))
	order := make([]string, 0, len(raw))
	for _, r := range raw {
		if r.Name == "" {
			return nil, nil, fmt.Errorf("%s: command entry missing name", scope)
		}
		cmd := CommandDefinition{
			Description:  r.Description,
			Interactive:  r.Interactive,
			AllowedRoles: r.AllowedRoles,
			RawSyntaxes:  r.Syntaxes,
		}
		if err := validateCommand(scope, r.Name, &cmd); err != nil {
			return nil, nil, err
		}
		out[r.Name] = cmd
		order = append(order, r.Name)
	}
	return out, order, nil
}

// Load reads the catalog from dir: dir/types.yaml, dir/scopes/*.yaml
// (one file per builtin/admin/root scope, named after the scope), and
// dir/services/*.yaml (one file per service). Loading is fatal on any
// malformed syntax (spec §4.1: "malformed syntaxes fail loading with a
// fatal error").
func Load(dir string) (*Catalog, error) {
	cat := &Catalog{
		Types:    map[string]TypeDef{},
		Scopes:   map[string]ScopeDefinition{},
		Services: map[string]ServiceDefinition{},
	}

	typesPath := filepath.Join(dir, "types.yaml")
	if data, err := os.ReadFile(typesPath); err == nil {
		var tf catalogFile
		if err := yaml.Unmarshal(data, &tf); err != nil {
			return nil, fmt.Errorf("schema: parsing %s: %w", typesPath, err)
		}
		cat.Types = tf.Types
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("schema: reading %s: %w", typesPath, err)
	}

	for _, name := range []string{ScopeBuiltin, ScopeAdmin, ScopeRoot} {
		path := filepath.Join(dir, "scopes", name+".yaml")
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			cat.Scopes[name] = ScopeDefinition{Commands: map[string]CommandDefinition{}}
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("schema: reading %s: %w", path, err)
		}
		var sf scopeFile
		if err := yaml.Unmarshal(data, &sf); err != nil {
			return nil, fmt.Errorf("schema: parsing %s: %w", path, err)
		}
		commands, order, err := buildCommands(name, sf.Commands)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", path, err)
		}
		cat.Scopes[name] = ScopeDefinition{Settings: sf.Settings, Commands: commands, CommandOrder: order}
	}

	servicesDir := filepath.Join(dir, "services")
	entries, err := os.ReadDir(servicesDir)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("schema: reading %s: %w", servicesDir, err)
		}
		entries = nil
	}
	for _, entry := range entries {
		if entry.IsDir() || !(strings.HasSuffix(entry.Name(), ".yaml") || strings.HasSuffix(entry.Name(), ".yml")) {
			continue
		}
		path := filepath.Join(servicesDir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("schema: reading %s: %w", path, err)
		}
		var svcFile serviceFile
		if err := yaml.Unmarshal(data, &svcFile); err != nil {
			return nil, fmt.Errorf("schema: parsing %s: %w", path, err)
		}
		if svcFile.ID == "" {
			return nil, fmt.Errorf("schema: %s: service id must not be empty", path)
		}
		commands, order, err := buildCommands(svcFile.ID, svcFile.Commands)
		if err != nil {
			return nil, fmt.Errorf("schema: %s: %w", path, err)
		}
		cat.Services[svcFile.ID] = ServiceDefinition{
			ID:                 svcFile.ID,
			DisplayName:        svcFile.DisplayName,
			Description:        svcFile.Description,
			Roles:              normalizeRoles(svcFile.Roles),
			AllowInPrivateChat: svcFile.AllowInPrivateChat,
			OneCmdPerMsg:       svcFile.OneCmdPerMsg,
			Commands:           commands,
			CommandOrder:       order,
			Settings:           svcFile.Settings,
			Storage:            svcFile.Storage,
		}
	}

	return cat, nil
}

// Get returns a service definition by id.
func (c *Catalog) Get(serviceName string) (ServiceDefinition, bool) {
	svc, ok := c.Services[serviceName]
	return svc, ok
}

// GetScope returns one of the builtin/admin/root scopes.
func (c *Catalog) GetScope(name string) (ScopeDefinition, bool) {
	s, ok := c.Scopes[name]
	return s, ok
}

// GetCommand looks up a command within a scope (builtin/admin/root)
// or a service id, case-insensitively, returning the canonical name.
func (c *Catalog) GetCommand(scope, name string) (string, CommandDefinition, bool) {
	if svc, ok := c.Services[scope]; ok {
		return canonicalCommandLookup(svc.Commands, name)
	}
	if sc, ok := c.Scopes[scope]; ok {
		return canonicalCommandLookup(sc.Commands, name)
	}
	return "", CommandDefinition{}, false
}

// Roles returns the ordered role list declared for a service, or the
// default [admin, member] if the service is unknown.
func (c *Catalog) Roles(serviceName string) []string {
	if svc, ok := c.Services[serviceName]; ok {
		return svc.Roles
	}
	return []string{RoleAdmin, RoleMember}
}

// BuiltinCommandNames returns builtin command names in catalog
// declaration order (spec §8 scenario 2).
func (c *Catalog) BuiltinCommandNames() []string {
	return c.Scopes[ScopeBuiltin].CommandOrder
}

// Registry maps (scope, command) to handler callables and optional
// interactive-context hooks, built at boot alongside Catalog.
type Registry struct {
	catalog     *Catalog
	handlers    map[string]exec.HandlerFunc
	interactive map[string]exec.InteractiveContextFunc
}

// NewRegistry creates an empty handler registry bound to a catalog.
func NewRegistry(catalog *Catalog) *Registry {
	return &Registry{
		catalog:     catalog,
		handlers:    map[string]exec.HandlerFunc{},
		interactive: map[string]exec.InteractiveContextFunc{},
	}
}

func registryLookupKey(scope, command string) string {
	return strings.ToLower(scope) + "\x00" + strings.ToLower(command)
}

// dashToCamel converts "add-item" to "addItem", the fallback export
// name the loader tries when no exact handler was registered under the
// command's own name.
func dashToCamel(name string) string {
	parts := strings.Split(name, "-")
	if len(parts) == 1 {
		return name
	}
	var b strings.Builder
	b.WriteString(parts[0])
	for _, p := range parts[1:] {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

// Register binds a handler to (scope, commandName). Panics on
// duplicate registration: a programming error caught at boot, not a
// runtime condition.
func (r *Registry) Register(scope, commandName string, fn exec.HandlerFunc) {
	key := registryLookupKey(scope, commandName)
	if _, exists := r.handlers[key]; exists {
		panic(fmt.Sprintf("schema: duplicate handler registration for %s.%s", scope, commandName))
	}
	r.handlers[key] = fn
}

// RegisterInteractiveContext binds an `_interactiveContext_<command>`
// hook for (scope, commandName).
func (r *Registry) RegisterInteractiveContext(scope, commandName string, fn exec.InteractiveContextFunc) {
	r.interactive[registryLookupKey(scope, commandName)] = fn
}

// GetHandler resolves a handler for (scope, commandName), preferring
// an exact match, then a dash-to-camel transform of commandName.
func (r *Registry) GetHandler(scope, commandName string) (exec.HandlerFunc, bool) {
	if fn, ok := r.handlers[registryLookupKey(scope, commandName)]; ok {
		return fn, true
	}
	camel := dashToCamel(commandName)
	if camel != commandName {
		if fn, ok := r.handlers[registryLookupKey(scope, camel)]; ok {
			return fn, true
		}
	}
	return nil, false
}

// GetInteractiveContext resolves the interactive-context hook for a
// command, if any was registered.
func (r *Registry) GetInteractiveContext(scope, commandName string) (exec.InteractiveContextFunc, bool) {
	fn, ok := r.interactive[registryLookupKey(scope, commandName)]
	return fn, ok
}

// ValidateHandlers fails fast (spec §9 design notes: "the loader
// should fail fast if a declared command has no implementation ...
// rather than at first invocation") for every builtin/admin/root
// command and every service command that has no bound handler.
func (r *Registry) ValidateHandlers() error {
	var missing []string
	check := func(scope string, commands map[string]CommandDefinition) {
		for name := range commands {
			if _, ok := r.GetHandler(scope, name); !ok {
				missing = append(missing, scope+"."+name)
			}
		}
	}
	for scopeName, scope := range r.catalog.Scopes {
		check(scopeName, scope.Commands)
	}
	for svcName, svc := range r.catalog.Services {
		check(svcName, svc.Commands)
	}
	if len(missing) > 0 {
		return fmt.Errorf("schema: no handler registered for: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Catalog returns the bound data catalog.
func (r *Registry) Catalog() *Catalog {
	return r.catalog
}
