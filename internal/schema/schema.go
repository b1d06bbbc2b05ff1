// Package schema implements the Service Loader (spec §4.1): an
// immutable, boot-time-loaded view of the command catalog, plus the
// (scope, command) -> handler registry the router dispatches through.
package schema

import (
	"fmt"
	"strings"
)

// TypeDef describes one entry of the type catalog.
type TypeDef struct {
	Description string   `yaml:"description"`
	DerivedFrom string   `yaml:"derivedFrom,omitempty"`
	Examples    []string `yaml:"examples,omitempty"`
}

// ParameterDefinition is one parameter of one Syntax.
type ParameterDefinition struct {
	Type        string `yaml:"type"`
	IsList      bool   `yaml:"isList,omitempty"`
	Optional    bool   `yaml:"optional,omitempty"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
	Min         *int   `yaml:"min,omitempty"`
	Max         *int   `yaml:"max,omitempty"`
}

// Parameter pairs a parameter name with its definition; Syntax keeps an
// ordered list of these since parameter order is significant (spec §3).
type Parameter struct {
	Name string
	Def  ParameterDefinition
}

// Syntax is one alternative signature of a command.
type Syntax struct {
	AllowedRoles []string    `yaml:"allowedRoles"`
	Parameters   []Parameter `yaml:"-"`
}

// rawSyntax mirrors Syntax but keeps Parameters as an ordered YAML
// mapping (map[string]ParameterDefinition loses order in plain YAML
// decoding, so the catalog source represents a syntax's parameters as
// a YAML sequence of single-key maps and rawSyntax reassembles it).
type rawSyntax struct {
	AllowedRoles []string                     `yaml:"allowedRoles"`
	Parameters   []map[string]ParameterDefinition `yaml:"parameters"`
}

func (s *Syntax) fromRaw(r rawSyntax) error {
	s.AllowedRoles = r.AllowedRoles
	s.Parameters = make([]Parameter, 0, len(r.Parameters))
	for _, entry := range r.Parameters {
		if len(entry) != 1 {
			return fmt.Errorf("syntax parameter entry must have exactly one key, got %d", len(entry))
		}
		for name, def := range entry {
			s.Parameters = append(s.Parameters, Parameter{Name: name, Def: def})
		}
	}
	return nil
}

// CommandDefinition describes one command within a scope or service.
type CommandDefinition struct {
	Description   string   `yaml:"description"`
	Interactive   *bool    `yaml:"interactive,omitempty"` // default true, resolved by IsInteractive()
	AllowedRoles  []string `yaml:"allowedRoles,omitempty"`
	RawSyntaxes   []rawSyntax `yaml:"syntaxes"`
	Syntaxes      []Syntax    `yaml:"-"`
}

// IsInteractive resolves the interactive flag, defaulting to true.
func (c CommandDefinition) IsInteractive() bool {
	if c.Interactive == nil {
		return true
	}
	return *c.Interactive
}

// StorageDeclaration describes one storage collection a service owns.
type StorageDeclaration struct {
	Description string `yaml:"description,omitempty"`
}

// SettingDefinition describes one admin/root/service setting.
type SettingDefinition struct {
	Type        string `yaml:"type"`
	Default     any    `yaml:"default,omitempty"`
	Description string `yaml:"description,omitempty"`
}

// ScopeDefinition is one of the builtin/admin/root scopes.
type ScopeDefinition struct {
	Settings     map[string]SettingDefinition `yaml:"settings,omitempty"`
	Commands     map[string]CommandDefinition `yaml:"commands"`
	CommandOrder []string                     `yaml:"-"` // declaration order, for help listing
}

// ServiceDefinition describes one installable service.
type ServiceDefinition struct {
	ID                 string                         `yaml:"id"`
	DisplayName        string                         `yaml:"displayName"`
	Description        string                         `yaml:"description,omitempty"`
	Roles              []string                       `yaml:"roles"`
	AllowInPrivateChat bool                           `yaml:"allowInPrivateChat,omitempty"`
	OneCmdPerMsg       bool                           `yaml:"oneCmdPerMsg,omitempty"`
	Commands           map[string]CommandDefinition   `yaml:"commands"`
	CommandOrder       []string                       `yaml:"-"`
	Settings           map[string]SettingDefinition   `yaml:"settings,omitempty"`
	Storage            map[string]StorageDeclaration  `yaml:"storage,omitempty"`
}

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleRoot   = "root"

	ScopeBuiltin = "builtin"
	ScopeAdmin   = "admin"
	ScopeRoot    = "root"
)

func hasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// normalizeRoles ensures admin and member are always present, appending
// them (in that order, after whatever the catalog declared) when
// missing, per spec §4.1 ("missing admin/member roles are implicitly
// added").
func normalizeRoles(roles []string) []string {
	out := append([]string{}, roles...)
	if !hasRole(out, RoleAdmin) {
		out = append(out, RoleAdmin)
	}
	if !hasRole(out, RoleMember) {
		out = append(out, RoleMember)
	}
	return out
}

func validateCommand(scope, name string, cmd *CommandDefinition) error {
	cmd.Syntaxes = make([]Syntax, 0, len(cmd.RawSyntaxes))
	for i, raw := range cmd.RawSyntaxes {
		var s Syntax
		if err := s.fromRaw(raw); err != nil {
			return fmt.Errorf("%s.%s: syntax %d: %w", scope, name, i, err)
		}
		if len(s.AllowedRoles) == 0 {
			return fmt.Errorf("%s.%s: syntax %d: allowedRoles must not be empty", scope, name, i)
		}
		cmd.Syntaxes = append(cmd.Syntaxes, s)
	}
	if len(cmd.Syntaxes) == 0 {
		return fmt.Errorf("%s.%s: command must declare at least one syntax", scope, name)
	}
	return nil
}

// canonicalCommandLookup does a case-insensitive lookup against a
// commands map, returning the canonical (as-declared) name.
func canonicalCommandLookup(commands map[string]CommandDefinition, name string) (string, CommandDefinition, bool) {
	if def, ok := commands[name]; ok {
		return name, def, true
	}
	lower := strings.ToLower(name)
	for canonical, def := range commands {
		if strings.ToLower(canonical) == lower {
			return canonical, def, true
		}
	}
	return "", CommandDefinition{}, false
}
