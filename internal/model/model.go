// Package model defines the runtime state document (spec §3): root
// state, per-chat state, per-(chat,service) instances, sessions, and
// blacklist entries. It is the single aggregate the state manager
// loads and saves atomically.
package model

import (
	"encoding/json"
	"time"

	"botcore/internal/keyescape"
)

// ChatType distinguishes a WhatsApp group from a private chat.
type ChatType string

const (
	ChatGroup   ChatType = "group"
	ChatPrivate ChatType = "private"
)

// BlacklistEntry is a deny rule keyed by user id, scoped by
// group/service/command wildcards (spec §3).
type BlacklistEntry struct {
	UserID   string   `json:"user_id"`
	Groups   []string `json:"groups,omitempty"`
	Services []string `json:"services,omitempty"`
	Commands []string `json:"commands,omitempty"`
}

func matchesSet(set []string, value string) bool {
	if set == nil {
		return true // "missing" means unrestricted, per spec §4.4
	}
	for _, s := range set {
		if s == "*" || s == value {
			return true
		}
	}
	return false
}

// Matches reports whether this entry denies (userID, chatID, service,
// command). Per spec §4.4: userId equals AND each of groups/services/
// commands is missing, wildcard, or contains the corresponding value.
func (e BlacklistEntry) Matches(userID, chatID, service, command string) bool {
	if e.UserID != userID {
		return false
	}
	return matchesSet(e.Groups, chatID) && matchesSet(e.Services, service) && matchesSet(e.Commands, command)
}

// ArgsOnlyBinding is the per-chat args-only-mode target.
type ArgsOnlyBinding struct {
	Service string `json:"service"`
	Command string `json:"command"`
}

// AdminSettings is the per-chat admin-scope settings bag.
type AdminSettings struct {
	BotEnabled           bool             `json:"bot_enabled"`
	ReplyOnParsingError  bool             `json:"reply_on_parsing_error"`
	DisableServicePrefix string           `json:"disable_service_prefix,omitempty"`
	ArgsOnlyCommand      *ArgsOnlyBinding `json:"args_only_command,omitempty"`
	Extra                map[string]any   `json:"extra,omitempty"`
}

// Record is one stored item of a storage collection; "_id" is always
// present once Add has run.
type Record map[string]any

// ID returns the record's "_id" field, or "" if unset.
func (r Record) ID() string {
	if v, ok := r["_id"]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// Clone returns a shallow copy of r (storage manager CRUD never
// mutates a caller's map in place).
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ServiceInstance is one installed (chat, service) pair.
type ServiceInstance struct {
	ServiceID       string              `json:"service_id"`
	Enabled         bool                `json:"enabled"`
	Roles           map[string][]string `json:"roles"`
	ServiceSettings map[string]any      `json:"service_settings,omitempty"`
	Storage         map[string][]Record `json:"storage,omitempty"`
}

// NewServiceInstance seeds role lists (every declared role gets an
// empty list so lookups never nil-panic) and storage collections.
func NewServiceInstance(serviceID string, roles, storageNames []string) *ServiceInstance {
	si := &ServiceInstance{
		ServiceID: serviceID,
		Enabled:   true,
		Roles:     make(map[string][]string, len(roles)),
		Storage:   make(map[string][]Record, len(storageNames)),
	}
	for _, r := range roles {
		si.Roles[r] = []string{}
	}
	for _, s := range storageNames {
		si.Storage[s] = []Record{}
	}
	return si
}

// HasRole reports whether userID holds role in this instance, honoring
// the "*" wildcard member.
func (si *ServiceInstance) HasRole(userID, role string) bool {
	for _, u := range si.Roles[role] {
		if u == userID || u == "*" {
			return true
		}
	}
	return false
}

// EffectiveRoles returns every role name whose user list contains
// userID or the wildcard.
func (si *ServiceInstance) EffectiveRoles(userID string) []string {
	var roles []string
	for role, users := range si.Roles {
		for _, u := range users {
			if u == userID || u == "*" {
				roles = append(roles, role)
				break
			}
		}
	}
	return roles
}

// AddRole adds userID to role if not already present.
func (si *ServiceInstance) AddRole(userID, role string) {
	for _, u := range si.Roles[role] {
		if u == userID {
			return
		}
	}
	si.Roles[role] = append(si.Roles[role], userID)
}

// RemoveRole removes userID from role.
func (si *ServiceInstance) RemoveRole(userID, role string) {
	users := si.Roles[role]
	for i, u := range users {
		if u == userID {
			si.Roles[role] = append(users[:i], users[i+1:]...)
			return
		}
	}
}

// RemoveUserEverywhere removes userID from every role list (spec §6:
// a "leave" participant event).
func (si *ServiceInstance) RemoveUserEverywhere(userID string) {
	for role := range si.Roles {
		si.RemoveRole(userID, role)
	}
}

// ChatState is the per-chat mutable aggregate.
type ChatState struct {
	ChatID         string                      `json:"chat_id"`
	ChatType       ChatType                    `json:"chat_type"`
	AdminSettings  AdminSettings               `json:"admin_settings"`
	Services       map[string]*ServiceInstance `json:"services"`
	DisplayNames   map[string]string           `json:"display_names"`
	GroupBlacklist []BlacklistEntry            `json:"group_blacklist"`
}

// NewChatState creates a lazily-initialized chat state (spec §3
// Lifecycle: "Chat state is created lazily on first message").
func NewChatState(chatID string, chatType ChatType) *ChatState {
	return &ChatState{
		ChatID:        chatID,
		ChatType:      chatType,
		AdminSettings: AdminSettings{BotEnabled: true},
		Services:      map[string]*ServiceInstance{},
		DisplayNames:  map[string]string{},
	}
}

// RootSettings is the root scope's settings snapshot.
type RootSettings struct {
	InvokePrefixPattern string         `json:"invoke_prefix_pattern"`
	Extra                map[string]any `json:"extra,omitempty"`
}

// RootState is the single global aggregate (spec §3).
type RootState struct {
	RootUsers       map[string]bool  `json:"root_users"`
	RootSettings    RootSettings     `json:"root_settings"`
	GlobalBlacklist []BlacklistEntry `json:"global_blacklist"`
}

// NewRootState seeds root state with exactly one root user (spec §3
// Lifecycle: "seeded with one root user").
func NewRootState(initialRootUser, invokePrefixPattern string) *RootState {
	return &RootState{
		RootUsers:    map[string]bool{initialRootUser: true},
		RootSettings: RootSettings{InvokePrefixPattern: invokePrefixPattern},
	}
}

// IsRoot reports whether userID is a root user.
func (r *RootState) IsRoot(userID string) bool {
	return r.RootUsers[userID]
}

// Session is the interactive multi-turn prompting state for one
// (chatId, userId, service?, command) (spec §3, §4.5).
type Session struct {
	ChatID         string         `json:"chat_id"`
	UserID         string         `json:"user_id"`
	Scope          string         `json:"scope"` // "builtin"/"admin"/"root" or a service id
	Command        string         `json:"command"`
	SyntaxIndex    int            `json:"syntax_index"`
	Args           map[string]any `json:"args"`
	PendingParams  []string       `json:"pending_params"`
	PendingOptional []bool        `json:"pending_optional"`
	CurrentIndex   int            `json:"current_index"`
	EffectiveRoles []string       `json:"effective_roles"`
	StartedAt      time.Time      `json:"started_at"`
	LastActivity   time.Time      `json:"last_activity"`
}

// CurrentParam returns the parameter name currently being prompted
// for, or "" if the session has no more pending parameters.
func (s *Session) CurrentParam() string {
	if s.CurrentIndex >= len(s.PendingParams) {
		return ""
	}
	return s.PendingParams[s.CurrentIndex]
}

// CurrentOptional reports whether the parameter currently being
// prompted for may be skipped.
func (s *Session) CurrentOptional() bool {
	if s.CurrentIndex >= len(s.PendingOptional) {
		return false
	}
	return s.PendingOptional[s.CurrentIndex]
}

// Expired reports whether the session has been idle longer than
// timeout, as of now.
func (s *Session) Expired(now time.Time, timeout time.Duration) bool {
	return now.Sub(s.LastActivity) > timeout
}

// AuditRecord is one append-only log entry (spec §3).
type AuditRecord struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	UserID     string    `json:"user_id"`
	ChatID     string    `json:"chat_id"`
	RawMessage string    `json:"raw_message"`
	Parsed     string    `json:"parsed,omitempty"`
	Status     string    `json:"status"` // pending|success|error
	Response   string    `json:"response,omitempty"`
	Error      string    `json:"error,omitempty"`
}

const (
	AuditPending = "pending"
	AuditSuccess = "success"
	AuditError   = "error"
)

// Document is the single logical aggregate the state manager loads
// and saves atomically.
type Document struct {
	Root     *RootState
	Chats    map[string]*ChatState          // keyed by raw chatID
	Sessions map[string]map[string]*Session // chatID -> userID -> Session
}

// NewDocument creates an empty document with freshly seeded root
// state.
func NewDocument(initialRootUser, invokePrefixPattern string) *Document {
	return &Document{
		Root:     NewRootState(initialRootUser, invokePrefixPattern),
		Chats:    map[string]*ChatState{},
		Sessions: map[string]map[string]*Session{},
	}
}

// persistedDocument mirrors Document but with its external-id-keyed
// maps passed through keyescape at the JSON boundary (spec §3
// key-encoding invariant; spec §9 "dots in keys are an encoding
// concern, not a model concern").
type persistedDocument struct {
	Root     *RootState                             `json:"root"`
	Chats    map[string]*persistedChatState         `json:"chats"`
	Sessions map[string]map[string]*Session         `json:"sessions"`
}

type persistedChatState struct {
	ChatID         string                      `json:"chat_id"`
	ChatType       ChatType                    `json:"chat_type"`
	AdminSettings  AdminSettings               `json:"admin_settings"`
	Services       map[string]*ServiceInstance `json:"services"`
	DisplayNames   map[string]string           `json:"display_names"`
	GroupBlacklist []BlacklistEntry            `json:"group_blacklist"`
}

// MarshalJSON applies the key-encoding invariant to every map keyed by
// an external id (chat ids as Document.Chats/Sessions keys, user ids
// as DisplayNames/Sessions-inner keys) before delegating to the
// standard encoder.
func (d *Document) MarshalJSON() ([]byte, error) {
	pd := persistedDocument{
		Root:     d.Root,
		Chats:    make(map[string]*persistedChatState, len(d.Chats)),
		Sessions: make(map[string]map[string]*Session, len(d.Sessions)),
	}
	for chatID, cs := range d.Chats {
		pd.Chats[keyescape.Encode(chatID)] = &persistedChatState{
			ChatID:         cs.ChatID,
			ChatType:       cs.ChatType,
			AdminSettings:  cs.AdminSettings,
			Services:       cs.Services,
			DisplayNames:   keyescape.EncodeMap(cs.DisplayNames),
			GroupBlacklist: cs.GroupBlacklist,
		}
	}
	for chatID, byUser := range d.Sessions {
		pd.Sessions[keyescape.Encode(chatID)] = keyescape.EncodeMap(byUser)
	}
	return json.Marshal(pd)
}

// UnmarshalJSON reverses MarshalJSON.
func (d *Document) UnmarshalJSON(data []byte) error {
	var pd persistedDocument
	if err := json.Unmarshal(data, &pd); err != nil {
		return err
	}
	d.Root = pd.Root
	d.Chats = make(map[string]*ChatState, len(pd.Chats))
	for encodedChatID, pcs := range pd.Chats {
		chatID := keyescape.Decode(encodedChatID)
		d.Chats[chatID] = &ChatState{
			ChatID:         chatID,
			ChatType:       pcs.ChatType,
			AdminSettings:  pcs.AdminSettings,
			Services:       pcs.Services,
			DisplayNames:   keyescape.DecodeMap(pcs.DisplayNames),
			GroupBlacklist: pcs.GroupBlacklist,
		}
	}
	d.Sessions = make(map[string]map[string]*Session, len(pd.Sessions))
	for encodedChatID, byUser := range pd.Sessions {
		d.Sessions[keyescape.Decode(encodedChatID)] = keyescape.DecodeMap(byUser)
	}
	return nil
}
