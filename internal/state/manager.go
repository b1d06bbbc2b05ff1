// Package state implements the State Manager (spec §4 "Runtime
// state"): the single mutable document, its chat-scoped lock map (spec
// §5 "one lock per chatId"), and the load/boot/audit lifecycle.
// Grounded on the teacher's internal/shared-dsl/session.Manager
// (map-of-handles-guarded-by-mutex shape) and internal/store (the
// persistence round trip).
package state

import (
	"context"
	"fmt"
	"sync"

	"botcore/internal/exec"
	"botcore/internal/model"
	"botcore/internal/statestore"
)

// Manager owns the single runtime document and the chat-scoped locks
// that serialize access to it. It satisfies exec.StateAPI once bound
// to a chat via ForChat.
type Manager struct {
	store statestore.Store

	mu       sync.Mutex // guards doc and chatLocks
	doc      *model.Document
	rootLock sync.Mutex
	chatLocks map[string]*sync.Mutex

	initialRootUser     string
	invokePrefixPattern string
}

// NewManager constructs a Manager bound to a persistence backend. Call
// Boot before using it.
func NewManager(store statestore.Store, initialRootUser, invokePrefixPattern string) *Manager {
	return &Manager{
		store:               store,
		chatLocks:           map[string]*sync.Mutex{},
		initialRootUser:     initialRootUser,
		invokePrefixPattern: invokePrefixPattern,
	}
}

// Boot loads the persisted document, or seeds a fresh one with one
// root user if none exists yet (spec §3 Lifecycle: "Root state is
// created once on first boot and seeded with one root user").
func (m *Manager) Boot(ctx context.Context) error {
	doc, err := m.store.LoadDocument(ctx)
	if err != nil {
		return fmt.Errorf("state: loading document at boot: %w", err)
	}
	if doc == nil {
		doc = model.NewDocument(m.initialRootUser, m.invokePrefixPattern)
		if err := m.store.SaveDocument(ctx, doc); err != nil {
			return fmt.Errorf("state: saving seeded document: %w", err)
		}
	}
	m.mu.Lock()
	m.doc = doc
	m.mu.Unlock()
	return nil
}

func (m *Manager) chatLock(chatID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.chatLocks[chatID]
	if !ok {
		lock = &sync.Mutex{}
		m.chatLocks[chatID] = lock
	}
	return lock
}

// WithChatLock runs fn with the named chat's lock held, creating the
// chat's state lazily if absent (spec §3 "Chat state is created lazily
// on first message"). The router holds this lock across permission
// check and handler execution (spec §5).
func (m *Manager) WithChatLock(chatID string, chatType model.ChatType, fn func(cs *model.ChatState) error) error {
	lock := m.chatLock(chatID)
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	cs, ok := m.doc.Chats[chatID]
	if !ok {
		cs = model.NewChatState(chatID, chatType)
		m.doc.Chats[chatID] = cs
	}
	m.mu.Unlock()

	return fn(cs)
}

// AddRootUser grants userID root scope. Used by the seed-root
// operator command; the normal `root blacklist`/`install` commands
// never add root users themselves.
func (m *Manager) AddRootUser(userID string) error {
	return m.WithRootLock(func(root *model.RootState) error {
		root.RootUsers[userID] = true
		return nil
	})
}

// WithRootLock runs fn with the global root lock held.
func (m *Manager) WithRootLock(fn func(root *model.RootState) error) error {
	m.rootLock.Lock()
	defer m.rootLock.Unlock()
	m.mu.Lock()
	root := m.doc.Root
	m.mu.Unlock()
	return fn(root)
}

// Persist saves the current document. Callers invoke this after a
// WithChatLock/WithRootLock mutation has returned; Persist takes
// neither the chat locks nor the root lock itself.
func (m *Manager) Persist(ctx context.Context) error {
	m.mu.Lock()
	doc := m.doc
	m.mu.Unlock()
	if err := m.store.SaveDocument(ctx, doc); err != nil {
		return fmt.Errorf("state: persisting document: %w", err)
	}
	return nil
}

// Document returns the live document pointer for read-mostly access
// (e.g. the router resolving a chat's admin settings before deciding
// how to parse). Callers must not mutate the tree outside a
// WithChatLock/WithRootLock callback.
func (m *Manager) Document() *model.Document {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc
}

// AppendAudit delegates to the store; callers proceed regardless of
// error (spec §3: "AuditRecords are write-only from the core", and the
// store is not on the critical path for the visible reply).
func (m *Manager) AppendAudit(ctx context.Context, rec model.AuditRecord) error {
	return m.store.AppendAudit(ctx, rec)
}

// ListAudit returns recent audit records for a chat.
func (m *Manager) ListAudit(ctx context.Context, chatID string, limit int) ([]model.AuditRecord, error) {
	return m.store.ListAudit(ctx, chatID, limit)
}

// Close releases the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}

// ServiceInstance returns the installed service instance for
// (chatID, serviceID), satisfying storage.DocumentSource.
func (m *Manager) ServiceInstance(chatID, serviceID string) (*model.ServiceInstance, bool) {
	doc := m.Document()
	cs, ok := doc.Chats[chatID]
	if !ok {
		return nil, false
	}
	si, ok := cs.Services[serviceID]
	return si, ok
}

// ForChat returns a ChatAPI bound to one chat, implementing
// exec.StateAPI for handlers invoked in that chat.
func (m *Manager) ForChat(chatID, serviceID string) *ChatAPI {
	return &ChatAPI{manager: m, chatID: chatID, serviceID: serviceID}
}

// ChatAPI is the (chat, service)-scoped view of the state manager a
// handler receives as exec.Context.State.
type ChatAPI struct {
	manager   *Manager
	chatID    string
	serviceID string
}

var _ exec.StateAPI = (*ChatAPI)(nil)

func (a *ChatAPI) serviceInstance() *model.ServiceInstance {
	doc := a.manager.Document()
	cs, ok := doc.Chats[a.chatID]
	if !ok {
		return nil
	}
	return cs.Services[a.serviceID]
}

// GetUsersWithRole returns the user ids holding role in this chat's
// installed instance of service (service overrides a.serviceID when
// non-empty, letting a handler query another service's roster).
func (a *ChatAPI) GetUsersWithRole(service, role string) []string {
	doc := a.manager.Document()
	cs, ok := doc.Chats[a.chatID]
	if !ok {
		return nil
	}
	if service == "" {
		service = a.serviceID
	}
	si, ok := cs.Services[service]
	if !ok {
		return nil
	}
	out := append([]string{}, si.Roles[role]...)
	return out
}

// AddUserRole adds userID to role within service (or a.serviceID).
func (a *ChatAPI) AddUserRole(service, userID, role string) error {
	if service == "" {
		service = a.serviceID
	}
	doc := a.manager.Document()
	cs, ok := doc.Chats[a.chatID]
	if !ok {
		return fmt.Errorf("state: chat %s has no state", a.chatID)
	}
	si, ok := cs.Services[service]
	if !ok {
		return fmt.Errorf("state: service %s not installed in chat %s", service, a.chatID)
	}
	si.AddRole(userID, role)
	return nil
}

// RemoveUserRole removes userID from role within service (or
// a.serviceID).
func (a *ChatAPI) RemoveUserRole(service, userID, role string) error {
	if service == "" {
		service = a.serviceID
	}
	doc := a.manager.Document()
	cs, ok := doc.Chats[a.chatID]
	if !ok {
		return fmt.Errorf("state: chat %s has no state", a.chatID)
	}
	si, ok := cs.Services[service]
	if !ok {
		return fmt.Errorf("state: service %s not installed in chat %s", service, a.chatID)
	}
	si.RemoveRole(userID, role)
	return nil
}

// ResolveUserName returns the display name recorded for userID in
// this chat, or userID itself if none is known.
func (a *ChatAPI) ResolveUserName(userID string) string {
	doc := a.manager.Document()
	cs, ok := doc.Chats[a.chatID]
	if !ok {
		return userID
	}
	if name, ok := cs.DisplayNames[userID]; ok && name != "" {
		return name
	}
	return userID
}
