// Package exec defines the shapes a service handler is invoked with
// (spec §6, "Handler execution context"). It sits below schema, state,
// storage and router in the dependency graph: those packages implement
// its interfaces structurally, so exec never imports them back.
package exec

// StorageAPI is the storage manager surface scoped to one
// (chat, service, storageName) triple, handed to a handler already
// bound to its own service's collection.
type StorageAPI interface {
	Add(name string, item map[string]any) (map[string]any, error)
	Get(name, id string) (map[string]any, bool)
	GetByIndex(name string, index int) (map[string]any, bool)
	Update(name, id string, patch map[string]any) (map[string]any, bool)
	UpdateByIndex(name string, index int, patch map[string]any) (map[string]any, bool)
	Delete(name, id string) bool
	DeleteByIndex(name string, index int) bool
	Clear(name string)
	Query(name string, filter map[string]any) []map[string]any
	Aggregate(name, field, op string, filter map[string]any) (float64, error)
	Paginate(name string, page, limit int) []map[string]any
	Count(name string, filter map[string]any) int
}

// StateAPI is the chat-scoped subset of state manager helpers a
// handler may call directly.
type StateAPI interface {
	GetUsersWithRole(service, role string) []string
	AddUserRole(service, userID, role string) error
	RemoveUserRole(service, userID, role string) error
	ResolveUserName(userID string) string
}

// Sender is the outbound half of the execution context; handlers use
// it through the SendMessage/SendReply/SendError convenience funcs on
// Context, not directly.
type Sender interface {
	SendMessage(chatID, text string) error
	SendReply(chatID, text, replyToMessageID string) error
}

// Context is what a service handler receives, per spec §6.
type Context struct {
	Args         map[string]any
	ChatID       string
	UserID       string
	UserName     string
	IsGroup      bool
	RepliedToID  string
	QuotedBody   string
	UserRoles    []string
	Storage      StorageAPI
	State        StateAPI

	// Wider handles a handler may reach for beyond its own storage/state
	// scope. Typed as `any` deliberately: only the built-in and root
	// scope handlers (help, install, blacklist management) need them,
	// and giving them a concrete type here would force exec to import
	// schema/state/storage/session, inverting the dependency graph.
	StateManager   any
	StorageManager any
	ServiceLoader  any
	HelpGenerator  any
	SessionManager any

	sender Sender
}

// NewContext builds a Context with its outbound sender wired.
func NewContext(sender Sender) *Context {
	return &Context{Args: map[string]any{}, sender: sender}
}

// SendMessage sends an unprompted message to chatID.
func (c *Context) SendMessage(chatID, text string) error {
	return c.sender.SendMessage(chatID, text)
}

// SendReply replies to the message currently being handled.
func (c *Context) SendReply(chatID, text, replyToMessageID string) error {
	return c.sender.SendReply(chatID, text, replyToMessageID)
}

// SendError sends a user-visible error message, quoting the original
// message the way a normal reply would.
func (c *Context) SendError(chatID, text, replyToMessageID string) error {
	return c.sender.SendReply(chatID, "⚠️ "+text, replyToMessageID)
}

// HandlerFunc is the callable a service loader maps a (scope, command)
// pair to.
type HandlerFunc func(ctx *Context) (string, error)

// InteractiveResultKind discriminates the shapes an interactive
// context hook may return (spec §4.5).
type InteractiveResultKind int

const (
	// KindNone means the hook returned nothing; the router shows the
	// bare parameter prompt with no extra context.
	KindNone InteractiveResultKind = iota
	KindText
	KindList
	KindSelected
	KindMessage
)

// ListItem is one entry of a KindList result.
type ListItem struct {
	Label    string
	Sublabel string
}

// InteractiveResult is what an `_interactiveContext_<command>` hook
// returns.
type InteractiveResult struct {
	Kind         InteractiveResultKind
	Text         string
	List         []ListItem
	EmptyMessage string
	Selected     string
	Message      string
}

// InteractiveContextFunc previews the prompt for the next pending
// parameter of a command already being collected interactively.
type InteractiveContextFunc func(collected map[string]any, paramName string) (InteractiveResult, bool)
