package router

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"botcore/internal/botlog"
	"botcore/internal/exec"
	"botcore/internal/gateway"
	"botcore/internal/help"
	"botcore/internal/model"
	"botcore/internal/parser"
	"botcore/internal/permission"
	"botcore/internal/schema"
	"botcore/internal/session"
	"botcore/internal/state"
	"botcore/internal/storage"
	"botcore/internal/types"
)

// Router sequences the Type Parser, Command Parser, Permission
// Manager, Session Manager and Service Loader/Registry against one
// inbound event and emits a reply (spec §4.7). It is the only
// component holding a reference to the outbound send interface (spec
// §2).
type Router struct {
	state          *state.Manager
	catalog        *schema.Catalog
	registry       *schema.Registry
	perm           *permission.Manager
	sessions       *session.Manager
	typeParser     *types.Parser
	help           *help.Generator
	sender         exec.Sender
	logger         *zap.Logger
	storageFactory *storageFactory

	rootPrefix    string
	adminPrefix   string
	invokePattern *regexp.Regexp
}

// New wires a Router from its already-constructed dependencies.
func New(
	st *state.Manager,
	catalog *schema.Catalog,
	registry *schema.Registry,
	perm *permission.Manager,
	sessions *session.Manager,
	typeParser *types.Parser,
	helpGen *help.Generator,
	sender exec.Sender,
	logger *zap.Logger,
	rootPrefix, adminPrefix string,
	invokePattern *regexp.Regexp,
) *Router {
	return &Router{
		state: st, catalog: catalog, registry: registry, perm: perm,
		sessions: sessions, typeParser: typeParser, help: helpGen,
		sender: sender, logger: logger, storageFactory: &storageFactory{state: st},
		rootPrefix: rootPrefix, adminPrefix: adminPrefix, invokePattern: invokePattern,
	}
}

func chatTypeFromID(chatID string) model.ChatType {
	if strings.HasSuffix(chatID, "@g.us") {
		return model.ChatGroup
	}
	return model.ChatPrivate
}

// requestContext is the per-event context spec §4.7 step 1 builds
// before anything else runs.
type requestContext struct {
	MessageID   string
	ChatID      string
	UserID      string
	UserName    string
	Body        string
	Timestamp   time.Time
	IsGroup     bool
	IsPrivate   bool
	RepliedToID string
	QuotedBody  string
}

func newRequestContext(msg gateway.MessagePayload, chatType model.ChatType) requestContext {
	return requestContext{
		MessageID: msg.ID, ChatID: msg.ChatID, UserID: msg.From, UserName: msg.FromName,
		Body: msg.Body, Timestamp: time.Unix(msg.Timestamp, 0),
		IsGroup: chatType == model.ChatGroup, IsPrivate: chatType == model.ChatPrivate,
		RepliedToID: msg.RepliedToID, QuotedBody: msg.QuotedBody,
	}
}

// HandleEvent dispatches one decoded inbound event (spec §6): message
// events run the full pipeline, participant events mutate role lists,
// everything else is a no-op ("acknowledged as un-handled").
func (r *Router) HandleEvent(ctx context.Context, ev gateway.Event) (string, error) {
	switch {
	case ev.Message != nil:
		if ev.IsSelfMessage() {
			return "", nil
		}
		return r.HandleMessage(ctx, *ev.Message)
	case ev.Participants != nil:
		p := ev.Participants
		chatType := chatTypeFromID(p.ChatID)
		if err := r.state.ApplyParticipantEvent(p.ChatID, chatType, state.ParticipantEventType(p.Type), p.JIDs); err != nil {
			return "", fmt.Errorf("router: applying participant event: %w", err)
		}
		return "", r.state.Persist(ctx)
	default:
		return "", nil
	}
}

// HandleMessage runs one inbound message through
// parse -> route -> authorize -> (prompt) -> execute -> persist -> reply
// (spec §4.7) and sends the resulting reply, if any, through the
// outbound sender.
func (r *Router) HandleMessage(ctx context.Context, msg gateway.MessagePayload) (string, error) {
	chatType := chatTypeFromID(msg.ChatID)
	rc := newRequestContext(msg, chatType)
	log := botlog.ForEvent(r.logger, rc.ChatID, rc.UserID)

	auditID := uuid.NewString()
	r.audit(ctx, model.AuditRecord{ID: auditID, Timestamp: rc.Timestamp, UserID: rc.UserID, ChatID: rc.ChatID, RawMessage: rc.Body, Status: model.AuditPending}, log)

	var reply, label string
	var routeErr error
	lockErr := r.state.WithChatLock(rc.ChatID, chatType, func(cs *model.ChatState) error {
		if rc.UserName != "" {
			cs.DisplayNames[rc.UserID] = rc.UserName
		}
		reply, label, routeErr = r.route(cs, chatType, rc, log)
		return nil
	})
	if lockErr != nil {
		return "", fmt.Errorf("router: %w", lockErr)
	}

	if persistErr := r.state.Persist(ctx); persistErr != nil {
		log.Error("persisting state", zap.Error(persistErr))
		routeErr = errors.Join(routeErr, fmt.Errorf("persisting state: %w", ErrIntegrationError))
	}

	final := model.AuditRecord{ID: auditID, Timestamp: rc.Timestamp, UserID: rc.UserID, ChatID: rc.ChatID, RawMessage: rc.Body, Parsed: label}
	if routeErr != nil {
		final.Status = model.AuditError
		final.Error = routeErr.Error()
	} else {
		final.Status = model.AuditSuccess
		final.Response = reply
	}
	r.audit(ctx, final, log)

	if reply != "" {
		if sendErr := r.sender.SendReply(rc.ChatID, reply, rc.MessageID); sendErr != nil {
			log.Error("sending reply", zap.Error(sendErr))
			return reply, errors.Join(routeErr, fmt.Errorf("sending reply: %w", ErrIntegrationError))
		}
	}
	return reply, routeErr
}

func (r *Router) audit(ctx context.Context, rec model.AuditRecord, log *zap.Logger) {
	if err := r.state.AppendAudit(ctx, rec); err != nil {
		log.Error("appending audit record", zap.Error(err))
	}
}

// route implements spec §4.7 steps 3-6, run with the chat lock held.
func (r *Router) route(cs *model.ChatState, chatType model.ChatType, rc requestContext, log *zap.Logger) (string, string, error) {
	if sess, ok := r.sessions.Active(rc.ChatID, rc.UserID, rc.Timestamp); ok {
		return r.routeSession(chatType, rc, sess, log)
	}

	pctx := parser.Context{
		RootPrefix: r.rootPrefix, AdminPrefix: r.adminPrefix, InvokePrefixPattern: r.invokePattern,
		Catalog: r.catalog, AdminSettings: cs.AdminSettings,
		ServiceInstalled: func(id string) bool { _, ok := cs.Services[id]; return ok },
	}
	parsed := parser.Parse(rc.Body, pctx)
	if len(parsed) == 0 {
		return "", "", nil
	}

	root := r.state.Document().Root
	evaluations := make([]evaluation, len(parsed))
	interactiveCount := 0
	for i, pc := range parsed {
		evaluations[i] = r.evaluate(root, cs, chatType, rc.UserID, pc)
		if evaluations[i].kind == evalInteractive {
			interactiveCount++
		}
	}
	if interactiveCount > 1 {
		return "Only one interactive command is allowed per message.", "", fmt.Errorf("multiple interactive commands in one message: %w", ErrParse)
	}

	executedServices := map[string]bool{}
	var replies, labels []string
	var errs []error
	for _, ev := range evaluations {
		if svc, ok := r.catalog.Get(ev.pc.Scope); ok && svc.OneCmdPerMsg {
			if executedServices[ev.pc.Scope] {
				continue
			}
			executedServices[ev.pc.Scope] = true
		}
		labels = append(labels, ev.pc.Scope+"."+ev.pc.Command)
		reply, err := r.applyEvaluation(cs, chatType, rc, ev, log)
		if reply != "" {
			replies = append(replies, reply)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return strings.Join(replies, "\n"), strings.Join(labels, ","), errors.Join(errs...)
}

func (r *Router) routeSession(chatType model.ChatType, rc requestContext, sess *model.Session, log *zap.Logger) (string, string, error) {
	label := sess.Scope + "." + sess.Command
	result := r.sessions.Step(sess, strings.TrimSpace(rc.Body), rc.Timestamp)
	switch result.Outcome {
	case session.OutcomeCancelled:
		return "Cancelled.", label, nil
	case session.OutcomeSkipRejected:
		prompt := r.buildPrompt(sess.Scope, sess.Command, sess.SyntaxIndex, result.NextParam, sess.Args)
		return "That parameter is required and cannot be skipped.\n" + prompt, label, nil
	case session.OutcomeContinue:
		return r.buildPrompt(sess.Scope, sess.Command, sess.SyntaxIndex, result.NextParam, sess.Args), label, nil
	case session.OutcomeExpired:
		return "", "", nil
	case session.OutcomeComplete:
		_, cmd, ok := r.catalog.GetCommand(sess.Scope, sess.Command)
		if !ok {
			return "", label, fmt.Errorf("%s.%s: %w", sess.Scope, sess.Command, ErrUnknownCommand)
		}
		finalArgs, err := r.revalidate(cmd, sess.SyntaxIndex, sess, result.FinalArgs)
		if err != nil {
			return "⚠️ " + err.Error(), label, fmt.Errorf("%s: %w", err.Error(), ErrParse)
		}
		reply, err := r.invokeHandler(chatType, rc, sess.Scope, sess.Command, result.FinalRoles, finalArgs, log)
		return reply, label, err
	default:
		return "", label, nil
	}
}

// revalidate re-parses every session-collected pending parameter
// against its declared type before COMPLETE (spec §9 open question
// (b), decided here in favor of strict re-validation: session.Step
// stores raw strings, so a value typed during an interactive prompt
// is only as trustworthy as the type parser confirms it to be).
func (r *Router) revalidate(cmd schema.CommandDefinition, syntaxIndex int, sess *model.Session, args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, name := range sess.PendingParams {
		param, ok := findParameter(cmd, syntaxIndex, name)
		if !ok {
			continue
		}
		var rawPtr *string
		if v, present := args[name]; present && v != nil {
			if s, ok := v.(string); ok {
				rawPtr = &s
			}
		}
		res := r.typeParser.Parse(rawPtr, param.Def)
		if !res.OK {
			return nil, fmt.Errorf("%s: %s", name, res.Reason)
		}
		out[name] = res.Value
	}
	return out, nil
}

func (r *Router) invokeHandler(chatType model.ChatType, rc requestContext, scope, canonical string, roles []string, args map[string]any, log *zap.Logger) (string, error) {
	handler, ok := r.registry.GetHandler(scope, canonical)
	if !ok {
		return "", fmt.Errorf("%s.%s: no handler registered: %w", scope, canonical, ErrHandlerError)
	}
	serviceID := ""
	if scope != schema.ScopeBuiltin && scope != schema.ScopeAdmin && scope != schema.ScopeRoot {
		serviceID = scope
	}

	ectx := exec.NewContext(r.sender)
	ectx.Args = args
	ectx.ChatID = rc.ChatID
	ectx.UserID = rc.UserID
	ectx.UserName = rc.UserName
	if ectx.UserName == "" {
		ectx.UserName = r.state.ForChat(rc.ChatID, serviceID).ResolveUserName(rc.UserID)
	}
	ectx.IsGroup = chatType == model.ChatGroup
	ectx.RepliedToID = rc.RepliedToID
	ectx.QuotedBody = rc.QuotedBody
	ectx.UserRoles = roles
	ectx.Storage = storage.NewManager(r.state, rc.ChatID, serviceID)
	ectx.State = r.state.ForChat(rc.ChatID, serviceID)
	ectx.StateManager = r.state
	ectx.StorageManager = r.storageFactory
	ectx.ServiceLoader = r.registry
	ectx.HelpGenerator = r.help
	ectx.SessionManager = r.sessions

	text, err := handler(ectx)
	if err != nil {
		log.Error("handler error", zap.String("scope", scope), zap.String("command", canonical), zap.Error(err))
		return "⚠️ An error occurred while processing your command.", fmt.Errorf("%s.%s: %v: %w", scope, canonical, err, ErrHandlerError)
	}
	// A handler returning ("", nil) is the Go-native rendering of the
	// spec's "absent" reply shape: no text, no error, no reply sent.
	return text, nil
}

func (r *Router) applyEvaluation(cs *model.ChatState, chatType model.ChatType, rc requestContext, ev evaluation, log *zap.Logger) (string, error) {
	switch ev.kind {
	case evalError:
		return r.renderErrorReply(ev, cs.AdminSettings), ev.err
	case evalInteractive:
		s := r.sessions.Start(rc.ChatID, rc.UserID, ev.pc.Scope, ev.canonical, ev.decision.SyntaxIndex, ev.boundArgs, ev.pending, ev.pendingOptional, ev.decision.EffectiveRoles, rc.Timestamp)
		prompt := r.buildPrompt(ev.pc.Scope, ev.canonical, ev.decision.SyntaxIndex, s.CurrentParam(), ev.boundArgs)
		return cancellationHint(prompt), nil
	case evalExecute:
		return r.invokeHandler(chatType, rc, ev.pc.Scope, ev.canonical, ev.decision.EffectiveRoles, ev.bind.Args, log)
	default:
		return "", nil
	}
}

// renderErrorReply applies spec §7's per-kind surfacing rules:
// UnknownCommand and PermissionDenied are always shown, ParseError
// only when the chat opts in or the command was explicitly prefixed
// ("Args-only mismatches are silent").
func (r *Router) renderErrorReply(ev evaluation, admin model.AdminSettings) string {
	switch {
	case errors.Is(ev.err, ErrUnknownCommand):
		return "Unknown command. Type .help for a list of commands."
	case errors.Is(ev.err, ErrPermissionDenied):
		return "⚠️ " + ev.message
	case errors.Is(ev.err, ErrParse):
		if admin.ReplyOnParsingError || !ev.pc.ArgsOnly {
			return "⚠️ " + ev.message
		}
		return ""
	default:
		return ""
	}
}
