// Package router implements the Message Router (spec §4.7): the
// orchestrator that sequences every other component and is the only
// one holding a reference to the outbound send interface (spec §2).
package router

import "errors"

// The six error kinds spec §7 requires callers to branch on, modelled
// as sentinel values rather than the teacher's looser errors.New/
// fmt.Errorf mix, so callers use errors.Is instead of string matching.
var (
	ErrParse            = errors.New("parse error")
	ErrUnknownCommand   = errors.New("unknown command")
	ErrPermissionDenied = errors.New("permission denied")
	ErrSessionExpired   = errors.New("session expired")
	ErrHandlerError     = errors.New("handler error")
	ErrIntegrationError = errors.New("integration error")
)
