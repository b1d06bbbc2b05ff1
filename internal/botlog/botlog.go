// Package botlog builds the process-wide structured logger (spec §10.1
// ambient logging). Grounded on theRebelliousNerd-codenerd's
// cmd/nerd/main.go zap wiring (NewProductionConfig, debug level
// switch, per-call zap.String/zap.Error fields) — the teacher itself
// only reaches for the bare log package, so this concern is
// enrichment from the rest of the pack rather than a teacher-file
// adaptation.
package botlog

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger. BOT_LOG_LEVEL=debug switches to
// development-style console output with debug-level enabled;
// otherwise a production JSON encoder is used.
func New() (*zap.Logger, error) {
	if strings.EqualFold(os.Getenv("BOT_LOG_LEVEL"), "debug") {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	return zap.NewProduction()
}

// ForEvent returns a child logger tagged with the fields common to
// every log line produced while handling one inbound event.
func ForEvent(base *zap.Logger, chatID, userID string) *zap.Logger {
	return base.With(zap.String("chat_id", chatID), zap.String("user_id", userID))
}

// MaskConnString redacts the credential portion of a database
// connection string before it is ever logged (e.g. at boot, when
// reporting the store backend in use).
func MaskConnString(connStr string) string {
	at := strings.Index(connStr, "@")
	scheme := strings.Index(connStr, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return connStr
	}
	return connStr[:scheme+3] + "***" + connStr[at:]
}
