// Package config reads the bot's env-var tunables, mirroring the
// teacher's internal/config.GetDataStoreConfig/IsMockMode shape.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// StoreType discriminates the persistence backend.
type StoreType int

const (
	PostgresStoreType StoreType = iota
	MockStoreType
)

// Config is every env-var-driven tunable the core reads at boot
// (spec §6 "Configuration / tunables").
type Config struct {
	StoreType           StoreType
	DBConnString        string
	RootPrefix          string
	AdminPrefix         string
	CommandPrefix       string
	InvokePrefixPattern string
	SessionTimeout      time.Duration
	OutboundTimeout     time.Duration
	InitialRootUser     string
	SchemaDir           string
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDurationEnv(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

// GetConfig assembles Config from the environment, defaulting every
// field except BOT_INITIAL_ROOT_USER (required on first boot; the
// caller decides how to fail when it is unset).
func GetConfig() Config {
	storeType := strings.ToLower(os.Getenv("BOT_STORE_TYPE"))
	cfg := Config{
		StoreType:           PostgresStoreType,
		DBConnString:        getEnv("BOT_DB_CONN_STRING", "postgres://localhost:5432/postgres?sslmode=disable"),
		RootPrefix:          getEnv("BOT_ROOT_PREFIX", "root"),
		AdminPrefix:         getEnv("BOT_ADMIN_PREFIX", "admin"),
		CommandPrefix:       getEnv("BOT_COMMAND_PREFIX", "."),
		InvokePrefixPattern: getEnv("BOT_INVOKE_PREFIX_PATTERN", `^\.([^.\s][\s\S]*|\s[\s\S]*)$`),
		SessionTimeout:      getDurationEnv("BOT_SESSION_TIMEOUT", 5*time.Minute),
		OutboundTimeout:     getDurationEnv("BOT_OUTBOUND_TIMEOUT", 30*time.Second),
		InitialRootUser:     os.Getenv("BOT_INITIAL_ROOT_USER"),
		SchemaDir:           getEnv("BOT_SCHEMA_DIR", "./schema"),
	}
	if storeType == "mock" {
		cfg.StoreType = MockStoreType
	}
	return cfg
}

// IsMockMode reports whether BOT_STORE_TYPE selects the in-memory store.
func IsMockMode() bool {
	return strings.EqualFold(os.Getenv("BOT_STORE_TYPE"), "mock")
}

// ParseBoolEnv reads a boolean env var; unset or unparseable values
// fall back to def.
func ParseBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}
