package main

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"

	"botcore/internal/botlog"
	"botcore/internal/config"
	"botcore/internal/schema"
	"botcore/internal/services/builtin"
	"botcore/internal/services/expense"
	"botcore/internal/state"
	"botcore/internal/statestore"
)

// core bundles the pieces every subcommand except "migrate" needs:
// a booted state manager sitting on top of the configured store, and
// the command catalog loaded from disk.
type core struct {
	cfg     config.Config
	logger  *zap.Logger
	store   statestore.Store
	state   *state.Manager
	catalog *schema.Catalog
}

func openStore(cfg config.Config) (statestore.Store, error) {
	if cfg.StoreType == config.MockStoreType {
		return statestore.NewMockStore(), nil
	}
	return statestore.NewPostgresStore(cfg.DBConnString)
}

// wireCore loads configuration, opens the store, boots the state
// manager and loads the schema catalog — the shared setup every
// subcommand but "migrate" performs before doing its own work (spec
// §6 boot sequence).
func wireCore(ctx context.Context) (*core, error) {
	cfg := config.GetConfig()
	if cfg.InitialRootUser == "" {
		return nil, fmt.Errorf("BOT_INITIAL_ROOT_USER is not set")
	}

	logger, err := botlog.New()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store (%s): %w", botlog.MaskConnString(cfg.DBConnString), err)
	}

	st := state.NewManager(store, cfg.InitialRootUser, cfg.InvokePrefixPattern)
	if err := st.Boot(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("booting state: %w", err)
	}

	catalog, err := schema.Load(cfg.SchemaDir)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("loading schema from %s: %w", cfg.SchemaDir, err)
	}

	return &core{cfg: cfg, logger: logger, store: store, state: st, catalog: catalog}, nil
}

func (c *core) Close() error {
	return c.store.Close()
}

// buildRegistry binds every built-in/admin/root handler and every
// known service's handlers to c.catalog, then validates that the
// catalog and the registry agree on what is declared (spec §4.1
// "every declared command must resolve to a registered handler").
func (c *core) buildRegistry() (*schema.Registry, error) {
	reg := schema.NewRegistry(c.catalog)
	builtin.Register(reg, c.catalog)
	expense.Register(reg)
	if err := reg.ValidateHandlers(); err != nil {
		return nil, fmt.Errorf("validating handlers: %w", err)
	}
	return reg, nil
}

func compileInvokePattern(cfg config.Config) (*regexp.Regexp, error) {
	pattern, err := regexp.Compile(cfg.InvokePrefixPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling invoke prefix pattern %q: %w", cfg.InvokePrefixPattern, err)
	}
	return pattern, nil
}

func sessionTimeout(cfg config.Config) time.Duration {
	return cfg.SessionTimeout
}
