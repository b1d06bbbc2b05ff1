package main

import (
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"botcore/internal/config"
	"botcore/internal/gateway"
	"botcore/internal/help"
	"botcore/internal/permission"
	"botcore/internal/router"
	"botcore/internal/session"
	"botcore/internal/types"
)

// serveCommand runs the event loop: one decoded inbound event per
// line of stdin, one outbound JSON line per reply (spec §6, the
// harness transport this core is built against instead of a bundled
// WhatsApp gateway client).
func serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the command-processing loop over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	c, err := wireCore(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	defer c.logger.Sync()

	reg, err := c.buildRegistry()
	if err != nil {
		return err
	}

	invokePattern, err := compileInvokePattern(c.cfg)
	if err != nil {
		return err
	}

	sender := gateway.NewStdioSender(os.Stdout, c.cfg.OutboundTimeout)
	r := router.New(
		c.state, c.catalog, reg,
		permission.New(),
		session.New(c.state, sessionTimeout(c.cfg)),
		types.New(c.catalog),
		help.New(c.catalog),
		sender,
		c.logger,
		c.cfg.RootPrefix, c.cfg.AdminPrefix,
		invokePattern,
	)

	c.logger.Info("bot serving",
		zap.String("store", storeKind(c.cfg)),
		zap.String("schema_dir", c.cfg.SchemaDir),
	)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		ev, err := gateway.Decode(line)
		if err != nil {
			c.logger.Error("decoding inbound event", zap.Error(err))
			continue
		}
		if _, err := r.HandleEvent(ctx, ev); err != nil {
			c.logger.Error("handling event", zap.Error(err))
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading stdin: %w", err)
	}
	return nil
}

func storeKind(cfg config.Config) string {
	if cfg.StoreType == config.MockStoreType {
		return "mock"
	}
	return "postgres"
}
