package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"botcore/internal/model"
)

// installCommand installs a service into a chat from the operator
// side, since the core never speaks the WhatsApp protocol and so has
// no way to discover a chat's participants itself (spec §13
// Non-goals; root's `install` command takes the same explicit
// admin/member id lists for the same reason).
func installCommand() *cobra.Command {
	var admins, members string
	cmd := &cobra.Command{
		Use:   "install <serviceId> <chatId>",
		Short: "Install a service into a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := wireCore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			serviceID, chatID := args[0], args[1]
			def, ok := c.catalog.Get(serviceID)
			if !ok {
				return fmt.Errorf("unknown service %q", serviceID)
			}
			chatType := model.ChatPrivate
			if strings.HasSuffix(chatID, "@g.us") {
				chatType = model.ChatGroup
			}
			if err := c.state.InstallService(chatID, chatType, def, splitIDs(admins), splitIDs(members)); err != nil {
				return err
			}
			return c.state.Persist(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&admins, "admins", "", "comma-separated admin user ids")
	cmd.Flags().StringVar(&members, "members", "", "comma-separated member user ids")
	return cmd
}

func uninstallCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "uninstall <serviceId> <chatId>",
		Short: "Remove a service from a chat",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := wireCore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			serviceID, chatID := args[0], args[1]
			chatType := model.ChatPrivate
			if strings.HasSuffix(chatID, "@g.us") {
				chatType = model.ChatGroup
			}
			if err := c.state.UninstallService(chatID, chatType, serviceID); err != nil {
				return err
			}
			return c.state.Persist(cmd.Context())
		},
	}
}

func splitIDs(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
