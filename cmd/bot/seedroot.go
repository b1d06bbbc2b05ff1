package main

import (
	"github.com/spf13/cobra"
)

// seedRootCommand grants an additional user root scope. The first
// root user is seeded automatically on first boot (spec §3
// Lifecycle); this command is how an operator adds any more.
func seedRootCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed-root <userId>",
		Short: "Grant a user root scope",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := wireCore(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Close()

			if err := c.state.AddRootUser(args[0]); err != nil {
				return err
			}
			return c.state.Persist(cmd.Context())
		},
	}
}
