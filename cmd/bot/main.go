// Command bot runs the WhatsApp command-processing core (spec §1).
// Grounded on the teacher's go/main.go dispatcher, rebuilt around
// cobra the way the teacher's internal/cli/migrate_vocabulary.go and
// internal/cli/test_db_vocabulary.go use it.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:           "bot",
		Short:         "WhatsApp declarative command-processing core",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(serveCommand())
	root.AddCommand(installCommand())
	root.AddCommand(uninstallCommand())
	root.AddCommand(seedRootCommand())
	root.AddCommand(migrateCommand())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}
}
