// Command foldersync is the CLI entry point (spec.md §6 "External
// Interfaces"): it loads a job configuration, scans and compares both
// sides, computes a plan, and either previews it (-edit) or executes it,
// reporting the FreeFileSync-style exit codes the original tool's
// scripting integrations depend on.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes, per spec.md §6 "External Interfaces".
const (
	exitSuccess          = 0
	exitFinishedWarnings = 1
	exitAborted          = 2
	exitUncaughtError    = 3
)

func main() {
	root := newRootCommand()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		var re *runError
		if errors.As(err, &re) {
			os.Exit(re.code)
		}
		os.Exit(exitUncaughtError)
	}
}

func newRootCommand() *cobra.Command {
	var edit bool
	var dirpair []string
	var sendto []string
	var verbose bool

	command := &cobra.Command{
		Use:   "foldersync <config>...",
		Short: "Synchronize folder pairs described by one or more job configurations",
		Long: "foldersync compares and synchronizes the base folder pairs described by\n" +
			"one or more YAML job configurations, the way FreeFileSync's batch mode\n" +
			"runs a .ffs_batch file from the command line.",
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), runOptions{
				ConfigPaths: args,
				Edit:        edit,
				DirPair:     dirpair,
				SendTo:      sendto,
				Verbose:     verbose,
			})
		},
	}

	command.Flags().BoolVar(&edit, "edit", false, "open the configuration without executing it")
	command.Flags().StringSliceVar(&dirpair, "dirpair", nil, "override/add a folder pair as \"left,right\" (at most one config may be present when used)")
	command.Flags().StringSliceVar(&sendto, "sendto", nil, "treat remaining positional arguments as filesystem paths to sync, resolving files to their parent folder")
	command.Flags().BoolVarP(&verbose, "verbose", "v", false, "log informational progress in addition to warnings and errors")

	command.AddCommand(newMigrateDBCommand())

	return command
}
