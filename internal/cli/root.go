// Package cli wires the chatdata-server commands.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// BuildInfo is stamped into the binary by ldflags.
type BuildInfo struct {
	Version string
	Date    string
	Commit  string
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFiles []string
	Format   string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand(build BuildInfo) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:     "chatdata",
		Short:   "chatdata - profile and message ledger server",
		Long:    "Stores chat profiles with their message logs and fans out new messages to websocket clients.",
		Version: fmt.Sprintf("%s (built %s, commit %s)", build.Version, build.Date, build.Commit),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringSliceVar(&opts.EnvFiles, "env-file", nil, "dotenv files to load (default .env)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewServeCommand(opts, build))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewProfilesCommand(opts))

	return cmd
}
