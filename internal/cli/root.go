// Package cli implements the cardtrack command line client.
package cli

import (
	"fmt"
	"slices"

	"cardtrack/internal/config"
	"cardtrack/internal/logging"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags and the loaded configuration.
type RootOptions struct {
	Verbose bool
	Format  string // "text" | "json" | "yaml"

	Config *config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json", "yaml"}

// NewRootCommand creates the cardtrack command tree for cfg.
func NewRootCommand(cfg *config.Config) *cobra.Command {
	opts := &RootOptions{Config: cfg}

	cmd := &cobra.Command{
		Use:           "cardtrack",
		Short:         "CardTrack board client",
		Long:          "Work with CardTrack Kanban boards from the terminal: list and edit boards, drag cards between columns and watch a board live.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			level := opts.Config.LogLevel
			if opts.Verbose {
				level = "debug"
			}
			logging.Init(level, cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")

	cmd.AddCommand(newLoginCommand(opts))
	cmd.AddCommand(newRegisterCommand(opts))
	cmd.AddCommand(newWhoamiCommand(opts))
	cmd.AddCommand(newProfileCommand(opts))
	cmd.AddCommand(newBoardsCommand(opts))
	cmd.AddCommand(newBoardCommand(opts))
	cmd.AddCommand(newColumnCommand(opts))
	cmd.AddCommand(newCardCommand(opts))
	cmd.AddCommand(newMemberCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))

	return cmd
}

func (o *RootOptions) output(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
