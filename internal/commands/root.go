package commands

import (
	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/buildinfo"
)

// rootOptions holds flags shared by every subcommand.
type rootOptions struct {
	dir string
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:     "ryoshu",
		Short:   "Scan, file and export receipts",
		Version: buildinfo.String(),
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.dir, "dir", ".", "project directory")

	rootCmd.AddCommand(
		newInitCommand(opts),
		newScanCommand(opts),
		newListCommand(opts),
		newShowCommand(opts),
		newEditCommand(opts),
		newExportCommand(opts),
		newServeCommand(opts),
	)

	return rootCmd
}
