package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/history"
)

func newEditCommand(opts *rootOptions) *cobra.Command {
	var flags fieldFlags

	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a receipt's date, amount, store or category",
		Long: `Change a receipt's date, amount, store or category.

Only the flags given are changed; everything else keeps its saved value.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if flags.empty() {
				return errors.New("nothing to change (pass --date, --amount, --store or --category)")
			}
			f := flags.fields()
			if err := f.Check(); err != nil {
				return err
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			r, err := history.NewService(a.store).Edit(cmd.Context(), args[0], history.Changes{
				Date:     f.Date,
				Amount:   f.Amount,
				Store:    f.Store,
				Category: f.Category,
			})
			if err != nil {
				return err
			}
			a.record(activitylog.ActionEdit, r.ID, 1, "cli")

			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", describe(r))
			return nil
		},
	}

	flags.register(cmd)

	return cmd
}
