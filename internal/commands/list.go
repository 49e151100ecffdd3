package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/history"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

func newListCommand(opts *rootOptions) *cobra.Command {
	var categories bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List saved receipts, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if categories {
				for _, c := range model.Categories() {
					fmt.Fprintln(out, c)
				}
				return nil
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			rs, err := history.NewService(a.store).Load(cmd.Context())
			if err != nil {
				return err
			}
			return printHistory(out, rs)
		},
	}

	cmd.Flags().BoolVar(&categories, "categories", false, "print the category list and exit")

	return cmd
}

func printHistory(out io.Writer, rs []model.Receipt) error {
	if len(rs) == 0 {
		fmt.Fprintln(out, "No receipts yet")
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAMOUNT\tSTORE\tCATEGORY")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Date, r.Amount, r.Store, r.Category)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	for _, r := range rs {
		for _, v := range model.Validate(r) {
			fmt.Fprintf(out, "warning: %s\n", v.Error())
		}
	}

	sum := history.Summarize(rs)
	fmt.Fprintf(out, "\n%d receipts, total ¥%s\n", sum.Count, sum.Total.String())
	for _, c := range model.Categories() {
		if total, ok := sum.ByCategory[c]; ok {
			fmt.Fprintf(out, "  %s ¥%s\n", c, total.String())
		}
	}
	return nil
}
