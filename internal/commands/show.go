package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/history"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

func newShowCommand(opts *rootOptions) *cobra.Command {
	var imageOut string

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one receipt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			r, ok, err := a.store.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: %s", history.ErrNotFound, args[0])
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ID:        %s\n", r.ID)
			fmt.Fprintf(out, "Date:      %s\n", r.Date)
			fmt.Fprintf(out, "Amount:    %s\n", r.Amount)
			fmt.Fprintf(out, "Store:     %s\n", r.Store)
			fmt.Fprintf(out, "Category:  %s\n", r.Category)
			fmt.Fprintf(out, "Captured:  %s\n", r.Timestamp)

			img, imgErr := capture.ParseDataURI(r.Image)
			if imgErr != nil {
				fmt.Fprintf(out, "Image:     unreadable (%v)\n", imgErr)
			} else {
				fmt.Fprintf(out, "Image:     %s, %d bytes\n", img.ContentType, len(img.Data))
			}
			for _, v := range model.Validate(r) {
				fmt.Fprintf(out, "warning: %s\n", v.Error())
			}

			if imageOut == "" {
				return nil
			}
			if imgErr != nil {
				return imgErr
			}
			if err := os.WriteFile(imageOut, img.Data, 0o644); err != nil {
				return fmt.Errorf("writing image: %w", err)
			}
			fmt.Fprintf(out, "Wrote image to %s\n", imageOut)
			return nil
		},
	}

	cmd.Flags().StringVar(&imageOut, "image-out", "", "write the receipt image to this file")

	return cmd
}
