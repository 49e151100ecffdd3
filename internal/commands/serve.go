package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/server"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the receipt API for a browser front-end",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if addr == "" {
				addr = a.cfg.Server.Address
			}

			b, err := a.newBuilder(cmd.Context())
			if err != nil {
				return err
			}

			srv := server.New(server.Options{
				Store:     a.store,
				Extractor: a.extractor,
				Builder:   b,
				Activity:  a.activity,
				Logger:    a.logger,
				Config:    a.cfg.Server,
				ExportBOM: a.cfg.Export.BOM,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from ryoshu.yaml)")

	return cmd
}
