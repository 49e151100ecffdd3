package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/export"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

func newExportCommand(opts *rootOptions) *cobra.Command {
	var format string
	var outPath string
	var bom bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every receipt to CSV or XLSX",
		Long: `Export every receipt to CSV or XLSX.

The default output is exports/領収書データ_YYYY-MM-DD.<format> in the
project directory. Use --out - to write to stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var render func(io.Writer, []model.Receipt) error
			switch format {
			case "csv":
				render = func(w io.Writer, rs []model.Receipt) error {
					return export.WriteCSV(w, rs, export.Options{BOM: bom})
				}
			case "xlsx":
				render = export.WriteXLSX
			default:
				return fmt.Errorf("unknown format %q (csv or xlsx)", format)
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("bom") {
				bom = a.cfg.Export.BOM
			}

			rs, err := a.store.All(cmd.Context())
			if err != nil {
				return err
			}

			if outPath == "-" {
				return render(cmd.OutOrStdout(), rs)
			}
			if outPath == "" {
				outPath = filepath.Join(a.cfg.Export.Dir, export.Filename(time.Now(), format))
			}
			if err := writeFile(outPath, func(w io.Writer) error { return render(w, rs) }); err != nil {
				return err
			}
			a.record(activitylog.ActionExport, "", len(rs), filepath.Base(outPath))

			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d receipts to %s\n", len(rs), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "csv", "csv or xlsx")
	cmd.Flags().StringVar(&outPath, "out", "", "output file (default: dated file in the export dir)")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix CSV output with a UTF-8 BOM (default from ryoshu.yaml)")

	return cmd
}

// writeFile writes through a temp file in the same directory and renames it
// into place, so a failed export never leaves a truncated file.
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".export-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := write(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("renaming export: %w", err)
	}
	return nil
}
