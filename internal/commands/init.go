package commands

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/config"
	"github.com/ryoshu-dev/ryoshu/internal/logging"
	"github.com/ryoshu-dev/ryoshu/internal/store"
)

func newInitCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init [directory]",
		Short: "Initialize a new receipt project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := opts.dir
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			return runInit(cmd.OutOrStdout(), absDir)
		},
	}
}

func runInit(out io.Writer, dir string) error {
	cfgPath := filepath.Join(dir, config.FileName)
	cfg := config.Default()
	existing := false

	if _, err := os.Stat(cfgPath); err == nil {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		cfg = loaded
		existing = true
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("checking %s: %w", cfgPath, err)
	}

	dirs := []string{
		"data",
		cfg.Capture.InboxDir,
		filepath.Join(cfg.Capture.InboxDir, capture.ProcessedDir),
		"logs",
		cfg.Export.Dir,
	}
	for _, d := range dirs {
		if !filepath.IsAbs(d) {
			d = filepath.Join(dir, d)
		}
		if err := os.MkdirAll(d, 0o755); err != nil {
			return fmt.Errorf("creating directory %s: %w", d, err)
		}
	}

	if !existing {
		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}
	}

	// Opening once creates the database file and the receipts table.
	resolved := *cfg
	resolved.Resolve(dir)
	st, err := store.Open(resolved.Database, logging.Discard())
	if err != nil {
		return err
	}
	if err := st.Close(); err != nil {
		return fmt.Errorf("closing store: %w", err)
	}

	verb := "Initialized"
	if existing {
		verb = "Reinitialized"
	}
	fmt.Fprintf(out, "%s ryoshu project at %s\n", verb, dir)
	return nil
}
