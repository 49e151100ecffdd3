package commands

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/config"
	"github.com/ryoshu-dev/ryoshu/internal/id"
	"github.com/ryoshu-dev/ryoshu/internal/logging"
	"github.com/ryoshu-dev/ryoshu/internal/ocr"
	"github.com/ryoshu-dev/ryoshu/internal/store"
)

// app is everything a command needs once the project is open.
type app struct {
	dir       string
	cfg       *config.Config
	logger    *log.Logger
	store     *store.Store
	extractor ocr.Extractor
	activity  *activitylog.Recorder
}

// openApp loads ryoshu.yaml from the project directory and opens the store.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app, error) {
	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return nil, fmt.Errorf("resolving path: %w", err)
	}

	cfg, err := config.Load(filepath.Join(dir, config.FileName))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s is not a ryoshu project (run `ryoshu init`): %w", dir, err)
		}
		return nil, err
	}
	cfg.Resolve(dir)

	logger := logging.New(cmd.ErrOrStderr(), cfg.Log.Level)

	extractor := ocr.DefaultRegistry().Get(cfg.Capture.Extractor)
	if extractor == nil {
		return nil, fmt.Errorf("unknown extractor %q in %s", cfg.Capture.Extractor, config.FileName)
	}

	st, err := store.Open(cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	return &app{
		dir:       dir,
		cfg:       cfg,
		logger:    logger,
		store:     st,
		extractor: extractor,
		activity:  activitylog.NewRecorder(dir, nil),
	}, nil
}

// newBuilder returns a record builder whose IDs start after the newest
// saved receipt, so a clock behind an earlier run cannot reuse an ID.
func (a *app) newBuilder(ctx context.Context) (*capture.Builder, error) {
	latest, err := a.store.LatestID(ctx)
	if err != nil {
		return nil, err
	}
	ids := id.NewGenerator(nil)
	if err := ids.Advance(latest); err != nil {
		return nil, fmt.Errorf("seeding id generator: %w", err)
	}
	return capture.NewBuilder(ids), nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", "err", err)
	}
}

// record writes an activity entry. Failures are logged, never returned.
func (a *app) record(action activitylog.Action, receiptID string, count int, details string) {
	if err := a.activity.Record(action, receiptID, count, details); err != nil {
		a.logger.Warn("activity log", "action", action, "err", err)
	}
}
