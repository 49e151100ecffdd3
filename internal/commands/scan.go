package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ryoshu-dev/ryoshu/internal/activitylog"
	"github.com/ryoshu-dev/ryoshu/internal/batch"
	"github.com/ryoshu-dev/ryoshu/internal/capture"
	"github.com/ryoshu-dev/ryoshu/internal/model"
)

func newScanCommand(opts *rootOptions) *cobra.Command {
	var flags fieldFlags
	var fromInbox bool
	var bestEffort bool

	cmd := &cobra.Command{
		Use:   "scan [image...]",
		Short: "Save receipt images",
		Long: `Save receipt images.

With one image, field flags override the extractor's guess. With several
images, or with --inbox, every image is staged and the batch is committed
at once; field flags are not allowed and each record can be fixed later
with ` + "`ryoshu edit`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case fromInbox && len(args) > 0:
				return errors.New("--inbox takes no image arguments")
			case !fromInbox && len(args) == 0:
				return errors.New("no images given (pass files or --inbox)")
			case (fromInbox || len(args) > 1) && !flags.empty():
				return errors.New("field flags apply to a single image; use `ryoshu edit` after a batch scan")
			}
			if err := flags.fields().Check(); err != nil {
				return err
			}

			a, err := openApp(cmd, opts)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if len(args) == 1 {
				return a.scanOne(ctx, out, args[0], flags.fields())
			}
			return a.scanBatch(ctx, out, args, fromInbox, bestEffort)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&fromInbox, "inbox", false, "capture every image waiting in the inbox directory")
	cmd.Flags().BoolVar(&bestEffort, "best-effort", false, "save what can be saved instead of all-or-nothing")

	return cmd
}

func (a *app) scanOne(ctx context.Context, out io.Writer, path string, f capture.Fields) error {
	img, err := capture.ReadFile(path)
	if err != nil {
		return err
	}
	cand, err := a.extractor.Extract(ctx, img.Data, img.ContentType)
	if err != nil {
		return fmt.Errorf("extracting %s: %w", path, err)
	}

	b, err := a.newBuilder(ctx)
	if err != nil {
		return err
	}
	r := b.Build(img, f.Or(capture.FieldsFromCandidate(cand)))
	if err := a.store.Put(ctx, r); err != nil {
		return err
	}
	a.record(activitylog.ActionScan, r.ID, 1, filepath.Base(path))

	fmt.Fprintf(out, "Saved %s\n", describe(r))
	return nil
}

func (a *app) scanBatch(ctx context.Context, out io.Writer, paths []string, fromInbox, bestEffort bool) error {
	b, err := a.newBuilder(ctx)
	if err != nil {
		return err
	}
	var cam capture.Camera
	if fromInbox {
		cam = capture.NewInboxCamera(a.cfg.Capture.InboxDir)
	}
	sess := capture.NewSession(capture.SessionConfig{
		Camera: cam,
		Constraints: capture.Constraints{
			Facing: capture.FacingEnvironment,
			Width:  a.cfg.Capture.Camera.Width,
			Height: a.cfg.Capture.Camera.Height,
		},
		Extractor: a.extractor,
		Builder:   b,
		Logger:    a.logger,
	})
	defer sess.Close()

	if fromInbox {
		if err := a.captureInbox(ctx, sess); err != nil {
			sess.Cancel()
			return err
		}
	} else {
		for _, p := range paths {
			img, err := capture.ReadFile(p)
			if err != nil {
				sess.Cancel()
				return err
			}
			if _, err := sess.AddImage(ctx, img); err != nil {
				sess.Cancel()
				return fmt.Errorf("%s: %w", p, err)
			}
		}
	}

	staged := sess.Staged()
	if len(staged) == 0 {
		fmt.Fprintln(out, "Nothing to save: inbox is empty")
		return nil
	}
	for _, r := range staged {
		fmt.Fprintf(out, "Staged %s\n", describe(r))
	}

	res, err := sess.Submit(ctx, a.commitFunc(bestEffort))
	if res.Confirmed > 0 {
		mode := "atomic"
		if bestEffort {
			mode = "best-effort"
		}
		a.record(activitylog.ActionCommit, "", res.Confirmed, mode)
	}
	fmt.Fprintf(out, "Saved %d of %d receipts\n", res.Confirmed, res.Attempted)
	if err != nil {
		if len(res.Failed) > 0 {
			fmt.Fprintf(out, "Not saved: %s\n", strings.Join(res.Failed, ", "))
		}
		return err
	}
	return nil
}

// captureInbox runs the camera until the inbox has no frames left. Files
// that are not images are moved to rejected/ and the camera is restarted.
func (a *app) captureInbox(ctx context.Context, sess *capture.Session) error {
	if err := sess.StartCamera(ctx); err != nil {
		return err
	}
	for {
		_, err := sess.Capture(ctx)
		switch {
		case err == nil:
		case errors.Is(err, capture.ErrNoFrame):
			return sess.StopCamera()
		case errors.Is(err, capture.ErrNotImage):
			a.logger.Warn("skipping inbox file", "err", err)
			if err := sess.StartCamera(ctx); err != nil {
				return err
			}
		default:
			return err
		}
	}
}

func (a *app) commitFunc(bestEffort bool) capture.CommitFunc {
	return func(ctx context.Context, acc *batch.Accumulator) (batch.Result, error) {
		if bestEffort {
			return acc.Commit(ctx, a.store)
		}
		return acc.CommitAtomic(ctx, a.store)
	}
}

func describe(r model.Receipt) string {
	store := r.Store
	if store == "" {
		store = "-"
	}
	return fmt.Sprintf("%s  %s  ¥%s  %s  %s", r.ID, r.Date, r.Amount, store, r.Category)
}
