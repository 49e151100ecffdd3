package capture

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"

	"github.com/ryoshu-dev/ryoshu/internal/batch"
	"github.com/ryoshu-dev/ryoshu/internal/model"
	"github.com/ryoshu-dev/ryoshu/internal/ocr"
)

// State is where a capture session is.
type State int

const (
	Idle State = iota
	CameraActive
	Reviewing
	Submitting
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case CameraActive:
		return "camera-active"
	case Reviewing:
		return "reviewing"
	case Submitting:
		return "submitting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Event names a session transition.
type Event string

const (
	EventStartCamera Event = "start-camera"
	EventCapture     Event = "capture"
	EventStopCamera  Event = "stop-camera"
	EventAddImage    Event = "add-image"
	EventRemove      Event = "remove"
	EventSubmit      Event = "submit"
)

// ErrInvalidTransition is matched by every TransitionError.
var ErrInvalidTransition = errors.New("invalid transition")

// TransitionError reports an event the current state does not accept.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s not allowed while %s", e.Event, e.From)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// CommitFunc persists the staged batch, e.g. Accumulator.CommitAtomic.
type CommitFunc func(ctx context.Context, acc *batch.Accumulator) (batch.Result, error)

// SessionConfig wires a Session's collaborators.
type SessionConfig struct {
	Camera      Camera
	Constraints Constraints
	Extractor   ocr.Extractor
	Builder     *Builder
	Logger      *log.Logger
}

// Session drives one multi-shot capture: start the camera or add files,
// review the staged batch, submit it. It owns at most one camera stream
// and releases it on stop, cancel, a failed capture and Close.
// Not safe for concurrent use.
type Session struct {
	state       State
	camera      Camera
	constraints Constraints
	stream      Stream
	extractor   ocr.Extractor
	builder     *Builder
	staged      *batch.Accumulator
	logger      *log.Logger
}

// NewSession returns an idle session.
func NewSession(cfg SessionConfig) *Session {
	if cfg.Extractor == nil {
		cfg.Extractor = ocr.Manual{}
	}
	if cfg.Builder == nil {
		cfg.Builder = NewBuilder(nil)
	}
	if cfg.Constraints == (Constraints{}) {
		cfg.Constraints = DefaultConstraints()
	}
	return &Session{
		state:       Idle,
		camera:      cfg.Camera,
		constraints: cfg.Constraints,
		extractor:   cfg.Extractor,
		builder:     cfg.Builder,
		staged:      batch.New(),
		logger:      cfg.Logger,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Staged returns the records waiting for Submit, in capture order.
func (s *Session) Staged() []model.Receipt { return s.staged.Items() }

// StartCamera acquires a stream. On failure the session stays where it was.
func (s *Session) StartCamera(ctx context.Context) error {
	if s.state != Idle && s.state != Reviewing {
		return s.invalid(EventStartCamera)
	}
	if s.camera == nil {
		return fmt.Errorf("%w: no camera configured", ErrStreamStart)
	}
	stream, err := s.camera.Open(ctx, s.constraints)
	if err != nil {
		s.warn("camera start failed", "err", err)
		return err
	}
	s.stream = stream
	s.state = CameraActive
	return nil
}

// Capture grabs one frame, runs the extractor and stages the record.
// ErrNoFrame leaves the camera running; any other stream error releases
// the camera and the session falls back to Reviewing or Idle.
func (s *Session) Capture(ctx context.Context) (model.Receipt, error) {
	if s.state != CameraActive {
		return model.Receipt{}, s.invalid(EventCapture)
	}
	img, err := s.stream.Frame(ctx)
	if err != nil {
		if !errors.Is(err, ErrNoFrame) {
			s.warn("capture failed, stopping camera", "err", err)
			s.releaseStream()
			s.settle()
		}
		return model.Receipt{}, err
	}
	return s.stage(ctx, img)
}

// StopCamera releases the stream and moves to review, or back to idle when
// nothing was captured.
func (s *Session) StopCamera() error {
	if s.state != CameraActive {
		return s.invalid(EventStopCamera)
	}
	s.releaseStream()
	s.settle()
	return nil
}

// AddImage stages a user-selected file.
func (s *Session) AddImage(ctx context.Context, img Image) (model.Receipt, error) {
	if s.state != Idle && s.state != Reviewing {
		return model.Receipt{}, s.invalid(EventAddImage)
	}
	r, err := s.stage(ctx, img)
	if err != nil {
		return model.Receipt{}, err
	}
	s.state = Reviewing
	return r, nil
}

// Remove drops a staged record. The session returns to idle when the batch empties.
func (s *Session) Remove(id string) error {
	if s.state != Reviewing {
		return s.invalid(EventRemove)
	}
	s.staged.Remove(id)
	s.settle()
	return nil
}

// Submit hands the staged batch to commit. Success returns the session to
// idle; failure returns it to review with whatever commit left staged.
func (s *Session) Submit(ctx context.Context, commit CommitFunc) (batch.Result, error) {
	if s.state != Reviewing {
		return batch.Result{}, s.invalid(EventSubmit)
	}
	s.state = Submitting
	res, err := commit(ctx, s.staged)
	if err != nil {
		s.warn("batch submit failed", "attempted", res.Attempted, "confirmed", res.Confirmed, "err", err)
		s.settle()
		return res, err
	}
	s.state = Idle
	return res, nil
}

// Cancel releases the camera, discards the staged batch and returns to idle.
// Always allowed.
func (s *Session) Cancel() {
	s.releaseStream()
	s.staged.Clear()
	s.state = Idle
}

// Close releases the camera without touching the staged batch.
func (s *Session) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	if s.state == CameraActive {
		s.settle()
	}
	return err
}

func (s *Session) stage(ctx context.Context, img Image) (model.Receipt, error) {
	cand, err := s.extractor.Extract(ctx, img.Data, img.ContentType)
	if err != nil {
		return model.Receipt{}, fmt.Errorf("extracting receipt fields: %w", err)
	}
	r := s.builder.Build(img, FieldsFromCandidate(cand))
	s.staged.Append(r)
	return r, nil
}

func (s *Session) releaseStream() {
	if s.stream == nil {
		return
	}
	if err := s.stream.Close(); err != nil {
		s.warn("closing camera stream", "err", err)
	}
	s.stream = nil
}

// settle picks Reviewing or Idle from the staged batch.
func (s *Session) settle() {
	if s.staged.Len() > 0 {
		s.state = Reviewing
	} else {
		s.state = Idle
	}
}

func (s *Session) invalid(ev Event) error {
	return &TransitionError{From: s.state, Event: ev}
}

func (s *Session) warn(msg string, kv ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, kv...)
	}
}
