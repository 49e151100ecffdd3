package capture

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrPermissionDenied means the user or platform refused camera access.
	ErrPermissionDenied = errors.New("camera permission denied")
	// ErrStreamStart means the camera exists but the stream did not start.
	ErrStreamStart = errors.New("camera stream failed to start")
	// ErrNoFrame means the stream had nothing to capture yet.
	ErrNoFrame = errors.New("no frame available")
	// ErrStreamClosed is returned by Frame after Close.
	ErrStreamClosed = errors.New("camera stream closed")
)

// Facing selects the camera on devices that have several.
type Facing string

const (
	FacingEnvironment Facing = "environment"
	FacingUser        Facing = "user"
)

// Constraints are the ideal stream settings. Cameras may deliver less.
type Constraints struct {
	Facing Facing
	Width  int
	Height int
}

// DefaultConstraints asks for the rear camera at 1920x1080.
func DefaultConstraints() Constraints {
	return Constraints{Facing: FacingEnvironment, Width: 1920, Height: 1080}
}

// Camera opens capture streams.
type Camera interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is one live camera stream. Close stops every track; it is safe to
// call more than once.
type Stream interface {
	Frame(ctx context.Context) (Image, error)
	Close() error
}

// WithStream opens a stream, hands it to fn and closes it on every exit
// path, including a panic in fn.
func WithStream(ctx context.Context, cam Camera, c Constraints, fn func(Stream) error) (err error) {
	if cam == nil {
		return fmt.Errorf("%w: no camera configured", ErrStreamStart)
	}
	s, err := cam.Open(ctx, c)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := s.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing stream: %w", cerr)
		}
	}()
	return fn(s)
}
