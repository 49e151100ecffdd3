package capture

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Inbox subdirectories for consumed and rejected frames.
const (
	ProcessedDir = "processed"
	RejectedDir  = "rejected"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
	".bmp":  true,
	".heic": true,
}

// FileInfo describes an image waiting in the inbox.
type FileInfo struct {
	Name string
	Path string
	Size int64
}

// Scan returns image files directly inside dir, sorted by name.
func Scan(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading inbox: %w", err)
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", e.Name(), err)
		}
		files = append(files, FileInfo{
			Name: e.Name(),
			Path: filepath.Join(dir, e.Name()),
			Size: info.Size(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// MarkProcessed moves a file from the inbox into <inbox>/<sub>/.
func MarkProcessed(dir, fileName, sub string) error {
	dstDir := filepath.Join(dir, sub)
	if err := os.MkdirAll(dstDir, 0o755); err != nil {
		return fmt.Errorf("creating %s dir: %w", sub, err)
	}
	if err := os.Rename(filepath.Join(dir, fileName), filepath.Join(dstDir, fileName)); err != nil {
		return fmt.Errorf("moving %s to %s: %w", fileName, sub, err)
	}
	return nil
}

// InboxCamera is a camera for machines without one: each image dropped into
// the inbox directory (a phone sync folder, scanner output) is one frame.
// Frames are taken in file-name order and moved to processed/ once read.
type InboxCamera struct {
	Dir string
}

// NewInboxCamera returns a camera reading frames from dir.
func NewInboxCamera(dir string) *InboxCamera {
	return &InboxCamera{Dir: dir}
}

// Open checks the inbox is usable. Constraints are accepted but unused:
// frames arrive at whatever resolution they were saved.
func (c *InboxCamera) Open(ctx context.Context, _ Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStreamStart, err)
	}
	info, err := os.Stat(c.Dir)
	switch {
	case errors.Is(err, fs.ErrPermission):
		return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, c.Dir)
	case err != nil:
		return nil, fmt.Errorf("%w: %w", ErrStreamStart, err)
	case !info.IsDir():
		return nil, fmt.Errorf("%w: %s is not a directory", ErrStreamStart, c.Dir)
	}
	if _, err := os.ReadDir(c.Dir); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return nil, fmt.Errorf("%w: %s", ErrPermissionDenied, c.Dir)
		}
		return nil, fmt.Errorf("%w: %w", ErrStreamStart, err)
	}
	return &inboxStream{dir: c.Dir}, nil
}

type inboxStream struct {
	mu     sync.Mutex
	dir    string
	closed bool
}

func (s *inboxStream) Frame(ctx context.Context) (Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Image{}, ErrStreamClosed
	}
	if err := ctx.Err(); err != nil {
		return Image{}, err
	}

	files, err := Scan(s.dir)
	if err != nil {
		return Image{}, err
	}
	if len(files) == 0 {
		return Image{}, ErrNoFrame
	}

	f := files[0]
	img, err := ReadFile(f.Path)
	if err != nil {
		// Move it aside so the next Frame does not hit the same file. If that
		// fails the file stays first in line, so the error must not look
		// skippable.
		if errors.Is(err, ErrNotImage) {
			if merr := MarkProcessed(s.dir, f.Name, RejectedDir); merr != nil {
				return Image{}, fmt.Errorf("setting aside %s (%v): %w", f.Name, err, merr)
			}
		}
		return Image{}, err
	}
	if err := MarkProcessed(s.dir, f.Name, ProcessedDir); err != nil {
		return Image{}, err
	}
	return img, nil
}

func (s *inboxStream) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
