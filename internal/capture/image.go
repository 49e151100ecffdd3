package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ErrNotImage means the bytes offered as a receipt are not an image.
var ErrNotImage = errors.New("not an image")

// Image is one captured receipt picture.
type Image struct {
	Data        []byte
	ContentType string
}

// DataURI encodes the image the way receipts store it.
func (img Image) DataURI() string {
	return "data:" + img.ContentType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// FromBytes sniffs the content type of data and rejects anything that is
// not an image.
func FromBytes(data []byte) (Image, error) {
	if len(data) == 0 {
		return Image{}, fmt.Errorf("%w: empty", ErrNotImage)
	}
	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return Image{}, fmt.Errorf("%w: detected %s", ErrNotImage, mt.String())
	}
	return Image{Data: data, ContentType: mt.String()}, nil
}

// ReadFile loads an image file selected by the user.
func ReadFile(path string) (Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Image{}, fmt.Errorf("reading image %s: %w", path, err)
	}
	img, err := FromBytes(data)
	if err != nil {
		return Image{}, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// ParseDataURI decodes a base64 data URI such as "data:image/jpeg;base64,/9j/...".
func ParseDataURI(s string) (Image, error) {
	rest, ok := strings.CutPrefix(s, "data:")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing data: prefix", ErrNotImage)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, fmt.Errorf("%w: missing payload", ErrNotImage)
	}
	contentType, enc, _ := strings.Cut(meta, ";")
	if enc != "base64" {
		return Image{}, fmt.Errorf("%w: unsupported encoding %q", ErrNotImage, enc)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return Image{}, fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, fmt.Errorf("%w: decoding payload: %w", ErrNotImage, err)
	}
	return Image{Data: data, ContentType: contentType}, nil
}
