// Package imagecheck validates uploaded image dimensions against the
// constraints of the place the image is used (category icon, avatar, banner,
// product photo) before anything is sent to storage.
package imagecheck

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"mime/multipart"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ErrDecode is returned when a payload cannot be interpreted as an image.
var ErrDecode = errors.New("image cannot be decoded")

// Dimensions are the pixel size of a decoded image.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (d Dimensions) String() string {
	return fmt.Sprintf("%dx%d", d.Width, d.Height)
}

// File is an image payload that can be opened for reading.
// Every Open is paired with exactly one Close.
type File interface {
	Open() (io.ReadCloser, error)
}

type bytesFile []byte

func (b bytesFile) Open() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(b)), nil
}

// FromBytes wraps an in-memory payload.
func FromBytes(b []byte) File {
	return bytesFile(b)
}

type headerFile struct {
	header *multipart.FileHeader
}

func (h headerFile) Open() (io.ReadCloser, error) {
	if h.header == nil {
		return nil, errors.New("missing file header")
	}
	return h.header.Open()
}

// FromFileHeader wraps a multipart upload part.
func FromFileHeader(h *multipart.FileHeader) File {
	return headerFile{header: h}
}

// GetDimensions reads the image header of f and returns its size.
// The handle opened on f is closed on every return path.
func GetDimensions(f File) (Dimensions, error) {
	if f == nil {
		return Dimensions{}, fmt.Errorf("%w: no file", ErrDecode)
	}

	rc, err := f.Open()
	if err != nil {
		return Dimensions{}, fmt.Errorf("%w: open: %v", ErrDecode, err)
	}
	defer rc.Close()

	cfg, _, err := image.DecodeConfig(rc)
	if err != nil {
		return Dimensions{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return Dimensions{}, fmt.Errorf("%w: invalid size %dx%d", ErrDecode, cfg.Width, cfg.Height)
	}

	return Dimensions{Width: cfg.Width, Height: cfg.Height}, nil
}
