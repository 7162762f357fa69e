package codec

import (
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
)

var (
	// ErrCodec wraps every decode and encode failure.
	ErrCodec = errors.New("codec error")
	// ErrUnsupportedFormat is returned for extensions that cannot be encoded.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrCodec)
)

// Format is an encodable output format.
type Format = imaging.Format

// Supported output formats.
const (
	JPEG = imaging.JPEG
	PNG  = imaging.PNG
	GIF  = imaging.GIF
	TIFF = imaging.TIFF
	BMP  = imaging.BMP
)

// Codec decodes an image once and re-encodes scaled versions of it in memory.
type Codec interface {
	// Decode opens and decodes the image at path.
	Decode(path string) (image.Image, error)
	// Resize returns a new image scaled to width x height. img is not modified.
	Resize(img image.Image, width, height int) (image.Image, error)
	// Encode returns img encoded in the given format.
	Encode(img image.Image, format Format) ([]byte, error)
}

// FormatFromPath returns the output format implied by the extension of path.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == "" {
		return -1, fmt.Errorf("%w: %s has no extension", ErrUnsupportedFormat, path)
	}
	f, err := imaging.FormatFromExtension(ext)
	if err != nil {
		return -1, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return f, nil
}

// ContentType returns the MIME type for a format.
func ContentType(f Format) string {
	switch f {
	case JPEG:
		return "image/jpeg"
	case PNG:
		return "image/png"
	case GIF:
		return "image/gif"
	case TIFF:
		return "image/tiff"
	case BMP:
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}

// Extension returns the canonical file extension for a format, with the dot.
func Extension(f Format) string {
	switch f {
	case JPEG:
		return ".jpg"
	case PNG:
		return ".png"
	case GIF:
		return ".gif"
	case TIFF:
		return ".tif"
	case BMP:
		return ".bmp"
	default:
		return ""
	}
}
