package codec

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register WebP decoding for source images

	"resizeimage-go/internal/resample"
)

// Options configures an ImagingCodec.
type Options struct {
	Resampler      string
	JPEGQuality    int
	PNGCompression string
	GIFNumColors   int
	AutoOrient     bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Resampler:      resample.Default,
		JPEGQuality:    95,
		PNGCompression: "default",
		GIFNumColors:   256,
		AutoOrient:     true,
	}
}

// ImagingCodec is the Codec backed by "github.com/disintegration/imaging".
type ImagingCodec struct {
	opts      Options
	resampler resample.Resampler
	encodeOps []imaging.EncodeOption
}

var _ Codec = (*ImagingCodec)(nil)

// NewImagingCodec creates a codec from opts.
func NewImagingCodec(opts Options) (*ImagingCodec, error) {
	r, err := resample.New(opts.Resampler)
	if err != nil {
		return nil, err
	}
	level, err := ParsePNGCompression(opts.PNGCompression)
	if err != nil {
		return nil, err
	}
	if opts.JPEGQuality < 1 || opts.JPEGQuality > 100 {
		return nil, fmt.Errorf("jpeg quality %d out of range 1-100", opts.JPEGQuality)
	}
	if opts.GIFNumColors < 1 || opts.GIFNumColors > 256 {
		return nil, fmt.Errorf("gif colors %d out of range 1-256", opts.GIFNumColors)
	}

	return &ImagingCodec{
		opts:      opts,
		resampler: r,
		encodeOps: []imaging.EncodeOption{
			imaging.JPEGQuality(opts.JPEGQuality),
			imaging.PNGCompressionLevel(level),
			imaging.GIFNumColors(opts.GIFNumColors),
		},
	}, nil
}

// Decode opens the image at path, applying EXIF orientation when enabled.
func (c *ImagingCodec) Decode(path string) (image.Image, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(c.opts.AutoOrient))
	if err != nil {
		return nil, fmt.Errorf("%w: decode %s: %v", ErrCodec, path, err)
	}
	return img, nil
}

// DecodeReader decodes an image from r.
func (c *ImagingCodec) DecodeReader(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(c.opts.AutoOrient))
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrCodec, err)
	}
	return img, nil
}

// Resize scales img with the configured resampler.
func (c *ImagingCodec) Resize(img image.Image, width, height int) (image.Image, error) {
	out, err := c.resampler.Resize(img, width, height)
	if err != nil {
		return nil, fmt.Errorf("%w: resize to %dx%d: %v", ErrCodec, width, height, err)
	}
	return out, nil
}

// Encode encodes img into memory.
func (c *ImagingCodec) Encode(img image.Image, format Format) ([]byte, error) {
	var buf bytes.Buffer
	b := img.Bounds()
	buf.Grow(b.Dx() * b.Dy() / 4)

	if err := imaging.Encode(&buf, img, format, c.encodeOps...); err != nil {
		return nil, fmt.Errorf("%w: encode %s: %v", ErrCodec, format, err)
	}
	return buf.Bytes(), nil
}

// ParsePNGCompression maps a config value to a png.CompressionLevel.
func ParsePNGCompression(s string) (png.CompressionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return png.DefaultCompression, nil
	case "none", "no":
		return png.NoCompression, nil
	case "fast", "best_speed":
		return png.BestSpeed, nil
	case "best", "best_compression":
		return png.BestCompression, nil
	default:
		return 0, fmt.Errorf("invalid png compression: %s (valid: default, none, fast, best)", s)
	}
}
