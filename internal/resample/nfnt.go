package resample

import (
	"image"

	"github.com/nfnt/resize"
)

// Nfnt uses "github.com/nfnt/resize"
type Nfnt struct{}

var _ Resampler = (*Nfnt)(nil)

// Resize scales img with nfnt Lanczos3 interpolation.
func (r *Nfnt) Resize(img image.Image, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return resize.Resize(uint(width), uint(height), img, resize.Lanczos3), nil
}
