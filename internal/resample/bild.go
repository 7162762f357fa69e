package resample

import (
	"image"

	"github.com/anthonynsimon/bild/transform"
)

// Bild uses "github.com/anthonynsimon/bild/transform"
type Bild struct{}

var _ Resampler = (*Bild)(nil)

// Resize scales img with bild's Lanczos filter.
func (r *Bild) Resize(img image.Image, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return transform.Resize(img, width, height, transform.Lanczos), nil
}
