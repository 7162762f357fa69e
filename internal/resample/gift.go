package resample

import (
	"image"

	"github.com/disintegration/gift"
)

// Gift uses "github.com/disintegration/gift"
type Gift struct{}

var _ Resampler = (*Gift)(nil)

// Resize draws img into a new NRGBA through a gift Lanczos resize filter.
func (r *Gift) Resize(img image.Image, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	m := image.NewNRGBA(image.Rect(0, 0, width, height))
	gift.Resize(width, height, gift.LanczosResampling).Draw(m, img, &gift.Options{Parallelization: true})
	return m, nil
}
