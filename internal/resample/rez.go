package resample

import (
	"image"

	"github.com/bamiaux/rez"
	"github.com/disintegration/imaging"
)

// Rez uses "github.com/bamiaux/rez". Images rez cannot convert are scaled with
// XDrawCatmullRom instead.
type Rez struct{}

var _ Resampler = (*Rez)(nil)

// Resize converts a clone of img with rez's bilinear filter.
func (r *Rez) Resize(img image.Image, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}

	// rez works on planar buffers of the same kind; Clone yields a fresh NRGBA
	// so the caller's image is never touched.
	src := imaging.Clone(img)
	m := image.NewNRGBA(image.Rect(0, 0, width, height))
	if err := rez.Convert(m, src, rez.NewBilinearFilter()); err != nil {
		return XDrawCatmullRom().Resize(img, width, height)
	}
	return m, nil
}
