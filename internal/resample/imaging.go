package resample

import (
	"image"

	"github.com/disintegration/imaging"
)

// Imaging uses "github.com/disintegration/imaging" with a configurable filter.
type Imaging struct {
	filter imaging.ResampleFilter
}

var _ Resampler = (*Imaging)(nil)

// ImagingLanczos is the default high quality backend.
func ImagingLanczos() *Imaging { return &Imaging{filter: imaging.Lanczos} }

// ImagingCatmullRom is a sharp cubic filter, slightly faster than Lanczos.
func ImagingCatmullRom() *Imaging { return &Imaging{filter: imaging.CatmullRom} }

// ImagingLinear is bilinear interpolation.
func ImagingLinear() *Imaging { return &Imaging{filter: imaging.Linear} }

// ImagingBox averages source pixels; fast for large reductions.
func ImagingBox() *Imaging { return &Imaging{filter: imaging.Box} }

// Resize scales img with the configured imaging filter.
func (r *Imaging) Resize(img image.Image, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	return imaging.Resize(img, width, height, r.filter), nil
}
