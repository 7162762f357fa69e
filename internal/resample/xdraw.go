package resample

import (
	"image"

	"golang.org/x/image/draw"
)

// XDraw uses "golang.org/x/image/draw"
type XDraw struct {
	scaler draw.Scaler
}

var _ Resampler = (*XDraw)(nil)

// XDrawApproxBiLinear trades quality for speed.
func XDrawApproxBiLinear() *XDraw { return &XDraw{scaler: draw.ApproxBiLinear} }

// XDrawCatmullRom is the slowest and sharpest x/image scaler.
func XDrawCatmullRom() *XDraw { return &XDraw{scaler: draw.CatmullRom} }

// Resize scales an image to the target size using the configured scaler.
func (r *XDraw) Resize(img image.Image, width, height int) (image.Image, error) {
	if err := checkSize(width, height); err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	r.scaler.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)
	return dst, nil
}
