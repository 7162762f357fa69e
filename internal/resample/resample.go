// Package resample provides interchangeable image resampling backends.
package resample

import (
	"errors"
	"fmt"
	"image"
	"sort"
	"strings"
)

// ErrUnknownResampler is returned by New for names that are not registered.
var ErrUnknownResampler = errors.New("unknown resampler")

// Default is the backend used when none is configured.
const Default = "lanczos"

// Resampler scales an image to exact pixel dimensions. Implementations must not
// modify img.
type Resampler interface {
	Resize(img image.Image, width, height int) (image.Image, error)
}

var backends = map[string]func() Resampler{
	"lanczos":    func() Resampler { return ImagingLanczos() },
	"catmullrom": func() Resampler { return ImagingCatmullRom() },
	"linear":     func() Resampler { return ImagingLinear() },
	"box":        func() Resampler { return ImagingBox() },
	"nfnt":       func() Resampler { return &Nfnt{} },
	"gift":       func() Resampler { return &Gift{} },
	"bild":       func() Resampler { return &Bild{} },
	"rez":        func() Resampler { return &Rez{} },
	"xdraw":      func() Resampler { return XDrawCatmullRom() },
	"xdraw-fast": func() Resampler { return XDrawApproxBiLinear() },
}

// New returns the backend registered under name. An empty name selects Default.
func New(name string) (Resampler, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = Default
	}
	ctor, ok := backends[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s (valid: %s)", ErrUnknownResampler, name, strings.Join(Names(), ", "))
	}
	return ctor(), nil
}

// Names returns the registered backend names in sorted order.
func Names() []string {
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func checkSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid target dimensions %dx%d", width, height)
	}
	return nil
}
