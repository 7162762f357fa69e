package metadata

import (
	"time"
)

// Reader extracts a metadata summary from an image file.
type Reader interface {
	Read(filePath string) (*Summary, error)
	Name() string
}

// Summary contains the metadata fields shown by the inspect command.
type Summary struct {
	DateTime    *time.Time
	Orientation int
	Make        string
	Model       string
	Software    string
	Source      Source
}

// Source represents where the summary was read from.
type Source int

const (
	SourceNone Source = iota
	SourceGoExif
	SourceExiftool
)

// String returns a human-readable description of the source.
func (s Source) String() string {
	switch s {
	case SourceGoExif:
		return "EXIF (goexif)"
	case SourceExiftool:
		return "exiftool"
	default:
		return "none"
	}
}

// OrientationName describes an EXIF orientation value.
func OrientationName(o int) string {
	switch o {
	case 1:
		return "normal"
	case 2:
		return "mirrored horizontal"
	case 3:
		return "rotated 180"
	case 4:
		return "mirrored vertical"
	case 5:
		return "mirrored horizontal, rotated 270"
	case 6:
		return "rotated 90"
	case 7:
		return "mirrored horizontal, rotated 90"
	case 8:
		return "rotated 270"
	default:
		return "unknown"
	}
}
