package target

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// ErrInvalidTargetSpec is returned for target sizes or percentages that cannot be resolved.
var ErrInvalidTargetSpec = errors.New("invalid target spec")

const (
	kilobyte = 1024
	megabyte = 1024 * 1024
)

var (
	sizePattern    = regexp.MustCompile(`(?i)^\s*([0-9]*\.?[0-9]+)\s*(kb|mb)\s*$`)
	percentPattern = regexp.MustCompile(`^\s*%*\s*(-?[0-9]*\.?[0-9]+)\s*%*\s*$`)
)

// Spec is a user supplied target: either an absolute byte count or a percentage of
// the original encoded size. Exactly one of the fields is set.
type Spec struct {
	Bytes   *float64
	Percent *float64
}

// Absolute returns a Spec for a fixed number of bytes.
func Absolute(bytes float64) Spec {
	return Spec{Bytes: &bytes}
}

// Percentage returns a Spec for a raw percentage such as 80 or -20.
func Percentage(p float64) Spec {
	return Spec{Percent: &p}
}

// ParseSize parses values like "40kb", "0.3mb" or "1.2MB" into bytes.
func ParseSize(s string) (float64, error) {
	m := sizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: size %q must be a number followed by kb or mb", ErrInvalidTargetSpec, s)
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: size %q: %v", ErrInvalidTargetSpec, s, err)
	}
	switch strings.ToLower(m[2]) {
	case "kb":
		value *= kilobyte
	case "mb":
		value *= megabyte
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: size %q must be greater than zero", ErrInvalidTargetSpec, s)
	}
	return value, nil
}

// ParsePercent parses values like "80", "80%", "-20%" or "%15".
func ParsePercent(s string) (float64, error) {
	m := percentPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: percent %q is not a number", ErrInvalidTargetSpec, s)
	}
	p, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("%w: percent %q: %v", ErrInvalidTargetSpec, s, err)
	}
	if math.Abs(p) > 100 {
		return 0, fmt.Errorf("%w: percent %v must not exceed +/-100", ErrInvalidTargetSpec, p)
	}
	return p, nil
}

// NormalizePercent turns a raw percentage into "target is X% of the original".
// A negative value means "reduce by |p| percent".
func NormalizePercent(p float64) (float64, error) {
	if math.IsNaN(p) || math.Abs(p) > 100 {
		return 0, fmt.Errorf("%w: percent %v must not exceed +/-100", ErrInvalidTargetSpec, p)
	}
	if p < 0 {
		return 100 - math.Abs(p), nil
	}
	return p, nil
}

// Validate checks the spec without needing the original size.
func (s Spec) Validate() error {
	switch {
	case s.Bytes != nil && s.Percent != nil:
		return fmt.Errorf("%w: size and percent are mutually exclusive", ErrInvalidTargetSpec)
	case s.Bytes == nil && s.Percent == nil:
		return fmt.Errorf("%w: either size or percent is required", ErrInvalidTargetSpec)
	case s.Bytes != nil:
		if *s.Bytes <= 0 || math.IsNaN(*s.Bytes) || math.IsInf(*s.Bytes, 0) {
			return fmt.Errorf("%w: size %v must be greater than zero", ErrInvalidTargetSpec, *s.Bytes)
		}
		return nil
	default:
		p, err := NormalizePercent(*s.Percent)
		if err != nil {
			return err
		}
		if p == 0 {
			return fmt.Errorf("%w: percent %v leaves nothing of the original", ErrInvalidTargetSpec, *s.Percent)
		}
		return nil
	}
}

// IsPercent reports whether the target depends on the original encoded size.
func (s Spec) IsPercent() bool {
	return s.Percent != nil
}

// Resolve returns the absolute target in bytes. originalSize is the size of the
// original image encoded in the output format; it is only used for percent targets.
func (s Spec) Resolve(originalSize int64) (float64, error) {
	if err := s.Validate(); err != nil {
		return 0, err
	}
	if s.Bytes != nil {
		return *s.Bytes, nil
	}

	p, _ := NormalizePercent(*s.Percent)
	resolved := p / 100 * float64(originalSize)
	if resolved <= 0 {
		return 0, fmt.Errorf("%w: %v%% of %d bytes is not a positive size", ErrInvalidTargetSpec, p, originalSize)
	}
	return resolved, nil
}

// String returns the spec the way a user would type it.
func (s Spec) String() string {
	switch {
	case s.Bytes != nil:
		return strconv.FormatFloat(*s.Bytes, 'f', -1, 64) + " bytes"
	case s.Percent != nil:
		return strconv.FormatFloat(*s.Percent, 'f', -1, 64) + "%"
	default:
		return "<unset>"
	}
}
