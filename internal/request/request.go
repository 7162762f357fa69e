package request

import (
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"resizeimage-go/internal/target"
)

// ErrArgument marks malformed, missing or conflicting arguments.
var ErrArgument = errors.New("invalid arguments")

const (
	// DefaultTolerance is the tolerance used when none is given.
	DefaultTolerance = 5.0
	// DefaultSuffix is appended to the input stem when no output path is given.
	DefaultSuffix = "_resized"
)

var tolerancePattern = regexp.MustCompile(`^\s*%*\s*([0-9]*\.?[0-9]+)\s*%*\s*$`)

// Raw holds unparsed values as they come from the command line or a form.
type Raw struct {
	Input      string
	Output     string
	TargetSize string
	Percent    string
	Tolerance  string
	Suffix     string
}

// Request is a validated resize request. It is not modified after New returns.
type Request struct {
	SourcePath       string
	OutputPath       string
	Target           target.Spec
	TolerancePercent float64
}

// New validates raw and builds a Request. defaultTolerance applies when raw.Tolerance
// is empty.
func New(raw Raw, defaultTolerance float64) (*Request, error) {
	if strings.TrimSpace(raw.Input) == "" {
		return nil, fmt.Errorf("%w: the following arguments are required: -i/--input", ErrArgument)
	}

	spec, err := ParseTarget(raw.TargetSize, raw.Percent)
	if err != nil {
		return nil, err
	}

	tolerance := defaultTolerance
	if raw.Tolerance != "" {
		tolerance, err = ParseTolerance(raw.Tolerance)
		if err != nil {
			return nil, err
		}
	}

	output := raw.Output
	if output == "" {
		output = DefaultOutputPath(raw.Input, raw.Suffix)
	}

	return &Request{
		SourcePath:       raw.Input,
		OutputPath:       output,
		Target:           spec,
		TolerancePercent: tolerance,
	}, nil
}

// ParseTarget builds a target spec from exactly one of size or percent.
func ParseTarget(size, percent string) (target.Spec, error) {
	size, percent = strings.TrimSpace(size), strings.TrimSpace(percent)
	switch {
	case size != "" && percent != "":
		return target.Spec{}, fmt.Errorf("%w: argument -p/--percent: not allowed with argument -s/--targetsize", ErrArgument)
	case size == "" && percent == "":
		return target.Spec{}, fmt.Errorf("%w: one of the arguments -s/--targetsize -p/--percent is required", ErrArgument)
	case size != "":
		b, err := target.ParseSize(size)
		if err != nil {
			return target.Spec{}, err
		}
		return target.Absolute(b), nil
	default:
		// percent problems are reported like parser errors, size problems are not
		p, err := target.ParsePercent(percent)
		if err != nil {
			return target.Spec{}, fmt.Errorf("%w: %w", ErrArgument, err)
		}
		spec := target.Percentage(p)
		if err := spec.Validate(); err != nil {
			return target.Spec{}, fmt.Errorf("%w: %w", ErrArgument, err)
		}
		return spec, nil
	}
}

// ParseTolerance parses values like "5", "2.5" or "10%".
func ParseTolerance(s string) (float64, error) {
	m := tolerancePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("%w: invalid tolerance %q", ErrArgument, s)
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: invalid tolerance %q", ErrArgument, s)
	}
	return v, nil
}

// DefaultOutputPath returns <dir>/<stem><suffix><ext> next to the input file.
func DefaultOutputPath(input, suffix string) string {
	if suffix == "" {
		suffix = DefaultSuffix
	}
	dir, base := filepath.Split(input)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	return dir + stem + suffix + ext
}

// IsPercent reports whether the target is relative to the original size.
func (r *Request) IsPercent() bool {
	return r.Target.IsPercent()
}
