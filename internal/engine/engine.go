// Package engine implements the resize/measure/compare loop that brings an image's
// encoded size under a target.
//
// Every candidate is resampled from the original raster using a cumulative scale
// factor, never from the previous candidate, so resampling error does not compound
// and the aspect ratio stays anchored to the original.
package engine

import (
	"context"
	"errors"
	"fmt"
	"image"
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"resizeimage-go/internal/codec"
)

// ErrNonConvergence is returned when the safety bounds are hit before the encoded
// size falls within tolerance.
var ErrNonConvergence = errors.New("resize did not converge")

const (
	// DefaultMaxIterations caps the number of encodes per run, the original included.
	DefaultMaxIterations = 50
	// DefaultMinDimension is the smallest width or height a candidate may have.
	DefaultMinDimension = 1
)

// Codec is the part of codec.Codec the engine needs.
type Codec interface {
	Resize(img image.Image, width, height int) (image.Image, error)
	Encode(img image.Image, format codec.Format) ([]byte, error)
}

// Resolver turns the original encoded size into an absolute target in bytes.
// It is called exactly once per run.
type Resolver interface {
	Resolve(originalSize int64) (float64, error)
}

// Config controls tolerance and the safety bounds of the loop.
type Config struct {
	TolerancePercent float64
	MaxIterations    int // maximum number of encodes, including the original
	MinDimension     int
	Verbose          bool
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		TolerancePercent: 5,
		MaxIterations:    DefaultMaxIterations,
		MinDimension:     DefaultMinDimension,
	}
}

// Attempt records one encode of a candidate.
type Attempt struct {
	Iteration int
	Width     int
	Height    int
	Size      int
	Deviation float64
	Duration  time.Duration
}

// Result is the accepted encode and the trace that led to it.
type Result struct {
	Data         []byte
	Size         int
	Width        int
	Height       int
	OriginalSize int
	TargetBytes  float64
	Iterations   int
	Attempts     []Attempt
}

// Engine runs the convergence loop.
type Engine struct {
	codec  Codec
	config Config
	logger *logrus.Logger
}

// New returns an Engine. Zero MaxIterations and MinDimension take their defaults.
func New(c Codec, cfg Config, logger *logrus.Logger) *Engine {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.MinDimension <= 0 {
		cfg.MinDimension = DefaultMinDimension
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{codec: c, config: cfg, logger: logger}
}

// Config returns the effective configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Converge encodes original in format, shrinking it until the encoded size is at
// most target*(1+tolerance/100). Undershooting the target is accepted.
func (e *Engine) Converge(ctx context.Context, original image.Image, format codec.Format, target Resolver) (*Result, error) {
	if e.config.TolerancePercent < 0 || math.IsNaN(e.config.TolerancePercent) {
		return nil, fmt.Errorf("tolerance %v must not be negative", e.config.TolerancePercent)
	}

	bounds := original.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()
	if origW <= 0 || origH <= 0 {
		return nil, fmt.Errorf("%w: empty image %dx%d", codec.ErrCodec, origW, origH)
	}

	aspect := float64(origW) / float64(origH)
	limit := 1 + e.config.TolerancePercent/100
	log := e.logger.WithFields(logrus.Fields{
		"operation": "converge",
		"format":    format.String(),
		"width":     origW,
		"height":    origH,
	})

	res := &Result{}
	candidate := original
	scale := 1.0
	var targetBytes float64

	for iteration := 0; ; iteration++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if iteration >= e.config.MaxIterations {
			last := res.Attempts[len(res.Attempts)-1]
			return nil, fmt.Errorf("%w: %d attempts, last %dx%d encoded to %d bytes against target %.0f",
				ErrNonConvergence, len(res.Attempts), last.Width, last.Height, last.Size, targetBytes)
		}

		start := time.Now()
		data, err := e.codec.Encode(candidate, format)
		if err != nil {
			return nil, err
		}
		size := len(data)
		cb := candidate.Bounds()

		if iteration == 0 {
			res.OriginalSize = size
			targetBytes, err = target.Resolve(int64(size))
			if err != nil {
				return nil, err
			}
			res.TargetBytes = targetBytes
		}

		deviation := float64(size) / targetBytes
		attempt := Attempt{
			Iteration: iteration,
			Width:     cb.Dx(),
			Height:    cb.Dy(),
			Size:      size,
			Deviation: deviation,
			Duration:  time.Since(start),
		}
		res.Attempts = append(res.Attempts, attempt)
		e.logAttempt(log, attempt, targetBytes)

		if deviation <= limit {
			res.Data = data
			res.Size = size
			res.Width = cb.Dx()
			res.Height = cb.Dy()
			res.Iterations = len(res.Attempts)
			return res, nil
		}

		scale /= math.Sqrt(deviation)
		width, height := scaledDimensions(origW, aspect, scale)
		if width < e.config.MinDimension || height < e.config.MinDimension {
			return nil, fmt.Errorf("%w: next candidate %dx%d is below the %dpx minimum (last size %d bytes, target %.0f)",
				ErrNonConvergence, width, height, e.config.MinDimension, size, targetBytes)
		}

		candidate, err = e.codec.Resize(original, width, height)
		if err != nil {
			return nil, err
		}
	}
}

func (e *Engine) logAttempt(log *logrus.Entry, a Attempt, targetBytes float64) {
	entry := log.WithFields(logrus.Fields{
		"iteration": a.Iteration,
		"candidate": fmt.Sprintf("%dx%d", a.Width, a.Height),
		"size":      a.Size,
		"target":    int64(targetBytes),
		"factor":    math.Round(a.Deviation*1000) / 1000,
	})
	if e.config.Verbose {
		entry.Info("Encoded candidate")
		return
	}
	entry.Debug("Encoded candidate")
}

// scaledDimensions derives candidate dimensions from the original width and the
// cumulative scale. Values are truncated, and the height follows the original
// aspect ratio. A height that truncates to zero while the width is still usable
// is kept at one pixel, which is within the rounding error of the ratio.
func scaledDimensions(origW int, aspect, scale float64) (int, int) {
	width := int(float64(origW) * scale)
	height := int(float64(width) / aspect)
	if height < 1 && width >= 1 {
		height = 1
	}
	return width, height
}
