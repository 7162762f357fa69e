package resizer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"

	"resizeimage-go/internal/codec"
	"resizeimage-go/internal/config"
	"resizeimage-go/internal/engine"
	"resizeimage-go/internal/logger"
	"resizeimage-go/internal/metadata"
	"resizeimage-go/internal/request"
	"resizeimage-go/internal/statistics"
	"resizeimage-go/internal/target"
)

// DefaultResizer is the default implementation of the Resizer interface.
type DefaultResizer struct {
	cfg     *config.Config
	codec   Codec
	logger  *logrus.Logger
	verbose bool

	// copyTags is swapped in tests
	copyTags func(src, dst string) error
}

var _ Resizer = (*DefaultResizer)(nil)

// NewDefaultResizer creates a DefaultResizer. verbose enables per-attempt logging
// at info level.
func NewDefaultResizer(cfg *config.Config, c Codec, log *logrus.Logger, verbose bool) *DefaultResizer {
	return &DefaultResizer{
		cfg:      cfg,
		codec:    c,
		logger:   log,
		verbose:  verbose,
		copyTags: metadata.CopyTags,
	}
}

// Resize performs a single resize according to req.
func (r *DefaultResizer) Resize(ctx context.Context, req *request.Request) (*Result, error) {
	log := logger.WithFileOperation(r.logger, req.SourcePath, "resize")
	res := &Result{
		InputPath:  req.SourcePath,
		OutputPath: req.OutputPath,
		StartedAt:  time.Now(),
	}
	run := statistics.NewRun(req.SourcePath)
	run.OutputPath = req.OutputPath
	run.Resampler = r.cfg.Codec.Resampler
	res.Stats = run

	if err := req.Target.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(req.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", codec.ErrCodec, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", codec.ErrCodec, req.SourcePath)
	}
	run.InputFileSize = info.Size()

	format, err := codec.FormatFromPath(req.OutputPath)
	if err != nil {
		return nil, err
	}
	res.Format = format
	run.Format = format.String()

	img, err := r.codec.Decode(req.SourcePath)
	if err != nil {
		return nil, err
	}
	b := img.Bounds()
	run.OriginalWidth, run.OriginalHeight = b.Dx(), b.Dy()
	log.WithFields(logrus.Fields{
		"width":   b.Dx(),
		"height":  b.Dy(),
		"bytes":   info.Size(),
		"target":  req.Target.String(),
		"percent": req.IsPercent(),
	}).Debug("Decoded source image")

	eng := engine.New(r.codec, r.cfg.EngineOptions(req.TolerancePercent, r.verbose), r.logger)
	out, err := eng.Converge(ctx, img, format, req.Target)
	if err != nil {
		return nil, err
	}
	res.Engine = out
	fillRun(run, out)

	warning, err := r.write(req.SourcePath, req.OutputPath, out.Data)
	if err != nil {
		return nil, err
	}
	res.Warning = warning
	if warning != "" {
		log.Warn(warning)
	}

	run.Finalize()
	res.FinishedAt = run.EndTime
	log.WithFields(logrus.Fields{
		"output":     req.OutputPath,
		"size":       out.Size,
		"iterations": out.Iterations,
	}).Info("Image resized")
	return res, nil
}

// ResizeBytes runs the engine on an encoded image held in memory and returns the
// accepted encoding without touching disk.
func (r *DefaultResizer) ResizeBytes(ctx context.Context, data []byte, format codec.Format, spec target.Spec, tolerance float64) (*engine.Result, *statistics.Run, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}
	run := statistics.NewRun("")
	run.InputFileSize = int64(len(data))
	run.Format = format.String()
	run.Resampler = r.cfg.Codec.Resampler

	img, err := r.codec.DecodeReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	b := img.Bounds()
	run.OriginalWidth, run.OriginalHeight = b.Dx(), b.Dy()

	eng := engine.New(r.codec, r.cfg.EngineOptions(tolerance, r.verbose), r.logger)
	out, err := eng.Converge(ctx, img, format, spec)
	if err != nil {
		return nil, nil, err
	}
	fillRun(run, out)
	run.Finalize()
	return out, run, nil
}

func fillRun(run *statistics.Run, out *engine.Result) {
	run.OriginalSize = int64(out.OriginalSize)
	run.TargetBytes = out.TargetBytes
	run.FinalSize = int64(out.Size)
	run.FinalWidth = out.Width
	run.FinalHeight = out.Height
	run.Iterations = out.Iterations
}

// write stores data at outPath through a uniquely named temporary file in the
// same directory. Metadata copy failures are returned as a warning, not an error.
func (r *DefaultResizer) write(srcPath, outPath string, data []byte) (string, error) {
	if dir := filepath.Dir(outPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("create output dir: %w", err)
		}
	}

	if err := atomic.WriteFile(outPath, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}

	var warning string
	if r.cfg.Output.PreserveMetadata {
		if err := r.copyTags(srcPath, outPath); err != nil {
			warning = fmt.Sprintf("metadata not copied: %v", err)
		}
	}
	return warning, nil
}
