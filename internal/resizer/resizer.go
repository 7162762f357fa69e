package resizer

import (
	"context"
	"image"
	"io"
	"time"

	"resizeimage-go/internal/codec"
	"resizeimage-go/internal/engine"
	"resizeimage-go/internal/request"
	"resizeimage-go/internal/statistics"
)

// Result describes a completed resize.
type Result struct {
	InputPath  string
	OutputPath string
	Format     codec.Format
	Engine     *engine.Result
	Stats      *statistics.Run
	Warning    string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Resizer resizes one image per call.
type Resizer interface {
	// Resize decodes req.SourcePath, converges on the target and writes
	// req.OutputPath.
	Resize(ctx context.Context, req *request.Request) (*Result, error)
}

// Codec is the codec used by DefaultResizer.
type Codec interface {
	codec.Codec
	DecodeReader(r io.Reader) (image.Image, error)
}
