package resizer

import (
	"context"
	"errors"
	"image"
	"image/color"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resizeimage-go/internal/codec"
	"resizeimage-go/internal/config"
	"resizeimage-go/internal/request"
	"resizeimage-go/internal/target"
)

// noise returns an image whose encoded size grows roughly with its area.
func noise(w, h int) *image.NRGBA {
	rng := rand.New(rand.NewSource(42))
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{
				R: uint8(rng.Intn(256)),
				G: uint8(rng.Intn(256)),
				B: uint8(rng.Intn(256)),
				A: 255,
			})
		}
	}
	return img
}

func writeSource(t *testing.T, name string, w, h int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, imaging.Save(noise(w, h), path))
	return path
}

// countingCodec records how often Decode is called.
type countingCodec struct {
	*codec.ImagingCodec
	decodes int
}

func (c *countingCodec) Decode(path string) (image.Image, error) {
	c.decodes++
	return c.ImagingCodec.Decode(path)
}

func newResizer(t *testing.T, cfg *config.Config) (*DefaultResizer, *countingCodec) {
	t.Helper()
	ic, err := codec.NewImagingCodec(cfg.CodecOptions())
	require.NoError(t, err)
	cc := &countingCodec{ImagingCodec: ic}
	log, _ := test.NewNullLogger()
	return NewDefaultResizer(cfg, cc, log, false), cc
}

func TestResizePercentPNG(t *testing.T) {
	src := writeSource(t, "noise.png", 200, 150)
	r, _ := newResizer(t, config.DefaultConfig())

	req, err := request.New(request.Raw{Input: src, Percent: "-50%"}, request.DefaultTolerance)
	require.NoError(t, err)

	res, err := r.Resize(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(filepath.Dir(src), "noise_resized.png"), res.OutputPath)
	assert.Equal(t, codec.PNG, res.Format)
	assert.LessOrEqual(t, float64(res.Engine.Size), res.Engine.TargetBytes*1.05)
	assert.InDelta(t, 0.5*float64(res.Engine.OriginalSize), res.Engine.TargetBytes, 1e-6)
	assert.Less(t, res.Engine.Width, 200)
	assert.InDelta(t, float64(res.Engine.Width)*150/200, float64(res.Engine.Height), 1)

	info, err := os.Stat(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, int64(res.Engine.Size), info.Size())
	entries, err := os.ReadDir(filepath.Dir(src))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "no temporary files left behind")

	out, err := imaging.Open(res.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, res.Engine.Width, out.Bounds().Dx())
	assert.Equal(t, res.Stats.FinalWidth, out.Bounds().Dx())
	assert.NotEmpty(t, res.Stats.GetSummary())
}

func TestResizeConvertsToOutputFormat(t *testing.T) {
	src := writeSource(t, "noise.png", 200, 150)
	out := filepath.Join(t.TempDir(), "nested", "small.jpg")
	r, _ := newResizer(t, config.DefaultConfig())

	req, err := request.New(request.Raw{Input: src, Output: out, TargetSize: "10kb", Tolerance: "5"}, request.DefaultTolerance)
	require.NoError(t, err)

	res, err := r.Resize(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, codec.JPEG, res.Format)
	assert.LessOrEqual(t, float64(res.Engine.Size), 10*1024*1.05)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	require.Greater(t, len(data), 2)
	assert.Equal(t, []byte{0xFF, 0xD8}, data[:2], "output must be a JPEG")
}

func TestResizePercentAcrossFormatsUsesOutputEncoding(t *testing.T) {
	src := writeSource(t, "noise.png", 160, 120)
	out := filepath.Join(t.TempDir(), "noise.jpg")
	r, cc := newResizer(t, config.DefaultConfig())

	req, err := request.New(request.Raw{Input: src, Output: out, Percent: "50"}, request.DefaultTolerance)
	require.NoError(t, err)
	res, err := r.Resize(context.Background(), req)
	require.NoError(t, err)

	decoded, err := cc.Decode(src)
	require.NoError(t, err)
	asJPEG, err := cc.Encode(decoded, codec.JPEG)
	require.NoError(t, err)

	assert.Equal(t, len(asJPEG), res.Engine.OriginalSize)
	assert.NotEqual(t, res.Stats.InputFileSize, int64(res.Engine.OriginalSize))
	assert.InDelta(t, 0.5*float64(res.Engine.OriginalSize), res.Engine.TargetBytes, 1e-6)
	assert.LessOrEqual(t, float64(res.Engine.Size), res.Engine.TargetBytes*1.05)
}

func TestResizeKeepsUnrelatedTmpFile(t *testing.T) {
	src := writeSource(t, "noise.png", 80, 60)
	out := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(out+".tmp", []byte("user data"), 0644))
	r, _ := newResizer(t, config.DefaultConfig())

	req, err := request.New(request.Raw{Input: src, Output: out, Percent: "80"}, request.DefaultTolerance)
	require.NoError(t, err)
	_, err = r.Resize(context.Background(), req)
	require.NoError(t, err)

	kept, err := os.ReadFile(out + ".tmp")
	require.NoError(t, err)
	assert.Equal(t, "user data", string(kept))
	_, err = os.Stat(out)
	assert.NoError(t, err)
}

func TestResizeOverwritesExistingOutput(t *testing.T) {
	src := writeSource(t, "noise.png", 80, 60)
	out := filepath.Join(t.TempDir(), "out.png")
	require.NoError(t, os.WriteFile(out, []byte("stale"), 0644))
	r, _ := newResizer(t, config.DefaultConfig())

	req, err := request.New(request.Raw{Input: src, Output: out, Percent: "80"}, request.DefaultTolerance)
	require.NoError(t, err)
	res, err := r.Resize(context.Background(), req)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, res.Engine.Data, data)
}

func TestResizeInvalidPercentFailsBeforeDecode(t *testing.T) {
	src := writeSource(t, "noise.png", 20, 20)
	r, cc := newResizer(t, config.DefaultConfig())

	req := &request.Request{SourcePath: src, OutputPath: src, Target: target.Percentage(150), TolerancePercent: 5}
	_, err := r.Resize(context.Background(), req)
	assert.ErrorIs(t, err, target.ErrInvalidTargetSpec)
	assert.Zero(t, cc.decodes)
}

func TestResizeMissingSource(t *testing.T) {
	r, _ := newResizer(t, config.DefaultConfig())
	req := &request.Request{
		SourcePath:       filepath.Join(t.TempDir(), "missing.png"),
		OutputPath:       filepath.Join(t.TempDir(), "out.png"),
		Target:           target.Absolute(1024),
		TolerancePercent: 5,
	}
	_, err := r.Resize(context.Background(), req)
	assert.ErrorIs(t, err, codec.ErrCodec)
}

func TestResizeUnsupportedOutputFormat(t *testing.T) {
	src := writeSource(t, "noise.png", 20, 20)
	out := filepath.Join(t.TempDir(), "out.webp")
	r, cc := newResizer(t, config.DefaultConfig())

	req := &request.Request{SourcePath: src, OutputPath: out, Target: target.Absolute(1024), TolerancePercent: 5}
	_, err := r.Resize(context.Background(), req)
	assert.ErrorIs(t, err, codec.ErrUnsupportedFormat)
	assert.Zero(t, cc.decodes)
	_, statErr := os.Stat(out)
	assert.True(t, os.IsNotExist(statErr))
}

func TestResizeMetadataFailureIsWarning(t *testing.T) {
	src := writeSource(t, "noise.png", 60, 40)
	cfg := config.DefaultConfig()
	cfg.Output.PreserveMetadata = true
	r, _ := newResizer(t, cfg)
	var copied []string
	r.copyTags = func(s, d string) error {
		copied = append(copied, s, d)
		return errors.New("exiftool not found in PATH")
	}

	req, err := request.New(request.Raw{Input: src, Percent: "80"}, request.DefaultTolerance)
	require.NoError(t, err)
	res, err := r.Resize(context.Background(), req)
	require.NoError(t, err)
	assert.Contains(t, res.Warning, "metadata not copied")
	assert.Equal(t, []string{src, res.OutputPath}, copied)
	_, err = os.Stat(res.OutputPath)
	assert.NoError(t, err)
}

func TestResizeBytes(t *testing.T) {
	r, _ := newResizer(t, config.DefaultConfig())
	ic, err := codec.NewImagingCodec(codec.DefaultOptions())
	require.NoError(t, err)
	data, err := ic.Encode(noise(120, 90), codec.PNG)
	require.NoError(t, err)

	out, run, err := r.ResizeBytes(context.Background(), data, codec.JPEG, target.Absolute(4*1024), 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, float64(out.Size), 4*1024*1.05)
	assert.Equal(t, 120, run.OriginalWidth)
	assert.Equal(t, int64(len(data)), run.InputFileSize)
	assert.Equal(t, "JPEG", run.Format)

	_, _, err = r.ResizeBytes(context.Background(), []byte("junk"), codec.PNG, target.Absolute(1024), 5)
	assert.ErrorIs(t, err, codec.ErrCodec)
}
