package request

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resizeimage-go/internal/target"
)

func TestDefaultOutputPath(t *testing.T) {
	assert.Equal(t, "/tmp/img_resized.jpeg", DefaultOutputPath("/tmp/img.jpeg", ""))
	assert.Equal(t, "photo_resized.png", DefaultOutputPath("photo.png", ""))
	assert.Equal(t, "a/b/x.v2_small.jpg", DefaultOutputPath("a/b/x.v2.jpg", "_small"))
	assert.Equal(t, "noext_resized", DefaultOutputPath("noext", ""))
}

func TestNewOmittedOutput(t *testing.T) {
	req, err := New(Raw{Input: "/tmp/img.jpeg", TargetSize: "40kb"}, DefaultTolerance)
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/tmp/img_resized.jpeg"), filepath.FromSlash(req.OutputPath))
	assert.Equal(t, DefaultTolerance, req.TolerancePercent)
	require.NotNil(t, req.Target.Bytes)
	assert.Equal(t, 40.0*1024, *req.Target.Bytes)
	assert.False(t, req.IsPercent())
}

func TestNewMinusTwentyPercent(t *testing.T) {
	req, err := New(Raw{Input: "a.png", Percent: "-20", Tolerance: "2%"}, DefaultTolerance)
	require.NoError(t, err)
	require.True(t, req.IsPercent())

	p, err := target.NormalizePercent(*req.Target.Percent)
	require.NoError(t, err)
	assert.Equal(t, 80.0, p)
	assert.Equal(t, 2.0, req.TolerancePercent)
}

func TestNewArgumentErrors(t *testing.T) {
	cases := map[string]Raw{
		"missing input":  {TargetSize: "40kb"},
		"both targets":   {Input: "a.jpg", TargetSize: "40kb", Percent: "50"},
		"neither target": {Input: "a.jpg"},
		"bad tolerance":  {Input: "a.jpg", Percent: "50", Tolerance: "lots"},
		"neg tolerance":  {Input: "a.jpg", Percent: "50", Tolerance: "-5"},
		"blank input":    {Input: "  ", Percent: "50"},
	}
	for name, raw := range cases {
		_, err := New(raw, DefaultTolerance)
		assert.ErrorIs(t, err, ErrArgument, name)
	}
}

func TestNewInvalidTargetSpec(t *testing.T) {
	for _, p := range []string{"150", "-100.5", "0", "-100"} {
		_, err := New(Raw{Input: "a.jpg", Percent: p}, DefaultTolerance)
		assert.ErrorIs(t, err, target.ErrInvalidTargetSpec, p)
		assert.ErrorIs(t, err, ErrArgument, p)
	}

	_, err := New(Raw{Input: "a.jpg", TargetSize: "40gb"}, DefaultTolerance)
	assert.ErrorIs(t, err, target.ErrInvalidTargetSpec)
	assert.NotErrorIs(t, err, ErrArgument)
}

func TestParseTolerance(t *testing.T) {
	for in, want := range map[string]float64{"5": 5, "2.5": 2.5, "10%": 10, "%0": 0} {
		got, err := ParseTolerance(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
}
