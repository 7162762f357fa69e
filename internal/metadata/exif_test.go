package metadata

import (
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEXIFDateTime(t *testing.T) {
	got := parseEXIFDateTime("2023:12:25 15:30:45")
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2023, 12, 25, 15, 30, 45, 0, time.UTC), *got)

	assert.NotNil(t, parseEXIFDateTime("2023-12-25 15:30:45"))
	assert.Nil(t, parseEXIFDateTime(""))
	assert.Nil(t, parseEXIFDateTime("yesterday"))
}

func TestOrientationFromText(t *testing.T) {
	assert.Equal(t, 1, orientationFromText("Horizontal (normal)"))
	assert.Equal(t, 6, orientationFromText("Rotate 90 CW"))
	assert.Equal(t, 8, orientationFromText("rotate 270 cw"))
	assert.Equal(t, 3, orientationFromText("3"))
	assert.Equal(t, 0, orientationFromText("sideways"))
	assert.Equal(t, "rotated 90", OrientationName(6))
	assert.Equal(t, "unknown", OrientationName(0))
}

func TestExtractorWithoutEXIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plain.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewGray(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	logger, _ := test.NewNullLogger()
	e := &Extractor{logger: logger, readers: []Reader{NewEXIFReader(logger)}}
	_, err = e.Summary(path)
	assert.ErrorIs(t, err, ErrNoMetadata)
}

func TestExtractorMissingFile(t *testing.T) {
	logger, _ := test.NewNullLogger()
	e := &Extractor{logger: logger, readers: []Reader{NewEXIFReader(logger)}}
	_, err := e.Summary(filepath.Join(t.TempDir(), "missing.jpg"))
	assert.Error(t, err)
}

func TestSourceString(t *testing.T) {
	assert.Equal(t, "EXIF (goexif)", SourceGoExif.String())
	assert.Equal(t, "exiftool", SourceExiftool.String())
	assert.Equal(t, "none", SourceNone.String())
}
