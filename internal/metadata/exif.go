package metadata

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/sirupsen/logrus"

	"resizeimage-go/internal/logger"
)

// ErrNoMetadata is returned when a file carries no readable metadata.
var ErrNoMetadata = errors.New("no metadata found")

// EXIFReader reads metadata with the rwcarlsen/goexif library.
type EXIFReader struct {
	logger *logrus.Logger
}

// NewEXIFReader returns a new EXIFReader.
func NewEXIFReader(logger *logrus.Logger) *EXIFReader {
	return &EXIFReader{logger: logger}
}

// Name identifies the reader in debug logs.
func (e *EXIFReader) Name() string { return "goexif" }

// Read decodes the EXIF block of filePath.
func (e *EXIFReader) Read(filePath string) (*Summary, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	x, err := exif.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoMetadata, err)
	}

	s := &Summary{Source: SourceGoExif}
	if tm, err := x.DateTime(); err == nil {
		s.DateTime = &tm
	}
	if tag, err := x.Get(exif.Orientation); err == nil {
		if v, err := tag.Int(0); err == nil {
			s.Orientation = v
		}
	}
	s.Make = stringTag(x, exif.Make)
	s.Model = stringTag(x, exif.Model)
	s.Software = stringTag(x, exif.Software)

	e.logger.Debugf("Read EXIF from %s: orientation=%d make=%q", filePath, s.Orientation, s.Make)
	return s, nil
}

func stringTag(x *exif.Exif, name exif.FieldName) string {
	tag, err := x.Get(name)
	if err != nil {
		return ""
	}
	val, err := tag.StringVal()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(val)
}

// ExiftoolReader reads metadata through the exiftool binary.
type ExiftoolReader struct {
	logger *logrus.Logger
}

// NewExiftoolReader returns a reader backed by go-exiftool.
func NewExiftoolReader(logger *logrus.Logger) *ExiftoolReader {
	return &ExiftoolReader{logger: logger}
}

// Name identifies the reader in debug logs.
func (r *ExiftoolReader) Name() string { return "exiftool" }

// Read runs exiftool against filePath.
func (r *ExiftoolReader) Read(filePath string) (*Summary, error) {
	et, err := exiftool.NewExiftool()
	if err != nil {
		return nil, err
	}
	defer et.Close()

	files := et.ExtractMetadata(filePath)
	if len(files) == 0 {
		return nil, ErrNoMetadata
	}
	if files[0].Err != nil {
		return nil, files[0].Err
	}
	fields := files[0].Fields

	s := &Summary{Source: SourceExiftool}
	if v, ok := fields["DateTimeOriginal"].(string); ok {
		s.DateTime = parseEXIFDateTime(v)
	}
	if s.DateTime == nil {
		if v, ok := fields["ModifyDate"].(string); ok {
			s.DateTime = parseEXIFDateTime(v)
		}
	}
	s.Make, _ = fields["Make"].(string)
	s.Model, _ = fields["Model"].(string)
	s.Software, _ = fields["Software"].(string)
	switch o := fields["Orientation"].(type) {
	case float64:
		s.Orientation = int(o)
	case string:
		s.Orientation = orientationFromText(o)
	}
	return s, nil
}

// Extractor tries each reader in order and returns the first summary.
type Extractor struct {
	logger  *logrus.Logger
	readers []Reader
}

// NewExtractor prefers exiftool when the binary is on PATH and falls back to goexif.
func NewExtractor(logger *logrus.Logger) *Extractor {
	var readers []Reader
	if ExiftoolAvailable() {
		readers = append(readers, NewExiftoolReader(logger))
	}
	readers = append(readers, NewEXIFReader(logger))
	return &Extractor{logger: logger, readers: readers}
}

// Summary returns metadata for filePath from the first reader that succeeds.
func (e *Extractor) Summary(filePath string) (*Summary, error) {
	var lastErr error
	for _, r := range e.readers {
		s, err := r.Read(filePath)
		if err == nil {
			return s, nil
		}
		logger.WithFile(e.logger, filePath).Debugf("%s could not read metadata: %v", r.Name(), err)
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNoMetadata
	}
	return nil, lastErr
}

// ExiftoolAvailable reports whether the exiftool binary can be found.
func ExiftoolAvailable() bool {
	_, err := exec.LookPath("exiftool")
	return err == nil
}

// CopyTags copies metadata from src to dst with exiftool. The orientation tag is
// reset because the output pixels are already oriented.
func CopyTags(src, dst string) error {
	if !ExiftoolAvailable() {
		return fmt.Errorf("exiftool not found in PATH")
	}
	cmd := exec.Command("exiftool", "-TagsFromFile", src, "-all:all", "-Orientation=1", "-n", "-overwrite_original", dst)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("exiftool copy failed: %v: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// parseEXIFDateTime parses an EXIF date time string and returns a time.Time pointer.
// Returns nil if parsing fails.
func parseEXIFDateTime(dateStr string) *time.Time {
	if dateStr == "" {
		return nil
	}

	formats := []string{
		"2006:01:02 15:04:05",
		"2006:01:02 15:04:05-07:00",
		"2006-01-02 15:04:05",
		"2006:01:02",
		time.RFC3339,
	}

	for _, format := range formats {
		if date, err := time.Parse(format, dateStr); err == nil {
			return &date
		}
	}
	return nil
}

// orientationFromText maps exiftool's numeric or printed orientation ("Rotate 90 CW")
// to the EXIF value.
func orientationFromText(s string) int {
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
		return n
	}
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "horizontal (normal)":
		return 1
	case "mirror horizontal":
		return 2
	case "rotate 180":
		return 3
	case "mirror vertical":
		return 4
	case "mirror horizontal and rotate 270 cw":
		return 5
	case "rotate 90 cw":
		return 6
	case "mirror horizontal and rotate 90 cw":
		return 7
	case "rotate 270 cw":
		return 8
	}
	return 0
}
