package metadata

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rwcarlsen/goexif/exif"

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/geo"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// TimeSource records where a capture time came from.
type TimeSource string

const (
	TimeSourceNone TimeSource = ""
	TimeSourceEXIF TimeSource = "exif"
	TimeSourceFile TimeSource = "file"
)

// Result holds the metadata extracted from one image. Nil fields mean the
// value is unknown.
type Result struct {
	Coordinates *geo.Coordinates
	CapturedAt  *time.Time
	TimeSource  TimeSource
}

// Extract reads EXIF GPS and capture time from the image at path.
func Extract(path string) (*Result, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("metadata").Observe(time.Since(start).Seconds())
	}()

	cfg := filesystem.DefaultRetryConfig()

	info, err := filesystem.StatWithRetry(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	f, err := filesystem.OpenWithRetry(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	res := &Result{}
	name := filepath.Base(path)

	x, err := exif.Decode(f)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		logging.Warn("No EXIF data in %s: %v", name, err)
		x = nil
	}

	if x != nil {
		res.Coordinates = coordinates(x, name)

		if t, err := x.DateTime(); err == nil && !t.IsZero() {
			res.CapturedAt = &t
			res.TimeSource = TimeSourceEXIF
		} else if err != nil {
			logging.Debug("No EXIF capture time in %s: %v", name, err)
		}
	}

	if res.CapturedAt == nil {
		if mt := info.ModTime(); !mt.IsZero() {
			res.CapturedAt = &mt
			res.TimeSource = TimeSourceFile
		}
	}

	return res, nil
}

func coordinates(x *exif.Exif, name string) *geo.Coordinates {
	lat, lng, err := x.LatLong()
	if err != nil {
		var tagErr exif.TagNotPresentError
		if errors.As(err, &tagErr) {
			logging.Warn("No GPS data in %s", name)
		} else {
			logging.Warn("Unreadable GPS data in %s: %v", name, err)
		}
		return nil
	}

	c := geo.Coordinates{Lat: lat, Lng: lng}
	if !c.Valid() {
		logging.Warn("Discarding invalid GPS position in %s: %v, %v", name, lat, lng)
		return nil
	}
	return &c
}
