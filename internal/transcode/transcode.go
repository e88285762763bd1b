package transcode

import (
	"context"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/disintegration/imaging"

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/mediatypes"
	"ccc-photos/internal/metrics"
)

const (
	DefaultMaxWidth = 2048
	DefaultQuality  = 82
)

// Options controls image re-encoding.
type Options struct {
	MaxWidth  int
	Quality   int
	MaxPixels int
}

// Result describes the artefact written by Transcode.
type Result struct {
	Size   int64
	Width  int
	Height int
	Format mediatypes.Format
	// Passthrough is true when the source bytes were copied unchanged.
	Passthrough bool
}

// Transcoder turns source media files into stored artefacts.
type Transcoder struct {
	opts Options
}

// New returns a Transcoder. Zero option fields take the defaults.
func New(opts Options) *Transcoder {
	if opts.MaxWidth <= 0 {
		opts.MaxWidth = DefaultMaxWidth
	}
	if opts.Quality <= 0 || opts.Quality > 100 {
		opts.Quality = DefaultQuality
	}
	if opts.MaxPixels <= 0 {
		opts.MaxPixels = MaxImagePixels
	}
	return &Transcoder{opts: opts}
}

// Options returns the effective options.
func (t *Transcoder) Options() Options {
	return t.opts
}

// Transcode writes the artefact for src to dst, creating parent directories.
func (t *Transcoder) Transcode(ctx context.Context, src, dst string) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("transcode").Observe(time.Since(start).Seconds())
	}()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	ext := mediatypes.Ext(src)
	if mediatypes.GetKind(ext) != mediatypes.KindImage {
		return copyFile(src, dst)
	}

	format := mediatypes.GetFormat(ext)
	switch format {
	case mediatypes.FormatJPEG, mediatypes.FormatPNG:
		return t.encodeWithImaging(src, dst, format)
	case mediatypes.FormatWebP:
		if !IsVipsAvailable() {
			logging.Warn("libvips not available, storing %s unchanged", filepath.Base(src))
			return copyFile(src, dst)
		}
		if err := checkPixelBudget(src, t.opts.MaxPixels); err != nil {
			return nil, err
		}
		w, h, size, err := transcodeWebP(src, dst, t.opts.MaxWidth, t.opts.Quality)
		if err != nil {
			return nil, err
		}
		return &Result{Size: size, Width: w, Height: h, Format: format}, nil
	default:
		return copyFile(src, dst)
	}
}

func (t *Transcoder) encodeWithImaging(src, dst string, format mediatypes.Format) (*Result, error) {
	if err := checkPixelBudget(src, t.opts.MaxPixels); err != nil {
		return nil, err
	}

	img, err := imaging.Open(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if w := targetWidth(img.Bounds().Dx(), t.opts.MaxWidth); w > 0 {
		logging.Debug("Downscaling %s from %dx%d to width %d",
			filepath.Base(src), img.Bounds().Dx(), img.Bounds().Dy(), w)
		img = imaging.Resize(img, w, 0, imaging.Lanczos)
	}

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	switch format {
	case mediatypes.FormatPNG:
		err = imaging.Encode(out, img, imaging.PNG, imaging.PNGCompressionLevel(pngCompression(t.opts.Quality)))
	default:
		err = imaging.Encode(out, img, imaging.JPEG, imaging.JPEGQuality(t.opts.Quality))
	}
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	info, err := os.Stat(dst)
	if err != nil {
		return nil, err
	}

	return &Result{
		Size:   info.Size(),
		Width:  img.Bounds().Dx(),
		Height: img.Bounds().Dy(),
		Format: format,
	}, nil
}

// pngCompression trades encode time for size at lower quality settings.
// PNG is lossless either way.
func pngCompression(quality int) png.CompressionLevel {
	if quality < 50 {
		return png.BestCompression
	}
	return png.DefaultCompression
}

func copyFile(src, dst string) (*Result, error) {
	in, err := filesystem.OpenWithRetry(src, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			logging.Warn("failed to close %s: %v", src, err)
		}
	}()

	out, err := os.Create(dst)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dst, err)
	}

	n, err := io.Copy(out, in)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(dst)
		return nil, fmt.Errorf("failed to copy %s: %w", src, err)
	}

	return &Result{
		Size:        n,
		Format:      mediatypes.GetFormat(mediatypes.Ext(src)),
		Passthrough: true,
	}, nil
}
