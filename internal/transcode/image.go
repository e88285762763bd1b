package transcode

import (
	"fmt"
	"image"

	// Image format decoders
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp" // WebP format support

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/logging"
)

// MaxImagePixels is the maximum total pixels (width * height) we'll decode.
// A 50MP image is ~200MB in RGBA; inputs above this are rejected.
const MaxImagePixels = 50_000_000

// Dimensions holds image width and height
type Dimensions struct {
	Width  int
	Height int
}

// GetImageDimensions returns image dimensions without fully decoding the image
func GetImageDimensions(path string) (*Dimensions, error) {
	file, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("failed to close image file %s: %v", path, err)
		}
	}()

	config, _, err := image.DecodeConfig(file)
	if err != nil {
		return nil, err
	}

	return &Dimensions{
		Width:  config.Width,
		Height: config.Height,
	}, nil
}

// checkPixelBudget rejects images whose decoded size would exceed maxPixels.
// Images whose header cannot be read are left for the decoder to reject.
func checkPixelBudget(path string, maxPixels int) error {
	dims, err := GetImageDimensions(path)
	if err != nil {
		logging.Debug("Could not get image dimensions for %s: %v", path, err)
		return nil
	}
	if pixels := dims.Width * dims.Height; pixels > maxPixels {
		return fmt.Errorf("image %dx%d exceeds %d pixel limit", dims.Width, dims.Height, maxPixels)
	}
	return nil
}

// targetWidth returns the width an image should be resized to, or 0 when it
// already fits.
func targetWidth(width, maxWidth int) int {
	if maxWidth <= 0 || width <= maxWidth {
		return 0
	}
	return maxWidth
}
