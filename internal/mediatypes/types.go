package mediatypes

import (
	"path/filepath"
	"strings"
)

// Kind represents the type of a media file.
type Kind string

const (
	// KindImage represents a still image.
	KindImage Kind = "image"
	// KindVideo represents a video clip.
	KindVideo Kind = "video"
	// KindOther represents an unknown or unsupported file type.
	KindOther Kind = "other"
)

// Format is the encoding family of an image, used to pick an encoder.
type Format string

const (
	// FormatJPEG covers .jpg and .jpeg.
	FormatJPEG Format = "jpeg"
	// FormatPNG covers .png.
	FormatPNG Format = "png"
	// FormatWebP covers .webp.
	FormatWebP Format = "webp"
	// FormatUnknown is anything the transcoder passes through.
	FormatUnknown Format = ""
)

// ImageExtensions maps file extensions to whether they are ingested as images.
var ImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// VideoExtensions maps file extensions to whether they are ingested as videos.
var VideoExtensions = map[string]bool{
	".mov": true,
	".mp4": true,
	".avi": true,
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",

	".mov": "video/quicktime",
	".mp4": "video/mp4",
	".avi": "video/x-msvideo",
}

var formats = map[string]Format{
	".jpg":  FormatJPEG,
	".jpeg": FormatJPEG,
	".png":  FormatPNG,
	".webp": FormatWebP,
}

// Ext returns the lowercased extension of a path, including the leading dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// GetKind returns the Kind for a given file extension.
// The extension should be lowercase and include the leading dot (e.g., ".jpg").
// Returns KindOther if the extension is not recognized.
func GetKind(ext string) Kind {
	if ImageExtensions[ext] {
		return KindImage
	}
	if VideoExtensions[ext] {
		return KindVideo
	}
	return KindOther
}

// KindOf is GetKind applied to a path.
func KindOf(path string) Kind {
	return GetKind(Ext(path))
}

// GetFormat returns the image encoding family for an extension.
func GetFormat(ext string) Format {
	return formats[ext]
}

// GetMimeType returns the MIME type for a given file extension.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(ext string) string {
	if mime, ok := MimeTypes[ext]; ok {
		return mime
	}
	return "application/octet-stream"
}

// IsMediaFile returns true if the extension represents an ingested media file.
func IsMediaFile(ext string) bool {
	return GetKind(ext) != KindOther
}
