// Package metadata extracts GPS coordinates and capture time from image EXIF
// data.
//
// Missing or unreadable EXIF is never an error: the item simply has no
// coordinates, and the capture time falls back to the file's modification
// time. Only a failure to open or stat the file is reported to the caller.
package metadata
