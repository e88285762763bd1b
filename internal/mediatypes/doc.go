// Package mediatypes provides shared type definitions for media file handling
// across the ingestion pipeline.
//
// It is a dependency-free foundation that can be imported by every other
// package without creating import cycles.
//
// Recognized extensions partition the source tree:
//
//	images: .jpg .jpeg .png .webp
//	videos: .mov .mp4 .avi
//
// Everything else is ignored by the scanner:
//
//	switch mediatypes.KindOf(path) {
//	case mediatypes.KindImage:
//	    // extract metadata, transcode
//	case mediatypes.KindVideo:
//	    // passthrough
//	}
package mediatypes
