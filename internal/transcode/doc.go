// Package transcode produces the stored artefact for each media file.
//
// Images are decoded with their EXIF orientation applied, downscaled to a
// maximum width (never upscaled) and re-encoded at a configured quality.
// JPEG and PNG go through the imaging library; WebP goes through libvips
// when it is initialised, and is copied verbatim otherwise. Videos and
// unknown formats are always copied verbatim.
package transcode
