// Command ccc-photos ingests a directory of photos and videos into a
// public media catalog.
//
// Each run is a single batch pass:
//
//  1. Configuration: environment variables or CONFIG_FILE, directory checks.
//  2. Cache database: sqlite file holding content hashes and place names.
//  3. Storage: a gocloud.dev bucket (file://, s3://, mem://) for artefacts.
//  4. Indexing: scan SOURCE_DIR, fingerprint, skip unchanged files,
//     extract EXIF capture time and GPS, transcode images, upload.
//  5. Clustering: geotagged items within CLUSTER_RADIUS_MILES of a seed
//     form a location group, named by reverse geocoding.
//  6. Save: the catalog JSON is written atomically with a bumped version.
//
// SIGINT or SIGTERM cancels the run. A cancelled or failed run never
// rewrites the catalog. The exit status is non-zero on failure.
//
// See internal/startup for the full list of configuration variables.
package main
