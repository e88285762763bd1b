// Package indexer runs the ingestion pipeline over a source tree.
//
// A run loads the catalog, scans the source directory, fingerprints every
// media file (through the hash cache), and decides per file:
//   - Unchanged: same name, same content, current schema, last attempt OK.
//     Left untouched.
//   - Duplicate: same content as an item already stored under another name.
//     Reuses that item's artefact and metadata.
//   - Otherwise: extract metadata (images only), transcode to the staging
//     directory, upload.
//
// Per-file work runs in a bounded worker pool. Results are merged into the
// catalog in one step, orphans are pruned, groups are rebuilt, and the
// catalog is saved. Per-file failures are recorded on the item and never
// stop the run. A scan or save failure, or cancellation, aborts the run
// before anything is saved.
//
// Hidden files and directories (prefixed with '.') are skipped. Recognised
// extensions:
//   - Images: jpg, jpeg, png, webp
//   - Videos: mov, mp4, avi
package indexer
