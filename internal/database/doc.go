// Package database provides the SQLite cache used by the ingestion pipeline.
//
// It stores:
//   - Content hashes of source files keyed by path, size and mtime, so an
//     unchanged tree is not re-read on every run
//   - Reverse-geocoded place names keyed by rounded coordinates, so re-runs
//     do not call the geocoding service again for the same cluster centers
//
// The catalog file remains the source of truth; deleting the database only
// costs recomputation. WAL mode is used so worker goroutines can write hash
// entries concurrently.
package database
