package indexer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/mediatypes"
	"ccc-photos/internal/workers"
)

// SourceFile is a media file found under the source root.
type SourceFile struct {
	// Path is the absolute path on disk.
	Path string
	// RelPath is the slash-separated path relative to the root; it is the
	// catalog key for the file.
	RelPath string
	Kind    mediatypes.Kind
	Size    int64
	ModTime time.Time
	Info    os.FileInfo
}

// ScanConfig configures Scan.
type ScanConfig struct {
	// NumWorkers stats candidate files in parallel (0 = auto).
	NumWorkers int
	// SkipHidden skips files and directories starting with "."
	SkipHidden bool
}

// DefaultScanConfig returns the configuration used by the pipeline.
func DefaultScanConfig() ScanConfig {
	// Stat is I/O-bound; three workers stay gentle on NFS.
	return ScanConfig{NumWorkers: 3, SkipHidden: true}
}

type candidate struct {
	path    string
	relPath string
	kind    mediatypes.Kind
}

// Scan walks root recursively and returns the recognised media files in
// RelPath order. An unreadable root is an error; unreadable entries below
// it are logged and skipped.
func Scan(ctx context.Context, root string, cfg ScanConfig) ([]SourceFile, error) {
	startTime := time.Now()

	info, err := filesystem.StatWithRetry(root, filesystem.DefaultRetryConfig())
	if err != nil {
		return nil, fmt.Errorf("cannot read source directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source %s is not a directory", root)
	}

	var candidates []candidate
	var skipped int

	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			if path == root {
				return err
			}
			logging.Warn("Error accessing path %s: %v", path, err)
			skipped++
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if path == root {
			return nil
		}

		if cfg.SkipHidden && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		kind := mediatypes.KindOf(d.Name())
		if kind == mediatypes.KindOther {
			return nil
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			//nolint:nilerr // skip this file but keep walking
			return nil
		}
		candidates = append(candidates, candidate{
			path:    path,
			relPath: filepath.ToSlash(relPath),
			kind:    kind,
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("cannot read source directory: %w", err)
	}

	files := make([]*SourceFile, len(candidates))
	var statErrors atomic.Int64

	err = workers.ForEach(ctx, workers.Count(cfg.NumWorkers, 2.0, 0), candidates, func(_ context.Context, i int, c candidate) {
		// Stat follows symlinks, unlike the walk's DirEntry info.
		info, err := filesystem.StatWithRetry(c.path, filesystem.DefaultRetryConfig())
		if err != nil {
			logging.Warn("Error getting info for %s: %v", c.path, err)
			statErrors.Add(1)
			return
		}
		if !info.Mode().IsRegular() {
			return
		}
		files[i] = &SourceFile{
			Path:    c.path,
			RelPath: c.relPath,
			Kind:    c.kind,
			Size:    info.Size(),
			ModTime: info.ModTime(),
			Info:    info,
		}
	})
	if err != nil {
		return nil, err
	}

	result := make([]SourceFile, 0, len(files))
	for _, f := range files {
		if f != nil {
			result = append(result, *f)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].RelPath < result[j].RelPath })

	logging.Info("Scan complete: %d media files in %v (skipped: %d)",
		len(result), time.Since(startTime), skipped+int(statErrors.Load()))
	return result, nil
}

// Names returns the RelPath of every file.
func Names(files []SourceFile) []string {
	names := make([]string, len(files))
	for i, f := range files {
		names[i] = f.RelPath
	}
	return names
}

// isCancelled reports whether err is a context cancellation or deadline.
func isCancelled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
