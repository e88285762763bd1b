// Package fingerprint computes content hashes used to detect duplicate and
// changed media files.
package fingerprint

import (
	"context"
	"crypto/md5" //nolint:gosec // MD5 detects accidental duplicates, not adversarial collisions
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// Sum returns the hex MD5 digest of data.
func Sum(data []byte) string {
	sum := md5.Sum(data) //nolint:gosec
	return hex.EncodeToString(sum[:])
}

// File streams the file at path through MD5 and returns the hex digest.
func File(path string) (string, error) {
	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", err
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	h := md5.New() //nolint:gosec
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// HashStore persists digests keyed by path, size and modification time.
type HashStore interface {
	GetFileHash(ctx context.Context, path string, size, modTime int64) (string, bool, error)
	PutFileHash(ctx context.Context, path string, size, modTime int64, hash string) error
}

// Cached hashes files, skipping the read when the store already holds a
// digest for the same path, size and mtime. A nil store disables caching.
type Cached struct {
	store HashStore
}

// NewCached returns a Cached hasher backed by store.
func NewCached(store HashStore) *Cached {
	return &Cached{store: store}
}

// File returns the digest for path. info must describe the file at path.
// Cache failures are logged and fall back to hashing the file.
func (c *Cached) File(ctx context.Context, path string, info os.FileInfo) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("fingerprint").Observe(time.Since(start).Seconds())
	}()

	size := info.Size()
	modTime := info.ModTime().UnixNano()

	if c != nil && c.store != nil {
		hash, ok, err := c.store.GetFileHash(ctx, path, size, modTime)
		if err != nil {
			logging.Warn("hash cache lookup failed for %s: %v", path, err)
		}
		if ok && hash != "" {
			metrics.HashCacheLookups.WithLabelValues("hit").Inc()
			return hash, nil
		}
		metrics.HashCacheLookups.WithLabelValues("miss").Inc()
	}

	hash, err := File(path)
	if err != nil {
		return "", err
	}

	if c != nil && c.store != nil {
		if err := c.store.PutFileHash(ctx, path, size, modTime, hash); err != nil {
			logging.Warn("hash cache store failed for %s: %v", path, err)
		}
	}
	return hash, nil
}
