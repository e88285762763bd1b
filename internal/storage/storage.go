// Package storage uploads artefacts to blob storage through gocloud.dev.
//
// Buckets are opened by URL, so the same code writes to a local directory
// (file://), process memory (mem://) or S3 (s3://). The public URL of a
// stored object is PUBLIC_BASE_URL/key when a base is configured, and
// derived from the bucket URL otherwise.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	_ "gocloud.dev/blob/s3blob"   // s3:// buckets
	"gocloud.dev/gcerrors"

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// Bucket is an opened blob bucket plus the base used to build object URLs.
type Bucket struct {
	bucket  *blob.Bucket
	baseURL string
}

// Open opens the bucket at bucketURL. publicBaseURL may be empty.
func Open(ctx context.Context, bucketURL, publicBaseURL string) (*Bucket, error) {
	if bucketURL == "" {
		return nil, errors.New("storage: empty bucket URL")
	}

	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open bucket %s: %w", bucketURL, err)
	}

	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base, err = deriveBaseURL(bucketURL)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
	}

	logging.Debug("Opened bucket %s (public base %s)", bucketURL, base)
	return &Bucket{bucket: b, baseURL: base}, nil
}

// deriveBaseURL strips driver options from a bucket URL.
func deriveBaseURL(bucketURL string) (string, error) {
	u, err := url.Parse(bucketURL)
	if err != nil {
		return "", fmt.Errorf("invalid bucket URL %s: %w", bucketURL, err)
	}
	return u.Scheme + "://" + u.Host + strings.TrimRight(u.Path, "/"), nil
}

// URL returns the public URL for key.
func (b *Bucket) URL(key string) string {
	return b.baseURL + "/" + strings.TrimLeft(key, "/")
}

// Put stores data under key and returns its public URL.
func (b *Bucket) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	}()

	opts := &blob.WriterOptions{ContentType: contentType}
	if err := b.bucket.WriteAll(ctx, key, data, opts); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	metrics.UploadBytesTotal.Add(float64(len(data)))
	return b.URL(key), nil
}

// PutFile streams the file at path to key and returns its public URL.
func (b *Bucket) PutFile(ctx context.Context, key, path, contentType string) (string, error) {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("upload").Observe(time.Since(start).Seconds())
	}()

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			logging.Warn("failed to close %s: %v", path, err)
		}
	}()

	// Cancelling ctx before Close aborts the write, so a failed upload never
	// leaves a partial object behind.
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	w, err := b.bucket.NewWriter(wctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return "", fmt.Errorf("failed to start upload of %s: %w", key, err)
	}

	n, err := io.Copy(w, f)
	if err != nil {
		cancel()
		_ = w.Close()
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", key, err)
	}

	metrics.UploadBytesTotal.Add(float64(n))
	return b.URL(key), nil
}

// List returns the keys under prefix.
func (b *Bucket) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := b.bucket.List(&blob.ListOptions{Prefix: prefix})
	for {
		obj, err := iter.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
		}
		if obj.IsDir {
			continue
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

// Exists reports whether key is present.
func (b *Bucket) Exists(ctx context.Context, key string) (bool, error) {
	return b.bucket.Exists(ctx, key)
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	err := b.bucket.Delete(ctx, key)
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Close releases the bucket.
func (b *Bucket) Close() error {
	return b.bucket.Close()
}
