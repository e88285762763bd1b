package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openMem(t *testing.T, public string) *Bucket {
	t.Helper()
	b, err := Open(context.Background(), "mem://", public)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestPutAndList(t *testing.T) {
	ctx := context.Background()
	b := openMem(t, "https://cdn.example.com/media/")

	url, err := b.Put(ctx, "photos/a.jpg", []byte("jpeg bytes"), "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/media/photos/a.jpg", url)

	_, err = b.Put(ctx, "photos/b.jpg", []byte("more"), "image/jpeg")
	require.NoError(t, err)
	_, err = b.Put(ctx, "videos/c.mov", []byte("mov"), "video/quicktime")
	require.NoError(t, err)

	keys, err := b.List(ctx, "photos/")
	require.NoError(t, err)
	sort.Strings(keys)
	assert.Equal(t, []string{"photos/a.jpg", "photos/b.jpg"}, keys)

	ok, err := b.Exists(ctx, "videos/c.mov")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, b.Delete(ctx, "videos/c.mov"))
	require.NoError(t, b.Delete(ctx, "videos/c.mov"), "deleting twice is fine")
	ok, _ = b.Exists(ctx, "videos/c.mov")
	assert.False(t, ok)
}

func TestPutFileToFileBucket(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	b, err := Open(ctx, "file://"+filepath.ToSlash(dir)+"?create_dir=true", "")
	require.NoError(t, err)
	defer b.Close()

	src := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(src, []byte("video payload"), 0o644))

	url, err := b.PutFile(ctx, "abc.mp4", src, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(dir)+"/abc.mp4", url)

	got, err := os.ReadFile(filepath.Join(dir, "abc.mp4"))
	require.NoError(t, err)
	assert.Equal(t, "video payload", string(got))

	_, err = b.PutFile(ctx, "missing.mp4", filepath.Join(dir, "nope"), "video/mp4")
	assert.Error(t, err)
}

func TestDeriveBaseURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"mem://", "mem://"},
		{"file:///srv/media?create_dir=true", "file:///srv/media"},
		{"s3://my-bucket?region=us-west-2", "s3://my-bucket"},
		{"s3://my-bucket/prefix/", "s3://my-bucket/prefix"},
	}
	for _, tt := range tests {
		got, err := deriveBaseURL(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(context.Background(), "", "")
	assert.Error(t, err)

	_, err = Open(context.Background(), "nosuchscheme://x", "")
	assert.Error(t, err)
}
