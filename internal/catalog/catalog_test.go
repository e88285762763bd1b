package catalog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccc-photos/internal/geo"
	"ccc-photos/internal/mediatypes"
)

func ptrTime(t time.Time) *time.Time { return &t }

func coords(lat, lng float64) *geo.Coordinates { return &geo.Coordinates{Lat: lat, Lng: lng} }

func item(name, hash string) MediaItem {
	return MediaItem{
		OriginalName:  name,
		ContentHash:   hash,
		Kind:          mediatypes.KindOf(name),
		LocationURL:   "mem://bucket/" + name,
		Processed:     true,
		SchemaVersion: CurrentSchemaVersion,
	}
}

func TestMergeAppendsAndReplaces(t *testing.T) {
	c := New()

	added, updated := c.Merge([]MediaItem{item("a.jpg", "h1"), item("b.jpg", "h2")})
	assert.Equal(t, 2, added)
	assert.Equal(t, 0, updated)

	a, ok := c.Lookup("a.jpg")
	require.True(t, ok)
	require.NotEmpty(t, a.ID)

	changed := item("a.jpg", "h3")
	changed.ID = "caller-supplied"
	added, updated = c.Merge([]MediaItem{changed, item("c.jpg", "h4")})
	assert.Equal(t, 1, added)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 3, c.Len())

	a2, _ := c.Lookup("a.jpg")
	assert.Equal(t, a.ID, a2.ID, "existing ID must be kept")
	assert.Equal(t, "h3", a2.ContentHash)

	_, ok = c.LookupHash("h1")
	assert.False(t, ok, "old hash should no longer resolve")
	got, ok := c.LookupHash("h3")
	require.True(t, ok)
	assert.Equal(t, "a.jpg", got.OriginalName)

	b, _ := c.Lookup("b.jpg")
	assert.Equal(t, "h2", b.ContentHash, "untouched entries are preserved")
}

func TestZeroValueCatalog(t *testing.T) {
	var c Catalog
	added, _ := c.Merge([]MediaItem{item("a.jpg", "h1")})
	assert.Equal(t, 1, added)
	got, ok := c.LookupHash("h1")
	require.True(t, ok)
	assert.Equal(t, "a.jpg", got.OriginalName)

	literal := &Catalog{Photos: []MediaItem{item("b.jpg", "h2")}}
	_, ok = literal.Lookup("b.jpg")
	assert.True(t, ok, "hand-built catalogs are indexed on first use")
	assert.False(t, literal.NeedsProcessing("b.jpg", "h2"))
	assert.Equal(t, 1, literal.PruneOrphans(nil))
}

func TestMergeStripsVideoCoordinates(t *testing.T) {
	c := New()
	v := item("clip.mov", "hv")
	v.Coordinates = coords(1, 2)
	c.Merge([]MediaItem{v})

	got, _ := c.Lookup("clip.mov")
	assert.Nil(t, got.Coordinates)
}

func TestMergeAssignsUniqueIDs(t *testing.T) {
	c := New()
	c.Merge([]MediaItem{item("a.jpg", "1"), item("b.jpg", "2"), item("c.jpg", "3")})

	seen := map[string]bool{}
	for _, p := range c.Photos {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}

func TestLookupHashPrefersOriginals(t *testing.T) {
	c := New()
	dup := item("copy.jpg", "same")
	dup.DuplicateOf = "x"
	failed := item("broken.jpg", "same")
	failed.Processed = false
	failed.Error = "decode failed"

	c.Merge([]MediaItem{dup, failed, item("orig.jpg", "same")})

	got, ok := c.LookupHash("same")
	require.True(t, ok)
	assert.Equal(t, "orig.jpg", got.OriginalName)

	_, ok = c.LookupHash("missing")
	assert.False(t, ok)
}

func TestNeedsProcessing(t *testing.T) {
	c := New()
	old := item("old.jpg", "h-old")
	old.SchemaVersion = CurrentSchemaVersion - 1
	failed := item("failed.jpg", "h-failed")
	failed.Processed = false
	failed.Error = "upload failed"
	c.Merge([]MediaItem{item("ok.jpg", "h-ok"), old, failed})

	tests := []struct {
		name, file, hash string
		want             bool
	}{
		{"new file", "new.jpg", "x", true},
		{"unchanged", "ok.jpg", "h-ok", false},
		{"content changed", "ok.jpg", "other", true},
		{"older schema", "old.jpg", "h-old", true},
		{"previous failure", "failed.jpg", "h-failed", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.NeedsProcessing(tt.file, tt.hash))
		})
	}
}

func TestPruneOrphans(t *testing.T) {
	c := New()
	a := item("a.jpg", "ha")
	a.Coordinates = coords(0, 0)
	b := item("b.jpg", "hb")
	b.Coordinates = coords(0, 0.002)
	c.Merge([]MediaItem{a, b, item("c.jpg", "hc")})

	ia, _ := c.Lookup("a.jpg")
	ib, _ := c.Lookup("b.jpg")
	ic, _ := c.Lookup("c.jpg")

	dup := item("dup.jpg", "hc")
	dup.DuplicateOf = ic.ID
	c.Merge([]MediaItem{dup})

	c.SetGroups([]LocationGroup{
		{ID: "g1", Center: geo.Coordinates{Lat: 0, Lng: 0.001}, PhotoIDs: []string{ia.ID, ib.ID}, Count: 2},
		{ID: "g2", PhotoIDs: []string{ic.ID}, Count: 1},
	})

	removed := c.PruneOrphans([]string{"a.jpg", "dup.jpg"})
	assert.Equal(t, 2, removed)
	assert.Equal(t, 2, c.Len())

	_, ok := c.Lookup("b.jpg")
	assert.False(t, ok)

	require.Len(t, c.Groups, 1, "empty groups are dropped")
	assert.Equal(t, []string{ia.ID}, c.Groups[0].PhotoIDs)
	assert.Equal(t, 1, c.Groups[0].Count)
	assert.Equal(t, geo.Coordinates{Lat: 0, Lng: 0}, c.Groups[0].Center)

	d, _ := c.Lookup("dup.jpg")
	assert.Empty(t, d.DuplicateOf, "link to a pruned original is cleared")
	assert.NotEmpty(t, d.LocationURL)

	got, ok := c.LookupHash("hc")
	require.True(t, ok)
	assert.Equal(t, "dup.jpg", got.OriginalName)

	assert.Equal(t, 0, c.PruneOrphans([]string{"a.jpg", "dup.jpg"}))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "manifest.json")

	c := New()
	a := item("trip/a.jpg", "ha")
	a.Coordinates = coords(37.7749, -122.4194)
	a.CapturedAt = ptrTime(time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC))
	a.Size = 1234
	bad := item("trip/b.png", "hb")
	bad.Processed = false
	bad.Error = "transcode failed"
	c.Merge([]MediaItem{a, bad, item("clip.mp4", "hv")})
	ia, _ := c.Lookup("trip/a.jpg")
	c.SetGroups([]LocationGroup{{
		ID:        "g",
		Center:    *a.Coordinates,
		PlaceName: "Mission, San Francisco",
		PhotoIDs:  []string{ia.ID},
		Count:     1,
		StartedAt: a.CapturedAt,
		EndedAt:   a.CapturedAt,
	}})

	require.NoError(t, c.Save(path))
	assert.Equal(t, 1, c.Version)
	assert.False(t, c.LastUpdated.IsZero())

	loaded := Load(path)
	assert.Equal(t, c.Photos, loaded.Photos)
	assert.Equal(t, c.Groups, loaded.Groups)
	assert.Equal(t, 1, loaded.Version)
	assert.True(t, c.LastUpdated.Equal(loaded.LastUpdated))

	require.NoError(t, loaded.Save(path))
	assert.Equal(t, 2, Load(path).Version)
}

func TestSaveWritesExpectedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	c := New()
	c.Merge([]MediaItem{item("a.jpg", "h")})
	require.NoError(t, c.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	for _, field := range []string{`"photos"`, `"groups"`, `"lastUpdated"`, `"version"`, `"originalName"`, `"contentHash"`, `"schemaVersion"`} {
		assert.Contains(t, string(data), field)
	}
}

func TestSaveFailureKeepsVersion(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	c := New()
	err := c.Save(filepath.Join(blocker, "manifest.json"))
	require.Error(t, err)
	assert.Equal(t, 0, c.Version)
}

func TestLoadMissingAndCorrupt(t *testing.T) {
	dir := t.TempDir()

	c := Load(filepath.Join(dir, "missing.json"))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 0, c.Version)

	corrupt := filepath.Join(dir, "corrupt.json")
	require.NoError(t, os.WriteFile(corrupt, []byte("{not json"), 0o644))
	c = Load(corrupt)
	assert.Equal(t, 0, c.Len())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var backups int
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), "corrupt.json.corrupt-") {
			backups++
		}
	}
	assert.Equal(t, 1, backups, "corrupt file should be copied aside")
}

func TestLoadNormalizesLegacyEntries(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.json")
	legacy := `{
	  "photos": [
	    {"originalName": "a.jpg", "contentHash": "h1", "processed": true, "locationUrl": "u1"},
	    {"originalName": "clip.mov", "contentHash": "h2", "processed": true, "coordinates": {"lat": 1, "lng": 2}},
	    {"originalName": "a.jpg", "contentHash": "h3"}
	  ],
	  "version": 7,
	  "lastUpdated": "2024-01-01T00:00:00Z"
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o644))

	c := Load(path)
	require.Equal(t, 2, c.Len())
	assert.Equal(t, 7, c.Version)
	assert.NotNil(t, c.Groups)

	a, ok := c.Lookup("a.jpg")
	require.True(t, ok)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "h1", a.ContentHash)
	assert.Equal(t, mediatypes.KindImage, a.Kind)
	assert.True(t, c.NeedsProcessing("a.jpg", "h1"), "schema version 0 must be reprocessed")

	v, _ := c.Lookup("clip.mov")
	assert.Equal(t, mediatypes.KindVideo, v.Kind)
	assert.Nil(t, v.Coordinates)
}

func TestPeek(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manifest.json")
	c := New()
	bad := item("b.jpg", "hb")
	bad.Processed = false
	c.Merge([]MediaItem{item("a.jpg", "ha"), bad})
	c.SetGroups([]LocationGroup{{ID: "g", PhotoIDs: []string{"x"}, Count: 1}})
	require.NoError(t, c.Save(path))

	s, err := Peek(path)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Version)
	assert.Equal(t, 2, s.Photos)
	assert.Equal(t, 1, s.Groups)
	assert.Equal(t, 1, s.Failed)
	assert.True(t, s.LastUpdated.Equal(c.LastUpdated))

	_, err = Peek(filepath.Join(t.TempDir(), "none.json"))
	assert.Error(t, err)
}
