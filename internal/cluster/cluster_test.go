package cluster

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ccc-photos/internal/catalog"
	"ccc-photos/internal/geo"
	"ccc-photos/internal/mediatypes"
)

type recordingResolver struct {
	mu    sync.Mutex
	calls []geo.Coordinates
	name  string
}

func (r *recordingResolver) Resolve(_ context.Context, lat, lng float64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, geo.Coordinates{Lat: lat, Lng: lng})
	return r.name
}

// failingResolver mimics a geocoder whose lookups always fail.
type failingResolver struct{}

func (failingResolver) Resolve(_ context.Context, lat, lng float64) string {
	return geo.Coordinates{Lat: lat, Lng: lng}.String()
}

func geoItem(id string, lat, lng float64, at *time.Time) catalog.MediaItem {
	return catalog.MediaItem{
		ID:            id,
		OriginalName:  id + ".jpg",
		Kind:          mediatypes.KindImage,
		Coordinates:   &geo.Coordinates{Lat: lat, Lng: lng},
		CapturedAt:    at,
		Processed:     true,
		SchemaVersion: catalog.CurrentSchemaVersion,
	}
}

func at(hour int) *time.Time {
	t := time.Date(2024, 3, 1, hour, 0, 0, 0, time.UTC)
	return &t
}

func TestClusterTwoGroups(t *testing.T) {
	items := []catalog.MediaItem{
		geoItem("a", 0, 0, nil),
		geoItem("b", 0, 0.001, nil),
		geoItem("c", 10, 10, nil),
	}
	res := &recordingResolver{name: "Somewhere"}

	groups := New(0.5, res).Cluster(context.Background(), items)

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "b"}, groups[0].PhotoIDs)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, []string{"c"}, groups[1].PhotoIDs)
	assert.InDelta(t, 0.0005, groups[0].Center.Lng, 1e-12)
	assert.Equal(t, geo.Coordinates{Lat: 10, Lng: 10}, groups[1].Center)
	assert.Len(t, res.calls, 2, "one lookup per group")
	assert.NotEqual(t, groups[0].ID, groups[1].ID)
}

func TestClusterDistanceIsMeasuredToSeed(t *testing.T) {
	// b is within radius of a, c is within radius of b but not of a.
	items := []catalog.MediaItem{
		geoItem("a", 0, 0, nil),
		geoItem("b", 0, 0.006, nil),
		geoItem("c", 0, 0.012, nil),
	}
	groups := New(0.5, nil).Cluster(context.Background(), items)

	require.Len(t, groups, 2)
	assert.Equal(t, []string{"a", "b"}, groups[0].PhotoIDs)
	assert.Equal(t, []string{"c"}, groups[1].PhotoIDs)
}

func TestClusterFilter(t *testing.T) {
	failed := geoItem("failed", 0, 0, nil)
	failed.Error = "upload failed"
	unprocessed := geoItem("pending", 0, 0, nil)
	unprocessed.Processed = false
	invalid := geoItem("invalid", 200, 0, nil)
	noGPS := geoItem("nogps", 0, 0, nil)
	noGPS.Coordinates = nil

	items := []catalog.MediaItem{failed, unprocessed, invalid, noGPS, geoItem("ok", 0, 0, nil)}
	groups := New(0.5, nil).Cluster(context.Background(), items)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"ok"}, groups[0].PhotoIDs)
}

func TestClusterMemberOrder(t *testing.T) {
	items := []catalog.MediaItem{
		geoItem("untimed1", 1, 1, nil),
		geoItem("late", 1, 1, at(15)),
		geoItem("untimed2", 1, 1, nil),
		geoItem("early", 1, 1, at(9)),
		geoItem("tieA", 1, 1, at(12)),
		geoItem("tieB", 1, 1, at(12)),
	}
	groups := New(0.5, nil).Cluster(context.Background(), items)

	require.Len(t, groups, 1)
	assert.Equal(t, []string{"early", "tieA", "tieB", "late", "untimed1", "untimed2"}, groups[0].PhotoIDs)
	assert.Equal(t, at(9), groups[0].StartedAt)
	assert.Equal(t, at(15), groups[0].EndedAt)
}

func TestClusterPlaceNameFallback(t *testing.T) {
	items := []catalog.MediaItem{geoItem("a", 37.77493, -122.41942, nil)}

	groups := New(0.5, failingResolver{}).Cluster(context.Background(), items)
	require.Len(t, groups, 1)
	assert.Equal(t, "37.7749, -122.4194", groups[0].PlaceName)

	// An empty name from the resolver also falls back.
	groups = New(0.5, &recordingResolver{}).Cluster(context.Background(), items)
	assert.Equal(t, "37.7749, -122.4194", groups[0].PlaceName)
}

func TestClusterCancelledSkipsResolver(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := &recordingResolver{name: "never"}

	groups := New(0.5, res).Cluster(ctx, []catalog.MediaItem{geoItem("a", 1, 2, nil)})
	require.Len(t, groups, 1)
	assert.Equal(t, "1.0000, 2.0000", groups[0].PlaceName)
	assert.Empty(t, res.calls)
}

func TestClusterInvariants(t *testing.T) {
	var items []catalog.MediaItem
	for i := 0; i < 60; i++ {
		items = append(items, geoItem(fmt.Sprintf("p%02d", i), float64(i%7)*0.004, float64(i%5)*0.004, nil))
	}
	groups := New(0.5, nil).Cluster(context.Background(), items)

	seen := map[string]bool{}
	total := 0
	for _, g := range groups {
		require.NotEmpty(t, g.PhotoIDs)
		assert.Equal(t, len(g.PhotoIDs), g.Count)
		for _, id := range g.PhotoIDs {
			assert.False(t, seen[id], "%s in two groups", id)
			seen[id] = true
		}
		total += g.Count
	}
	assert.Equal(t, len(items), total)
}

func TestNewDefaultsRadius(t *testing.T) {
	assert.Equal(t, DefaultRadiusMiles, New(0, nil).Radius)
	assert.Equal(t, 2.0, New(2, nil).Radius)
}
