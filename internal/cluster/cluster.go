// Package cluster groups geotagged catalog items into location groups.
//
// The algorithm is greedy and seed-based: each unassigned item seeds a new
// group, and every later unassigned item within the radius of that seed
// joins it. Distance is measured to the seed only, so two members of one
// group may be up to twice the radius apart. The pass is O(n²) in the
// number of eligible items, which is fine for personal photo collections.
package cluster

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"ccc-photos/internal/catalog"
	"ccc-photos/internal/geo"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// DefaultRadiusMiles is the seed radius used when none is configured.
const DefaultRadiusMiles = 0.5

// Resolver names a position. It must not fail; implementations fall back
// to a coordinate string.
type Resolver interface {
	Resolve(ctx context.Context, lat, lng float64) string
}

// Engine clusters catalog items.
type Engine struct {
	Radius   float64
	Resolver Resolver
}

// New returns an Engine. A non-positive radius uses DefaultRadiusMiles.
func New(radius float64, resolver Resolver) *Engine {
	if radius <= 0 {
		radius = DefaultRadiusMiles
	}
	return &Engine{Radius: radius, Resolver: resolver}
}

// Eligible reports whether an item takes part in clustering.
func Eligible(item *catalog.MediaItem) bool {
	return item.Geotagged() && item.OK()
}

// Cluster groups the eligible items in order. Groups come back in the order
// they were formed. Place names are resolved once per group, sequentially;
// after ctx is cancelled the remaining groups get the coordinate fallback.
func (e *Engine) Cluster(ctx context.Context, items []catalog.MediaItem) []catalog.LocationGroup {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("cluster").Observe(time.Since(start).Seconds())
	}()

	radius := e.Radius
	if radius <= 0 {
		radius = DefaultRadiusMiles
	}

	eligible := make([]*catalog.MediaItem, 0, len(items))
	for i := range items {
		if Eligible(&items[i]) {
			eligible = append(eligible, &items[i])
		}
	}

	assigned := make([]bool, len(eligible))
	groups := []catalog.LocationGroup{}

	for i, seed := range eligible {
		if assigned[i] {
			continue
		}
		assigned[i] = true
		members := []*catalog.MediaItem{seed}

		for j := i + 1; j < len(eligible); j++ {
			if assigned[j] {
				continue
			}
			if geo.Distance(*seed.Coordinates, *eligible[j].Coordinates) <= radius {
				assigned[j] = true
				members = append(members, eligible[j])
			}
		}

		groups = append(groups, e.buildGroup(ctx, members))
	}

	logging.Debug("Clustered %d geotagged items into %d groups", len(eligible), len(groups))
	return groups
}

func (e *Engine) buildGroup(ctx context.Context, members []*catalog.MediaItem) catalog.LocationGroup {
	points := make([]geo.Coordinates, len(members))
	for i, m := range members {
		points[i] = *m.Coordinates
	}
	center, _ := geo.Centroid(points)

	SortByCapture(members)

	g := catalog.LocationGroup{
		ID:       uuid.NewString(),
		Center:   center,
		PhotoIDs: make([]string, len(members)),
		Count:    len(members),
	}
	for i, m := range members {
		g.PhotoIDs[i] = m.ID
		if m.CapturedAt == nil {
			continue
		}
		if g.StartedAt == nil || m.CapturedAt.Before(*g.StartedAt) {
			t := *m.CapturedAt
			g.StartedAt = &t
		}
		if g.EndedAt == nil || m.CapturedAt.After(*g.EndedAt) {
			t := *m.CapturedAt
			g.EndedAt = &t
		}
	}

	g.PlaceName = e.resolve(ctx, center)
	return g
}

func (e *Engine) resolve(ctx context.Context, center geo.Coordinates) string {
	if e.Resolver == nil || ctx.Err() != nil {
		return center.String()
	}
	if name := e.Resolver.Resolve(ctx, center.Lat, center.Lng); name != "" {
		return name
	}
	return center.String()
}

// SortByCapture orders items by capture time ascending. Items without a
// timestamp go last; ties keep their relative order.
func SortByCapture(items []*catalog.MediaItem) {
	sort.SliceStable(items, func(a, b int) bool {
		ta, tb := items[a].CapturedAt, items[b].CapturedAt
		switch {
		case ta == nil:
			return false
		case tb == nil:
			return true
		default:
			return ta.Before(*tb)
		}
	})
}
