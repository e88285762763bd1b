package catalog

import (
	"time"

	"ccc-photos/internal/geo"
	"ccc-photos/internal/mediatypes"
)

// CurrentSchemaVersion is stamped on items when they are processed. Items
// stored under an older version are reprocessed on the next run.
//
// History:
//
//	1: initial layout
//	2: orientation applied before downscaling, relative-path names
const CurrentSchemaVersion = 2

// MediaItem is the catalog record for one source file.
type MediaItem struct {
	ID            string           `json:"id"`
	OriginalName  string           `json:"originalName"`
	ContentHash   string           `json:"contentHash"`
	Kind          mediatypes.Kind  `json:"kind"`
	Coordinates   *geo.Coordinates `json:"coordinates,omitempty"`
	CapturedAt    *time.Time       `json:"capturedAt,omitempty"`
	LocationURL   string           `json:"locationUrl,omitempty"`
	Processed     bool             `json:"processed"`
	Error         string           `json:"error,omitempty"`
	SchemaVersion int              `json:"schemaVersion"`
	DuplicateOf   string           `json:"duplicateOf,omitempty"`
	Size          int64            `json:"size,omitempty"`
	SourceSize    int64            `json:"sourceSize,omitempty"`
	ProcessedAt   *time.Time       `json:"processedAt,omitempty"`
}

// Geotagged reports whether the item carries a usable position.
func (m *MediaItem) Geotagged() bool {
	return m.Coordinates != nil && m.Coordinates.Valid()
}

// OK reports whether the item was processed without error.
func (m *MediaItem) OK() bool {
	return m.Processed && m.Error == ""
}

// LocationGroup is a cluster of geotagged items. Groups are rebuilt on
// every run, so their IDs are not stable.
type LocationGroup struct {
	ID        string          `json:"id"`
	Center    geo.Coordinates `json:"center"`
	PlaceName string          `json:"placeName"`
	PhotoIDs  []string        `json:"photoIds"`
	Count     int             `json:"count"`
	StartedAt *time.Time      `json:"startedAt,omitempty"`
	EndedAt   *time.Time      `json:"endedAt,omitempty"`
}

// Catalog is the in-memory form of the catalog file.
type Catalog struct {
	Photos      []MediaItem     `json:"photos"`
	Groups      []LocationGroup `json:"groups"`
	LastUpdated time.Time       `json:"lastUpdated"`
	Version     int             `json:"version"`

	byName map[string]int
	byHash map[string][]int
}

// Summary is a cheap overview of a catalog file, see Peek.
type Summary struct {
	Version     int
	LastUpdated time.Time
	Photos      int
	Groups      int
	Failed      int
}
