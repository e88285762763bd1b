package catalog

import (
	"github.com/google/uuid"

	"ccc-photos/internal/geo"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/mediatypes"
)

// New returns an empty catalog.
func New() *Catalog {
	c := &Catalog{
		Photos: []MediaItem{},
		Groups: []LocationGroup{},
	}
	c.reindex()
	return c
}

func (c *Catalog) reindex() {
	c.byName = make(map[string]int, len(c.Photos))
	c.byHash = make(map[string][]int)
	for i := range c.Photos {
		c.byName[c.Photos[i].OriginalName] = i
		if h := c.Photos[i].ContentHash; h != "" {
			c.byHash[h] = append(c.byHash[h], i)
		}
	}
}

// ensureIndex builds the lookup maps on first use, so a zero Catalog or
// one assembled by hand behaves like one from New or Load.
func (c *Catalog) ensureIndex() {
	if c.byName == nil || c.byHash == nil {
		c.reindex()
	}
}

// normalize repairs invariants on data read from disk: every item has an
// ID and a kind, names are unique, and videos carry no coordinates.
func (c *Catalog) normalize() {
	if c.Photos == nil {
		c.Photos = []MediaItem{}
	}
	if c.Groups == nil {
		c.Groups = []LocationGroup{}
	}

	seen := make(map[string]bool, len(c.Photos))
	ids := make(map[string]bool, len(c.Photos))
	kept := c.Photos[:0]
	for _, item := range c.Photos {
		if item.OriginalName == "" {
			logging.Warn("Dropping catalog entry %q without a name", item.ID)
			continue
		}
		if seen[item.OriginalName] {
			logging.Warn("Dropping duplicate catalog entry for %s", item.OriginalName)
			continue
		}
		seen[item.OriginalName] = true

		if item.ID == "" || ids[item.ID] {
			item.ID = uuid.NewString()
		}
		ids[item.ID] = true

		if item.Kind == "" {
			item.Kind = mediatypes.KindOf(item.OriginalName)
		}
		if item.Kind == mediatypes.KindVideo {
			item.Coordinates = nil
		}
		kept = append(kept, item)
	}
	c.Photos = kept
	c.reindex()
}

// Len returns the number of items.
func (c *Catalog) Len() int {
	return len(c.Photos)
}

// Lookup returns the item stored under name.
func (c *Catalog) Lookup(name string) (MediaItem, bool) {
	c.ensureIndex()
	i, ok := c.byName[name]
	if !ok {
		return MediaItem{}, false
	}
	return c.Photos[i], true
}

// LookupHash returns a successfully processed item with the given content
// hash, preferring items that are not themselves duplicates.
func (c *Catalog) LookupHash(hash string) (MediaItem, bool) {
	c.ensureIndex()
	var fallback *MediaItem
	for _, i := range c.byHash[hash] {
		item := &c.Photos[i]
		if !item.OK() || item.LocationURL == "" {
			continue
		}
		if item.DuplicateOf == "" {
			return *item, true
		}
		if fallback == nil {
			fallback = item
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return MediaItem{}, false
}

// NeedsProcessing reports whether a source file with the given name and
// content hash must be (re)processed: it is new, its content changed, it was
// processed under an older schema, or its last attempt failed.
func (c *Catalog) NeedsProcessing(name, hash string) bool {
	item, ok := c.Lookup(name)
	if !ok {
		return true
	}
	return item.ContentHash != hash ||
		item.SchemaVersion < CurrentSchemaVersion ||
		!item.OK()
}

// Merge replaces items with the same OriginalName, keeping the existing
// ID, and appends the rest. Untouched entries are preserved.
func (c *Catalog) Merge(items []MediaItem) (added, updated int) {
	c.ensureIndex()
	for _, item := range items {
		if item.Kind == mediatypes.KindVideo {
			item.Coordinates = nil
		}

		if i, ok := c.byName[item.OriginalName]; ok {
			if old := c.Photos[i].ContentHash; old != item.ContentHash {
				if old != "" {
					c.unindexHash(old, i)
				}
				if item.ContentHash != "" {
					c.byHash[item.ContentHash] = append(c.byHash[item.ContentHash], i)
				}
			}
			if id := c.Photos[i].ID; id != "" {
				item.ID = id
			} else if item.ID == "" {
				item.ID = uuid.NewString()
			}
			c.Photos[i] = item
			updated++
			continue
		}

		if item.ID == "" {
			item.ID = uuid.NewString()
		}
		c.Photos = append(c.Photos, item)
		i := len(c.Photos) - 1
		c.byName[item.OriginalName] = i
		if item.ContentHash != "" {
			c.byHash[item.ContentHash] = append(c.byHash[item.ContentHash], i)
		}
		added++
	}
	return added, updated
}

func (c *Catalog) unindexHash(hash string, idx int) {
	list := c.byHash[hash]
	for j, v := range list {
		if v == idx {
			list = append(list[:j], list[j+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(c.byHash, hash)
		return
	}
	c.byHash[hash] = list
}

// PruneOrphans removes every item whose name is not in current and drops
// removed items from group membership. It returns the number removed.
func (c *Catalog) PruneOrphans(current []string) int {
	keep := make(map[string]bool, len(current))
	for _, name := range current {
		keep[name] = true
	}

	removed := make(map[string]bool)
	kept := c.Photos[:0]
	for _, item := range c.Photos {
		if keep[item.OriginalName] {
			kept = append(kept, item)
			continue
		}
		logging.Debug("Pruning orphaned catalog entry %s", item.OriginalName)
		removed[item.ID] = true
	}
	c.Photos = kept
	if len(removed) == 0 {
		return 0
	}

	// Surviving duplicates keep their artefact URL but lose the dangling link.
	for i := range c.Photos {
		if removed[c.Photos[i].DuplicateOf] {
			c.Photos[i].DuplicateOf = ""
		}
	}
	c.reindex()
	c.dropGroupMembers(removed)
	return len(removed)
}

func (c *Catalog) dropGroupMembers(removed map[string]bool) {
	byID := make(map[string]*MediaItem, len(c.Photos))
	for i := range c.Photos {
		byID[c.Photos[i].ID] = &c.Photos[i]
	}

	groups := c.Groups[:0]
	for _, g := range c.Groups {
		ids := make([]string, 0, len(g.PhotoIDs))
		var points []geo.Coordinates
		for _, id := range g.PhotoIDs {
			if removed[id] {
				continue
			}
			ids = append(ids, id)
			if item, ok := byID[id]; ok && item.Geotagged() {
				points = append(points, *item.Coordinates)
			}
		}
		if len(ids) == 0 {
			continue
		}
		if len(ids) != len(g.PhotoIDs) {
			if center, ok := geo.Centroid(points); ok {
				g.Center = center
			}
		}
		g.PhotoIDs = ids
		g.Count = len(ids)
		groups = append(groups, g)
	}
	c.Groups = groups
}

// SetGroups replaces the catalog's location groups.
func (c *Catalog) SetGroups(groups []LocationGroup) {
	if groups == nil {
		groups = []LocationGroup{}
	}
	c.Groups = groups
}
