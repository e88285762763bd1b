// Package catalog holds the persisted media catalog: one MediaItem per
// source file, the derived location groups, a version counter and a
// last-updated timestamp.
//
// A Catalog is owned by a single pipeline run. It is loaded once, mutated
// only through Merge, PruneOrphans and SetGroups, and saved once at the
// end. Saves are atomic: readers see either the previous file or the new
// one, never a partial write.
package catalog
