package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ccc-photos/internal/catalog"
	"ccc-photos/internal/geo"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/mediatypes"
)

// ObjectKey is the storage key for an artefact: content-addressed, so
// identical files share one object.
func ObjectKey(hash, name string) string {
	return hash + mediatypes.Ext(name)
}

// process runs metadata extraction, transcoding and upload for one file.
// It never fails: errors end up on the returned item.
func (ix *Indexer) process(ctx context.Context, j job, now time.Time) catalog.MediaItem {
	f := j.file
	item := catalog.MediaItem{
		ID:            j.id,
		OriginalName:  f.RelPath,
		ContentHash:   j.hash,
		Kind:          f.Kind,
		SchemaVersion: catalog.CurrentSchemaVersion,
		SourceSize:    f.Size,
		ProcessedAt:   &now,
	}

	if f.Kind == mediatypes.KindImage {
		md, err := ix.deps.Extract(f.Path)
		if err != nil {
			return ix.failedItem(f, j.hash, j.id, now, "metadata", err)
		}
		item.Coordinates = md.Coordinates
		item.CapturedAt = md.CapturedAt
	}

	key := ObjectKey(j.hash, f.RelPath)
	staged := filepath.Join(ix.opts.StagingDir, key)

	if ix.deps.Throttle != nil {
		if err := ix.deps.Throttle.Wait(ctx); err != nil {
			return ix.failedItem(f, j.hash, j.id, now, "transcode", err)
		}
	}

	res, err := ix.deps.Transcoder.Transcode(ctx, f.Path, staged)
	if err != nil {
		_ = os.Remove(staged)
		return ix.failedItem(f, j.hash, j.id, now, "transcode", err)
	}
	defer func() {
		if err := os.Remove(staged); err != nil && !os.IsNotExist(err) {
			logging.Warn("failed to remove staged file %s: %v", staged, err)
		}
	}()

	uploadCtx, cancel := context.WithTimeout(ctx, ix.opts.UploadTimeout)
	defer cancel()

	url, err := ix.deps.Uploader.PutFile(uploadCtx, key, staged, mediatypes.GetMimeType(mediatypes.Ext(f.RelPath)))
	if err != nil {
		return ix.failedItem(f, j.hash, j.id, now, "upload", err)
	}

	item.LocationURL = url
	item.Size = res.Size
	item.Processed = true
	logging.WithField("file", f.RelPath).Debug("Processed -> %s (%d bytes)", url, res.Size)
	return item
}

func (ix *Indexer) failedItem(f SourceFile, hash, id string, now time.Time, stage string, err error) catalog.MediaItem {
	msg := fmt.Errorf("%s: %w", stage, err).Error()
	logging.WithField("file", f.RelPath).WithField("stage", stage).Warn("Failed to process: %v", err)
	return catalog.MediaItem{
		ID:            id,
		OriginalName:  f.RelPath,
		ContentHash:   hash,
		Kind:          f.Kind,
		Processed:     false,
		Error:         msg,
		SchemaVersion: catalog.CurrentSchemaVersion,
		SourceSize:    f.Size,
		ProcessedAt:   &now,
	}
}

// duplicateItem records f as a copy of orig, reusing its artefact.
func duplicateItem(f SourceFile, hash, id string, orig *catalog.MediaItem, now time.Time) catalog.MediaItem {
	item := catalog.MediaItem{
		ID:            id,
		OriginalName:  f.RelPath,
		ContentHash:   hash,
		Kind:          f.Kind,
		LocationURL:   orig.LocationURL,
		Processed:     true,
		SchemaVersion: catalog.CurrentSchemaVersion,
		DuplicateOf:   orig.ID,
		Size:          orig.Size,
		SourceSize:    f.Size,
		ProcessedAt:   &now,
	}
	if orig.Coordinates != nil && f.Kind != mediatypes.KindVideo {
		c := geo.Coordinates{Lat: orig.Coordinates.Lat, Lng: orig.Coordinates.Lng}
		item.Coordinates = &c
	}
	if orig.CapturedAt != nil {
		t := *orig.CapturedAt
		item.CapturedAt = &t
	}
	logging.Debug("%s duplicates %s", f.RelPath, orig.OriginalName)
	return item
}
