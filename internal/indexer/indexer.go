package indexer

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"ccc-photos/internal/catalog"
	"ccc-photos/internal/fingerprint"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metadata"
	"ccc-photos/internal/metrics"
	"ccc-photos/internal/transcode"
	"ccc-photos/internal/workers"
)

// Hasher returns the content digest of a file.
type Hasher interface {
	File(ctx context.Context, path string, info os.FileInfo) (string, error)
}

// Transcoder writes the artefact for a source file.
type Transcoder interface {
	Transcode(ctx context.Context, src, dst string) (*transcode.Result, error)
}

// Uploader stores an artefact and returns its URL.
type Uploader interface {
	PutFile(ctx context.Context, key, path, contentType string) (string, error)
}

// Clusterer builds location groups from catalog items.
type Clusterer interface {
	Cluster(ctx context.Context, items []catalog.MediaItem) []catalog.LocationGroup
}

// HashPruner drops hash cache entries for files that no longer exist.
type HashPruner interface {
	PruneFileHashes(ctx context.Context, keep []string) (int64, error)
}

// Throttle holds back memory-heavy work. Wait returns early with ctx's
// error if ctx ends.
type Throttle interface {
	Wait(ctx context.Context) error
}

// ExtractFunc reads image metadata.
type ExtractFunc func(path string) (*metadata.Result, error)

// Options configures a run.
type Options struct {
	SourceDir       string
	CatalogPath     string
	StagingDir      string
	Workers         int
	UploadTimeout   time.Duration
	MetricsTextfile string
	Scan            ScanConfig
}

// Deps are the collaborators of a run. Hasher, Extract and Scan settings
// have defaults; Transcoder, Uploader and Clusterer are required.
type Deps struct {
	Hasher     Hasher
	Extract    ExtractFunc
	Transcoder Transcoder
	Uploader   Uploader
	Clusterer  Clusterer
	HashPruner HashPruner
	Throttle   Throttle
}

// Indexer runs the ingestion pipeline.
type Indexer struct {
	opts Options
	deps Deps
}

// Summary reports what a run did.
type Summary struct {
	Scanned    int
	Processed  int
	Duplicates int
	Failed     int
	Unchanged  int
	Pruned     int
	Groups     int
	Version    int
	Duration   time.Duration
}

// New creates an Indexer.
func New(opts Options, deps Deps) *Indexer {
	if opts.UploadTimeout <= 0 {
		opts.UploadTimeout = 60 * time.Second
	}
	if opts.Scan == (ScanConfig{}) {
		opts.Scan = DefaultScanConfig()
	}
	if deps.Hasher == nil {
		deps.Hasher = fingerprint.NewCached(nil)
	}
	if deps.Extract == nil {
		deps.Extract = metadata.Extract
	}
	return &Indexer{opts: opts, deps: deps}
}

// job is one file that needs the full processing path.
type job struct {
	index int
	file  SourceFile
	hash  string
	id    string
}

// batchDuplicate is a file whose content matches an earlier job in the
// same run.
type batchDuplicate struct {
	job
	original int
}

// Run performs one ingestion pass: load, scan, process, merge, prune,
// cluster, save. Per-item failures are recorded on the items. A scan or
// save failure, or cancellation of ctx, aborts the run and leaves the
// catalog file untouched.
func (ix *Indexer) Run(ctx context.Context) (*Summary, error) {
	if ix.deps.Transcoder == nil || ix.deps.Uploader == nil || ix.deps.Clusterer == nil {
		return nil, fmt.Errorf("indexer: transcoder, uploader and clusterer are required")
	}

	startTime := time.Now()
	status := "error"
	recorded := false
	record := func() {
		if recorded {
			return
		}
		recorded = true
		metrics.RunsTotal.WithLabelValues(status).Inc()
		metrics.RunDuration.Set(time.Since(startTime).Seconds())
	}
	defer record()

	summary := &Summary{}

	cat := catalog.Load(ix.opts.CatalogPath)
	logging.Info("Catalog loaded: version %d, %d items", cat.Version, cat.Len())

	files, err := Scan(ctx, ix.opts.SourceDir, ix.opts.Scan)
	if err != nil {
		if isCancelled(err) {
			status = "cancelled"
			return nil, fmt.Errorf("run cancelled before save: %w", err)
		}
		return nil, fmt.Errorf("scanning source: %w", err)
	}
	summary.Scanned = len(files)
	metrics.FilesScanned.Set(float64(len(files)))

	if err := os.MkdirAll(ix.opts.StagingDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	n := workers.ForMixed(ix.opts.Workers, 0)

	hashes, hashErrs := ix.fingerprintAll(ctx, n, files)
	if err := ctx.Err(); err != nil {
		status = "cancelled"
		return nil, fmt.Errorf("run cancelled before save: %w", err)
	}

	// Plan. out holds the final item for every file that changes, in scan order.
	out := make([]*catalog.MediaItem, len(files))
	var jobs []job
	var dups []batchDuplicate
	firstJob := make(map[string]int)
	now := time.Now().UTC()

	var pending []int
	reprocess := make(map[string]bool)
	for i, f := range files {
		if hashErrs[i] != nil {
			item := ix.failedItem(f, "", ix.idFor(cat, f.RelPath), now, "fingerprint", hashErrs[i])
			out[i] = &item
			reprocess[f.RelPath] = true
			continue
		}
		if !cat.NeedsProcessing(f.RelPath, hashes[i]) {
			summary.Unchanged++
			metrics.ItemsTotal.WithLabelValues(string(f.Kind), "unchanged").Inc()
			continue
		}
		reprocess[f.RelPath] = true
		pending = append(pending, i)
	}

	// Files that are the catalog's own original for their hash are planned
	// first, so copies of a stale original follow its fresh job.
	sort.SliceStable(pending, func(a, b int) bool {
		return isOwnOriginal(cat, files[pending[a]].RelPath, hashes[pending[a]]) &&
			!isOwnOriginal(cat, files[pending[b]].RelPath, hashes[pending[b]])
	})

	for _, i := range pending {
		f := files[i]
		hash := hashes[i]
		id := ix.idFor(cat, f.RelPath)

		if orig, ok := cat.LookupHash(hash); ok && orig.OriginalName != f.RelPath &&
			orig.SchemaVersion >= catalog.CurrentSchemaVersion && !reprocess[orig.OriginalName] {
			item := duplicateItem(f, hash, id, &orig, now)
			out[i] = &item
			continue
		}

		j := job{index: i, file: f, hash: hash, id: id}
		if ji, ok := firstJob[hash]; ok {
			dups = append(dups, batchDuplicate{job: j, original: ji})
			continue
		}
		firstJob[hash] = len(jobs)
		jobs = append(jobs, j)
	}

	logging.Info("Processing %d files (%d unchanged, %d duplicates pending) with %d workers",
		len(jobs), summary.Unchanged, len(dups), n)

	processed := make([]catalog.MediaItem, len(jobs))
	err = workers.ForEach(ctx, n, jobs, func(ctx context.Context, i int, j job) {
		processed[i] = ix.process(ctx, j, now)
	})
	if err != nil {
		status = "cancelled"
		return nil, fmt.Errorf("run cancelled before save: %w", err)
	}

	for ji := range processed {
		out[jobs[ji].index] = &processed[ji]
	}

	for _, d := range dups {
		orig := processed[d.original]
		var item catalog.MediaItem
		if orig.OK() {
			item = duplicateItem(d.file, d.hash, d.id, &orig, now)
		} else {
			// The original failed; give the copy its own attempt.
			item = ix.process(ctx, d.job, now)
		}
		out[d.index] = &item
	}
	if err := ctx.Err(); err != nil {
		status = "cancelled"
		return nil, fmt.Errorf("run cancelled before save: %w", err)
	}

	changes := make([]catalog.MediaItem, 0, len(jobs)+len(dups))
	for _, item := range out {
		if item == nil {
			continue
		}
		switch {
		case item.DuplicateOf != "":
			summary.Duplicates++
			metrics.ItemsTotal.WithLabelValues(string(item.Kind), "duplicate").Inc()
		case item.OK():
			summary.Processed++
			metrics.ItemsTotal.WithLabelValues(string(item.Kind), "processed").Inc()
		default:
			summary.Failed++
			metrics.ItemsTotal.WithLabelValues(string(item.Kind), "failed").Inc()
		}
		changes = append(changes, *item)
	}

	added, updated := cat.Merge(changes)
	logging.Debug("Merged %d new and %d updated items", added, updated)

	summary.Pruned = cat.PruneOrphans(Names(files))
	metrics.OrphansPrunedTotal.Add(float64(summary.Pruned))
	if summary.Pruned > 0 {
		logging.Info("Pruned %d catalog entries whose source files are gone", summary.Pruned)
	}
	ix.pruneHashCache(ctx, files)

	groups := ix.deps.Clusterer.Cluster(ctx, cat.Photos)
	if err := ctx.Err(); err != nil {
		status = "cancelled"
		return nil, fmt.Errorf("run cancelled before save: %w", err)
	}
	cat.SetGroups(groups)
	summary.Groups = len(groups)

	if err := cat.Save(ix.opts.CatalogPath); err != nil {
		return nil, fmt.Errorf("saving catalog: %w", err)
	}
	summary.Version = cat.Version
	summary.Duration = time.Since(startTime)

	status = "success"
	record()
	metrics.LastRunTimestamp.Set(float64(time.Now().Unix()))

	logging.Info("Run complete in %v: %d scanned, %d processed, %d duplicates, %d failed, %d unchanged, %d pruned, %d groups (catalog version %d)",
		summary.Duration, summary.Scanned, summary.Processed, summary.Duplicates, summary.Failed,
		summary.Unchanged, summary.Pruned, summary.Groups, summary.Version)

	if ix.opts.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(ix.opts.MetricsTextfile); err != nil {
			logging.Warn("Failed to write metrics textfile %s: %v", ix.opts.MetricsTextfile, err)
		}
	}

	return summary, nil
}

func (ix *Indexer) fingerprintAll(ctx context.Context, n int, files []SourceFile) ([]string, []error) {
	hashes := make([]string, len(files))
	errs := make([]error, len(files))
	_ = workers.ForEach(ctx, n, files, func(ctx context.Context, i int, f SourceFile) {
		hashes[i], errs[i] = ix.deps.Hasher.File(ctx, f.Path, f.Info)
	})
	return hashes, errs
}

func (ix *Indexer) pruneHashCache(ctx context.Context, files []SourceFile) {
	if ix.deps.HashPruner == nil {
		return
	}
	keep := make([]string, len(files))
	for i, f := range files {
		keep[i] = f.Path
	}
	removed, err := ix.deps.HashPruner.PruneFileHashes(ctx, keep)
	if err != nil {
		logging.Warn("Failed to prune hash cache: %v", err)
		return
	}
	if removed > 0 {
		logging.Debug("Pruned %d stale hash cache entries", removed)
	}
}

// idFor returns the existing ID for name, or a fresh one.
// isOwnOriginal reports whether the catalog item answering LookupHash for
// hash is the file called name.
func isOwnOriginal(cat *catalog.Catalog, name, hash string) bool {
	orig, ok := cat.LookupHash(hash)
	return ok && orig.OriginalName == name
}

func (ix *Indexer) idFor(cat *catalog.Catalog, name string) string {
	if item, ok := cat.Lookup(name); ok && item.ID != "" {
		return item.ID
	}
	return uuid.NewString()
}
