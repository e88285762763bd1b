package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ccc-photos/internal/cluster"
	"ccc-photos/internal/database"
	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/fingerprint"
	"ccc-photos/internal/geocode"
	"ccc-photos/internal/indexer"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/memory"
	"ccc-photos/internal/metrics"
	"ccc-photos/internal/startup"
	"ccc-photos/internal/storage"
	"ccc-photos/internal/transcode"
)

func main() {
	if err := run(); err != nil {
		startup.LogFatal("Run failed: %v", err)
	}
}

func run() error {
	metrics.InitializeMetrics()
	filesystem.SetObserver(metrics.NewFilesystemObserver())

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		return err
	}

	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"source": config.SourceDir,
		"data":   config.DataDir,
	}))

	memory.Configure(config.MemoryLimit, config.MemoryRatio)

	startup.LogCatalogState(config.CatalogPath)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleShutdown(cancel)

	monitor := memory.NewMonitor(memory.DefaultConfig())
	monitor.Start(ctx)

	// Image processing
	var vipsErr error
	if config.VipsEnabled {
		vipsErr = transcode.InitVips()
		if vipsErr == nil {
			defer transcode.ShutdownVips()
		}
	}
	startup.LogVipsInit(config.VipsEnabled, vipsErr)

	// Hash and place-name cache
	dbStart := time.Now()
	db, err := database.New(ctx, config.HashCachePath)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Warn("Failed to close cache database: %v", err)
		}
	}()
	startup.LogDatabaseInit(db.Path(), time.Since(dbStart))

	bucket, err := storage.Open(ctx, config.StorageURL, config.PublicBaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if err := bucket.Close(); err != nil {
			logging.Warn("Failed to close bucket: %v", err)
		}
	}()
	startup.LogStorageInit(config.StorageURL)

	var resolver cluster.Resolver
	if config.GeocodeEnabled {
		client := geocode.NewClient(config.GeocodeURL, config.GeocodeUserAgent,
			config.GeocodeTimeout, geocode.NewLimiter(config.GeocodeDelay))
		resolver = geocode.NewCached(client, db)
	}
	startup.LogGeocoderInit(config.GeocodeEnabled, config.GeocodeURL, config.GeocodeDelay)

	idx := indexer.New(indexer.Options{
		SourceDir:       config.SourceDir,
		CatalogPath:     config.CatalogPath,
		StagingDir:      config.StagingDir,
		Workers:         config.ProcessWorkers,
		UploadTimeout:   config.UploadTimeout,
		MetricsTextfile: config.MetricsTextfile,
	}, indexer.Deps{
		Hasher: fingerprint.NewCached(db),
		Transcoder: transcode.New(transcode.Options{
			MaxWidth: config.MaxWidth,
			Quality:  config.Quality,
		}),
		Uploader:   bucket,
		Clusterer:  cluster.New(config.ClusterRadiusMiles, resolver),
		HashPruner: db,
		Throttle:   monitor,
	})

	startup.LogSection("RUN")
	_, err = idx.Run(ctx)
	if err != nil && config.MetricsTextfile != "" {
		if werr := metrics.WriteTextfile(config.MetricsTextfile); werr != nil {
			logging.Warn("Failed to write metrics textfile: %v", werr)
		}
	}
	return err
}

// handleShutdown cancels the run on SIGINT or SIGTERM. In-flight uploads
// are abandoned and the catalog is left as it was.
func handleShutdown(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	startup.LogShutdownInitiated(sig.String())
	cancel()
}
