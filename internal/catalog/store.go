package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/atomic"
	"github.com/tidwall/gjson"

	"ccc-photos/internal/filesystem"
	"ccc-photos/internal/logging"
	"ccc-photos/internal/metrics"
)

// Load reads the catalog at path. A missing file yields an empty catalog;
// an unreadable or corrupt file is logged, copied aside and also yields an
// empty catalog. Load never fails.
func Load(path string) *Catalog {
	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logging.Info("No catalog at %s, starting fresh", path)
		} else {
			logging.Warn("Cannot read catalog %s, starting fresh: %v", path, err)
		}
		return New()
	}

	c := &Catalog{}
	if err := json.Unmarshal(data, c); err != nil {
		logging.Warn("Catalog %s is corrupt, starting fresh: %v", path, err)
		backup := fmt.Sprintf("%s.corrupt-%d", path, time.Now().Unix())
		if err := os.WriteFile(backup, data, 0o644); err != nil {
			logging.Warn("Failed to keep a copy of the corrupt catalog: %v", err)
		} else {
			logging.Info("Corrupt catalog copied to %s", backup)
		}
		return New()
	}

	c.normalize()
	logging.Debug("Loaded catalog %s: version %d, %d items, %d groups",
		path, c.Version, len(c.Photos), len(c.Groups))
	return c
}

// Save bumps the version, stamps lastUpdated and writes the catalog to path
// atomically. On failure the in-memory version is left unchanged.
func (c *Catalog) Save(path string) error {
	start := time.Now()
	defer func() {
		metrics.StageDuration.WithLabelValues("save").Observe(time.Since(start).Seconds())
	}()

	prevVersion, prevUpdated := c.Version, c.LastUpdated
	c.Version++
	c.LastUpdated = time.Now().UTC()

	err := c.write(path)
	if err != nil {
		c.Version, c.LastUpdated = prevVersion, prevUpdated
		return err
	}

	metrics.CatalogItems.Set(float64(len(c.Photos)))
	metrics.CatalogGroups.Set(float64(len(c.Groups)))
	metrics.CatalogVersion.Set(float64(c.Version))
	return nil
}

func (c *Catalog) write(path string) error {
	if c.Photos == nil {
		c.Photos = []MediaItem{}
	}
	if c.Groups == nil {
		c.Groups = []LocationGroup{}
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode catalog: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create catalog directory: %w", err)
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write catalog %s: %w", path, err)
	}
	return nil
}

// Peek summarizes the catalog file at path without decoding its items.
func Peek(path string) (Summary, error) {
	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())
	if err != nil {
		return Summary{}, err
	}
	if !gjson.ValidBytes(data) {
		return Summary{}, fmt.Errorf("catalog %s is not valid JSON", path)
	}

	res := gjson.GetManyBytes(data, "version", "lastUpdated", "photos.#", "groups.#")
	s := Summary{
		Version: int(res[0].Int()),
		Photos:  int(res[2].Int()),
		Groups:  int(res[3].Int()),
	}
	if ts := res[1].String(); ts != "" {
		if t, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			s.LastUpdated = t
		}
	}
	gjson.GetBytes(data, "photos").ForEach(func(_, item gjson.Result) bool {
		if !item.Get("processed").Bool() {
			s.Failed++
		}
		return true
	})
	return s, nil
}
