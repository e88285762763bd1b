package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"ccc-photos/internal/startup"
	"ccc-photos/internal/storage"
)

// Default timeout for bucket operations
const defaultTimeout = 30 * time.Second

func main() {
	if len(os.Args) < 2 {
		printUsage(os.Stdout)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Fprintln(os.Stderr, "\nInterrupted, shutting down...")
		cancel()
	}()

	cfg, err := startup.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	bucket, err := storage.Open(ctx, cfg.StorageURL, cfg.PublicBaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	ok := true
	switch os.Args[1] {
	case "verify":
		ok = verify(ctx, bucket, os.Stdout)
	case "list":
		prefix := ""
		if len(os.Args) > 2 {
			prefix = os.Args[2]
		}
		ok = list(ctx, bucket, prefix, os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", sanitizeCommand(os.Args[1]))
		printUsage(os.Stdout)
		ok = false
	}

	if err := bucket.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: closing bucket: %v\n", err)
	}
	if !ok {
		os.Exit(1)
	}
}

// sanitizeCommand replaces anything outside [a-zA-Z0-9_-] with '_' so
// arbitrary arguments are never echoed verbatim.
func sanitizeCommand(cmd string) string {
	var b strings.Builder
	b.Grow(len(cmd))
	for _, r := range cmd {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return b.String()
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "ccc-photos Storage Check")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Usage: storagecheck <command> [args]")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  verify         - Write, check and delete a test object")
	fmt.Fprintln(w, "  list [prefix]  - List object keys")
	fmt.Fprintln(w, "")
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  STORAGE_URL, PUBLIC_BASE_URL, DATA_DIR, CONFIG_FILE")
}

func verify(ctx context.Context, bucket *storage.Bucket, out io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	key := ".storagecheck-" + uuid.NewString()
	url, err := bucket.Put(ctx, key, []byte("ccc-photos storage check\n"), "text/plain")
	if err != nil {
		fmt.Fprintf(out, "Error: write failed: %v\n", err)
		return false
	}
	fmt.Fprintf(out, "Wrote %s\n", key)
	fmt.Fprintf(out, "Public URL: %s\n", url)

	ok := true
	exists, err := bucket.Exists(ctx, key)
	switch {
	case err != nil:
		fmt.Fprintf(out, "Error: existence check failed: %v\n", err)
		ok = false
	case !exists:
		fmt.Fprintln(out, "Error: test object not visible after write")
		ok = false
	}

	if err := bucket.Delete(ctx, key); err != nil {
		fmt.Fprintf(out, "Error: delete failed: %v\n", err)
		return false
	}
	if ok {
		fmt.Fprintln(out, "Storage OK")
	}
	return ok
}

func list(ctx context.Context, bucket *storage.Bucket, prefix string, out io.Writer) bool {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	keys, err := bucket.List(ctx, prefix)
	if err != nil {
		fmt.Fprintf(out, "Error: %v\n", err)
		return false
	}
	for _, k := range keys {
		fmt.Fprintln(out, k)
	}
	fmt.Fprintf(out, "%d objects\n", len(keys))
	return true
}
