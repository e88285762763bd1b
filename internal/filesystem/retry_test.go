package filesystem

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

type countingObserver struct {
	attempts, successes, failures, stale int
}

func (c *countingObserver) ObserveRetryAttempt(string, string) { c.attempts++ }
func (c *countingObserver) ObserveRetrySuccess(string, string) { c.successes++ }
func (c *countingObserver) ObserveRetryFailure(string, string) { c.failures++ }
func (c *countingObserver) ObserveStaleError(string, string)   { c.stale++ }

func fastConfig() RetryConfig {
	return RetryConfig{MaxRetries: 3, InitialBackoff: time.Microsecond, MaxBackoff: 4 * time.Microsecond}
}

func TestIsStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"plain error", errors.New("boom"), false},
		{"ESTALE", syscall.ESTALE, true},
		{"wrapped ESTALE", fmt.Errorf("read: %w", syscall.ESTALE), true},
		{"path error ESTALE", &os.PathError{Op: "open", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT", syscall.ENOENT, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsStaleError(tt.err); got != tt.want {
				t.Errorf("IsStaleError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestRetryRecoversFromStaleHandle(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	calls := 0
	err := retry("open", "/tmp/x", fastConfig(), func() error {
		calls++
		if calls < 3 {
			return syscall.ESTALE
		}
		return nil
	})

	if err != nil {
		t.Fatalf("retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
	if obs.stale != 2 || obs.attempts != 2 || obs.successes != 1 || obs.failures != 0 {
		t.Errorf("observer = %+v", *obs)
	}
}

func TestRetryGivesUp(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	calls := 0
	err := retry("stat", "/tmp/x", fastConfig(), func() error {
		calls++
		return syscall.ESTALE
	})

	if !errors.Is(err, syscall.ESTALE) {
		t.Fatalf("retry() error = %v, want ESTALE", err)
	}
	if calls != 4 {
		t.Errorf("calls = %d, want 4 (1 + MaxRetries)", calls)
	}
	if obs.failures != 1 {
		t.Errorf("failures = %d, want 1", obs.failures)
	}
}

func TestRetryDoesNotRetryOtherErrors(t *testing.T) {
	calls := 0
	err := retry("stat", "/tmp/x", fastConfig(), func() error {
		calls++
		return os.ErrNotExist
	})
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("retry() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWrappersOnRealFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, fastConfig())
	if err != nil || info.Size() != 5 {
		t.Fatalf("StatWithRetry() = %v, %v", info, err)
	}

	f, err := OpenWithRetry(path, fastConfig())
	if err != nil {
		t.Fatalf("OpenWithRetry() error = %v", err)
	}
	f.Close()

	data, err := ReadFileWithRetry(path, fastConfig())
	if err != nil || string(data) != "hello" {
		t.Fatalf("ReadFileWithRetry() = %q, %v", data, err)
	}

	if _, err := StatWithRetry(filepath.Join(dir, "missing"), fastConfig()); !os.IsNotExist(err) {
		t.Errorf("StatWithRetry(missing) error = %v, want not-exist", err)
	}
}

func TestVolumeResolver(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"source": "/photos",
		"data":   "/photos/.ccc",
	})

	tests := map[string]string{
		"/photos/trip/a.jpg":     "source",
		"/photos":                "source",
		"/photos/.ccc/hashes.db": "data",
		"/photosX/a.jpg":         "unknown",
		"/etc/passwd":            "unknown",
	}
	for path, want := range tests {
		if got := vr.Resolve(path); got != want {
			t.Errorf("Resolve(%q) = %q, want %q", path, got, want)
		}
	}

	var nilResolver *VolumeResolver
	if got := nilResolver.Resolve("/photos"); got != "unknown" {
		t.Errorf("nil resolver Resolve() = %q", got)
	}
}
