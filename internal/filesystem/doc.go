/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors.

Photo libraries frequently live on a NAS. When a share is remounted or a file is
replaced server-side mid-run, reads fail with ESTALE; these wrappers retry such
failures with exponential backoff and pass every other error straight through.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

	f, err := filesystem.OpenWithRetry(path, filesystem.DefaultRetryConfig())
	defer f.Close()

	data, err := filesystem.ReadFileWithRetry(path, filesystem.DefaultRetryConfig())

Retries are counted per volume ("source", "data") through an Observer installed at
startup with SetObserver; without one, recording is a no-op.
*/
package filesystem
