// Command storagecheck verifies that the configured artefact bucket is
// reachable and writable, using the same configuration as the indexer.
//
// Usage:
//
//	storagecheck <command> [args]
//
// Commands:
//
//	verify  Write a small object, confirm it exists and delete it again.
//	        Prints the public URL the object would have had.
//
//	list    List object keys, optionally restricted to a prefix.
//
// Environment:
//
//	STORAGE_URL     - Bucket URL (default: file://$DATA_DIR/media)
//	PUBLIC_BASE_URL - Base URL used to build public links
//	CONFIG_FILE     - Optional YAML configuration file
package main
