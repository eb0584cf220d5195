// Package storage manages the on-disk image cache: atomic writes via
// temporary files, an in-memory presence map seeded by scanning the cache
// directory, and thread-safe duplicate detection.
package storage
