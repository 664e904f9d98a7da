// Package cache defines the [Store] interface used to memoize research
// results between runs, plus JSON helpers shared by every backend.
//
// Backends live in sub-packages:
//   - filecache stores one JSON record per key under a directory
//   - sqlitecache stores entries in a single SQLite table
//   - memcache keeps entries in process memory
//
// Entries expire lazily: a stale entry is reported as a miss and removed on
// the next lookup. Use [Disabled] when caching is turned off in config.
package cache
