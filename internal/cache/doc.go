// Package cache provides a two-level cache for audio resources: an
// in-memory LRU (L1) and a persistent zstd compressed disk cache (L2) with
// TTL cleanup.
package cache
