// Package cache provides a two-level cache for decoded audio samples.
// It pairs an in-memory LRU cache (L1) with a persistent, zstd-compressed
// disk cache (L2) so repeated loads of the same URL skip decoding.
package cache
