package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"
)

// Common errors for cache operations
var (
	// ErrItemTooLarge is returned when an item exceeds the cache capacity
	ErrItemTooLarge = errors.New("item too large for cache")

	// ErrCacheCorrupted is returned when cache data is corrupted
	ErrCacheCorrupted = errors.New("cache data corrupted")
)

// Level represents the cache tier
type Level int

const (
	// LevelMemory represents the memory cache (fastest)
	LevelMemory Level = iota

	// LevelDisk represents the disk cache (persistent)
	LevelDisk
)

// String returns the string representation of the cache level
func (l Level) String() string {
	switch l {
	case LevelMemory:
		return "L1-Memory"
	case LevelDisk:
		return "L2-Disk"
	default:
		return "Unknown"
	}
}

// Stats holds cache performance metrics
type Stats struct {
	Capacity  int64 // Maximum capacity in bytes
	Size      int64 // Current size in bytes
	ItemCount int64 // Number of items in cache

	Hits      int64
	Misses    int64
	Evictions int64
	HitRate   float64 // hits / (hits + misses)

	LastAccess time.Time
	LastEvict  time.Time
}

// Cache defines the interface for cache implementations
type Cache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
	Delete(key string) error
	Clear() error

	Size() int64
	Contains(key string) bool

	Stats() Stats
}

// Key builds a stable cache key from its components.
func Key(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}

func hitRate(hits, misses int64) float64 {
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses)
}
