package cache

import (
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Store layers a memory cache in front of an optional disk cache. Disk hits
// are promoted into memory.
type Store struct {
	memory *MemoryCache
	disk   *DiskCache
}

// Config holds configuration for a Store.
type Config struct {
	MemoryCapacity   int64         // Bytes
	DiskCapacity     int64         // Bytes; zero disables the disk tier
	DiskPath         string        // Directory for cache files
	CompressionLevel int           // Zstd compression level (1-22), 0 disables compression
	MaxAge           time.Duration // Disk samples older than this are dropped on open; zero keeps them
}

// NewStore creates a two-level store.
func NewStore(cfg Config) (*Store, error) {
	s := &Store{memory: NewMemoryCache(cfg.MemoryCapacity)}
	s.memory.SetOnEvict(func(key string, size int64) {
		log.Debug("Sample evicted from memory", "key", key[:min(len(key), 12)], "size", humanize.IBytes(uint64(size)))
	})

	if cfg.DiskCapacity > 0 && cfg.DiskPath != "" {
		disk, err := NewDiskCache(cfg.DiskPath, cfg.DiskCapacity, cfg.CompressionLevel)
		if err != nil {
			return nil, err
		}
		s.disk = disk

		if cfg.MaxAge > 0 {
			if n := disk.RemoveOlderThan(time.Now().Add(-cfg.MaxAge)); n > 0 {
				log.Debug("Expired disk samples removed", "count", n, "max_age", cfg.MaxAge)
			}
		}
	}

	log.Debug("Sample cache ready",
		"memory", humanize.IBytes(uint64(max(cfg.MemoryCapacity, 0))),
		"disk", humanize.IBytes(uint64(max(cfg.DiskCapacity, 0))),
		"path", cfg.DiskPath)

	return s, nil
}

// Get looks the key up in memory, then on disk.
func (s *Store) Get(key string) ([]byte, Level, bool) {
	if data, ok := s.memory.Get(key); ok {
		return data, LevelMemory, true
	}
	if s.disk == nil {
		return nil, LevelMemory, false
	}

	data, ok := s.disk.Get(key)
	if !ok {
		return nil, LevelDisk, false
	}
	if err := s.memory.Put(key, data); err != nil {
		log.Debug("Sample not promoted to memory", "size", humanize.IBytes(uint64(len(data))), "error", err)
	}
	return data, LevelDisk, true
}

// Put writes the value to every tier. Items that do not fit in a tier are
// skipped for that tier only.
func (s *Store) Put(key string, value []byte) error {
	memErr := s.memory.Put(key, value)
	if s.disk == nil {
		return memErr
	}
	if err := s.disk.Put(key, value); err != nil {
		return err
	}
	return nil
}

// Delete drops key from every tier.
func (s *Store) Delete(key string) error {
	err := s.memory.Delete(key)
	if s.disk != nil {
		err = errors.Join(err, s.disk.Delete(key))
	}
	return err
}

// Clear drops every sample from every tier.
func (s *Store) Clear() error {
	err := s.memory.Clear()
	if s.disk != nil {
		err = errors.Join(err, s.disk.Clear())
	}
	return err
}

// Stats returns statistics per tier.
func (s *Store) Stats() map[Level]Stats {
	stats := map[Level]Stats{LevelMemory: s.memory.Stats()}
	if s.disk != nil {
		stats[LevelDisk] = s.disk.Stats()
	}
	return stats
}

// Close flushes the disk index.
func (s *Store) Close() error {
	if s.disk == nil {
		return nil
	}
	return s.disk.Close()
}
