package cache

import (
	"encoding/gob"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	indexName = "index.gob"

	rawExt  = ".pcm"
	zstdExt = ".pcm.zst"

	// Samples below this size are stored raw; zstd framing would outweigh
	// the savings.
	minCompressSize = 1024
)

// DiskCache is the L2 tier. Each sample lives in its own file, sharded by
// the first two key characters, and is zstd-compressed when that makes it
// smaller. An index of every entry is persisted on Close.
type DiskCache struct {
	mu sync.RWMutex

	dir      string
	capacity int64
	used     int64
	entries  map[string]*diskEntry

	enc *zstd.Encoder
	dec *zstd.Decoder

	stats Stats
}

// diskEntry is gob-encoded into the index.
type diskEntry struct {
	Path     string
	Bytes    int64 // on disk
	Raw      int64 // decoded PCM length
	Stored   time.Time
	Accessed time.Time
}

func (e *diskEntry) compressed() bool {
	return strings.HasSuffix(e.Path, zstdExt)
}

// NewDiskCache opens or creates a disk tier in dir holding at most capacity
// bytes on disk. compressionLevel follows zstd levels; zero stores samples
// raw.
func NewDiskCache(dir string, capacity int64, compressionLevel int) (*DiskCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dc := &DiskCache{
		dir:      dir,
		capacity: capacity,
		entries:  make(map[string]*diskEntry),
		stats:    Stats{Capacity: capacity},
	}

	var err error
	if compressionLevel > 0 {
		dc.enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(compressionLevel)))
		if err != nil {
			return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
		}
	}
	// Always able to read compressed samples written with another level.
	dc.dec, err = zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}

	if err := dc.readIndex(); err != nil {
		dc.entries = make(map[string]*diskEntry)
	}
	for _, e := range dc.entries {
		dc.used += e.Bytes
	}

	return dc, nil
}

// Get reads the sample stored under key. Unreadable or corrupted files are
// dropped and reported as a miss.
func (dc *DiskCache) Get(key string) ([]byte, bool) {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	e, ok := dc.entries[key]
	if !ok {
		dc.stats.Misses++
		return nil, false
	}

	data, err := dc.read(e)
	if err != nil {
		dc.removeLocked(key)
		dc.stats.Misses++
		return nil, false
	}

	e.Accessed = time.Now()
	dc.stats.Hits++
	dc.stats.LastAccess = e.Accessed
	return data, true
}

func (dc *DiskCache) read(e *diskEntry) ([]byte, error) {
	data, err := os.ReadFile(e.Path)
	if err != nil {
		return nil, err
	}
	if e.compressed() {
		if data, err = dc.dec.DecodeAll(data, make([]byte, 0, e.Raw)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCacheCorrupted, err)
		}
	}
	if int64(len(data)) != e.Raw {
		return nil, ErrCacheCorrupted
	}
	return data, nil
}

// Put writes value under key, evicting the least recently accessed samples
// until it fits.
func (dc *DiskCache) Put(key string, value []byte) error {
	payload, ext := value, rawExt
	if dc.enc != nil && len(value) >= minCompressSize {
		if z := dc.enc.EncodeAll(value, nil); len(z) < len(value) {
			payload, ext = z, zstdExt
		}
	}

	size := int64(len(payload))
	if size > dc.capacity {
		return ErrItemTooLarge
	}

	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.removeLocked(key)
	for dc.used+size > dc.capacity {
		if !dc.evictLocked() {
			break
		}
	}

	path := dc.pathFor(key, ext)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create cache shard: %w", err)
	}
	if err := writeAtomic(path, payload); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}

	now := time.Now()
	dc.entries[key] = &diskEntry{Path: path, Bytes: size, Raw: int64(len(value)), Stored: now, Accessed: now}
	dc.used += size
	return nil
}

// Delete drops key and its file.
func (dc *DiskCache) Delete(key string) error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	dc.removeLocked(key)
	return nil
}

// Clear drops every sample and rewrites an empty index.
func (dc *DiskCache) Clear() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	for key := range dc.entries {
		dc.removeLocked(key)
	}
	return dc.writeIndex()
}

func (dc *DiskCache) Size() int64 {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	return dc.used
}

func (dc *DiskCache) Stats() Stats {
	dc.mu.RLock()
	defer dc.mu.RUnlock()

	s := dc.stats
	s.Size = dc.used
	s.ItemCount = int64(len(dc.entries))
	s.HitRate = hitRate(s.Hits, s.Misses)
	return s
}

// RemoveOlderThan drops samples stored before cutoff and returns how many
// were removed.
func (dc *DiskCache) RemoveOlderThan(cutoff time.Time) int {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	n := 0
	for key, e := range dc.entries {
		if e.Stored.Before(cutoff) {
			dc.removeLocked(key)
			n++
		}
	}
	return n
}

// Close releases the codecs and persists the index.
func (dc *DiskCache) Close() error {
	dc.mu.Lock()
	defer dc.mu.Unlock()

	if dc.enc != nil {
		_ = dc.enc.Close()
	}
	dc.dec.Close()
	return dc.writeIndex()
}

func (dc *DiskCache) pathFor(key, ext string) string {
	shard := "00"
	if len(key) >= 2 {
		shard = key[:2]
	}
	return filepath.Join(dc.dir, shard, key+ext)
}

func (dc *DiskCache) removeLocked(key string) {
	e, ok := dc.entries[key]
	if !ok {
		return
	}
	_ = os.Remove(e.Path)
	delete(dc.entries, key)
	dc.used -= e.Bytes
}

// evictLocked drops the least recently accessed sample. It reports false
// when nothing is left to evict.
func (dc *DiskCache) evictLocked() bool {
	var (
		victim string
		oldest *diskEntry
	)
	for key, e := range dc.entries {
		if oldest == nil || e.Accessed.Before(oldest.Accessed) {
			victim, oldest = key, e
		}
	}
	if oldest == nil {
		return false
	}

	dc.removeLocked(victim)
	dc.stats.Evictions++
	dc.stats.LastEvict = time.Now()
	return true
}

func (dc *DiskCache) readIndex() error {
	f, err := os.Open(filepath.Join(dc.dir, indexName))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	defer f.Close()

	return gob.NewDecoder(f).Decode(&dc.entries)
}

func (dc *DiskCache) writeIndex() error {
	path := filepath.Join(dc.dir, indexName)
	tmp, err := os.CreateTemp(dc.dir, indexName+".*")
	if err != nil {
		return err
	}

	err = gob.NewEncoder(tmp).Encode(dc.entries)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// writeAtomic writes data next to path and renames it into place.
func writeAtomic(path string, data []byte) error {
	tmp := path + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, path)
}
