package cache

import (
	"bytes"
	"testing"
	"time"
)

func pcmFixture(n int) []byte {
	// A repeating ramp compresses well, like real silence-heavy PCM
	data := make([]byte, n)
	for i := range data {
		data[i] = byte(i % 64)
	}
	return data
}

func TestDiskCache_PutGet(t *testing.T) {
	tests := []struct {
		name  string
		level int
	}{
		{"compressed", 3},
		{"uncompressed", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc, err := NewDiskCache(t.TempDir(), 1<<20, tt.level)
			if err != nil {
				t.Fatalf("NewDiskCache failed: %v", err)
			}
			defer dc.Close()

			key := Key("sample", tt.name)
			value := pcmFixture(8192)

			if err := dc.Put(key, value); err != nil {
				t.Fatalf("Put failed: %v", err)
			}

			got, ok := dc.Get(key)
			if !ok {
				t.Fatal("Get missed a stored key")
			}
			if !bytes.Equal(got, value) {
				t.Error("round-tripped data differs")
			}

			if tt.level > 0 && dc.Size() >= int64(len(value)) {
				t.Errorf("compressed size %d not smaller than %d", dc.Size(), len(value))
			}
		})
	}
}

func TestDiskCache_Persistence(t *testing.T) {
	dir := t.TempDir()
	key := Key("persist")
	value := pcmFixture(4096)

	dc, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	if err := dc.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := dc.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := NewDiskCache(dir, 1<<20, 3)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.Get(key)
	if !ok {
		t.Fatal("entry lost across reopen")
	}
	if !bytes.Equal(got, value) {
		t.Error("persisted data differs")
	}
}

func TestDiskCache_EvictionAndDelete(t *testing.T) {
	dc, err := NewDiskCache(t.TempDir(), 3000, 0)
	if err != nil {
		t.Fatalf("NewDiskCache failed: %v", err)
	}
	defer dc.Close()

	_ = dc.Put("first-key", make([]byte, 1000))
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("second-key", make([]byte, 1000))
	time.Sleep(5 * time.Millisecond)
	_ = dc.Put("third-key", make([]byte, 1500))

	if dc.contains("first-key") {
		t.Error("oldest entry should have been evicted")
	}
	if !dc.contains("third-key") {
		t.Error("newest entry missing")
	}

	if err := dc.Put("huge-key", make([]byte, 4000)); err != ErrItemTooLarge {
		t.Errorf("expected ErrItemTooLarge, got %v", err)
	}

	_ = dc.Delete("third-key")
	if dc.contains("third-key") {
		t.Error("entry still present after Delete")
	}

	if removed := dc.RemoveOlderThan(time.Now().Add(time.Minute)); removed != 1 {
		t.Errorf("RemoveOlderThan removed %d, want 1", removed)
	}
	if dc.Size() != 0 {
		t.Errorf("size = %d after removing everything", dc.Size())
	}
}

func TestStore_Promotion(t *testing.T) {
	dir := t.TempDir()
	key := Key("promote")
	value := pcmFixture(2048)

	first, err := NewStore(Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: dir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := first.Put(key, value); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if _, level, ok := first.Get(key); !ok || level != LevelMemory {
		t.Errorf("expected memory hit, got ok=%v level=%v", ok, level)
	}
	_ = first.Close()

	second, err := NewStore(Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: dir, CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer second.Close()

	if _, level, ok := second.Get(key); !ok || level != LevelDisk {
		t.Fatalf("expected disk hit, got ok=%v level=%v", ok, level)
	}
	if _, level, ok := second.Get(key); !ok || level != LevelMemory {
		t.Errorf("expected promoted memory hit, got ok=%v level=%v", ok, level)
	}
}

func TestStore_MemoryOnly(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 16})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := s.Put("k", make([]byte, 32)); err != ErrItemTooLarge {
		t.Errorf("expected ErrItemTooLarge, got %v", err)
	}
	if _, _, ok := s.Get("k"); ok {
		t.Error("oversized item should not be cached")
	}
	if _, ok := s.Stats()[LevelDisk]; ok {
		t.Error("memory-only store reported disk stats")
	}
}

func TestStore_MaxAgeSweep(t *testing.T) {
	dir := t.TempDir()
	cfg := Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: dir}

	first, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := first.Put(Key("old"), pcmFixture(512)); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	_ = first.Close()
	time.Sleep(10 * time.Millisecond)

	kept, err := NewStore(Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: dir, MaxAge: time.Hour})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if n := kept.Stats()[LevelDisk].ItemCount; n != 1 {
		t.Fatalf("disk items with generous max age = %d, want 1", n)
	}
	_ = kept.Close()

	swept, err := NewStore(Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: dir, MaxAge: time.Millisecond})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer swept.Close()

	if n := swept.Stats()[LevelDisk].ItemCount; n != 0 {
		t.Errorf("disk items after sweep = %d, want 0", n)
	}
	if _, _, ok := swept.Get(Key("old")); ok {
		t.Error("expired sample still served")
	}
}

func TestStore_DeleteAndClear(t *testing.T) {
	s, err := NewStore(Config{MemoryCapacity: 1 << 20, DiskCapacity: 1 << 20, DiskPath: t.TempDir(), CompressionLevel: 3})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	defer s.Close()

	for _, k := range []string{"a", "b", "c"} {
		if err := s.Put(Key(k), pcmFixture(2048)); err != nil {
			t.Fatalf("Put(%s) failed: %v", k, err)
		}
	}

	if err := s.Delete(Key("a")); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if s.memory.contains(Key("a")) || s.disk.contains(Key("a")) {
		t.Error("deleted key still present in a tier")
	}
	if !s.disk.contains(Key("b")) {
		t.Error("Delete removed an unrelated key")
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	for level, st := range s.Stats() {
		if st.ItemCount != 0 || st.Size != 0 {
			t.Errorf("%s after Clear: %d items, %d bytes", level, st.ItemCount, st.Size)
		}
	}
}
