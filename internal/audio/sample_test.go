package audio

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/audioplayers/audioplayers/internal/cache"
	"github.com/audioplayers/audioplayers/internal/decode"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// frames builds n stereo 16-bit frames whose first byte is the frame index.
func frames(n int) []byte {
	data := make([]byte, n*4)
	for i := 0; i < n; i++ {
		data[i*4] = byte(i)
	}
	return data
}

func TestSampleReaderRead(t *testing.T) {
	tests := []struct {
		name  string
		rate  float64
		loop  bool
		buf   int
		first []byte
		n     int
	}{
		{name: "normal rate", rate: 1, buf: 16, first: []byte{0, 1, 2, 3}, n: 16},
		{name: "double rate", rate: 2, buf: 16, first: []byte{0, 2}, n: 8},
		{name: "looping", rate: 1, loop: true, buf: 24, first: []byte{0, 1, 2, 3, 0, 1}, n: 24},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newSampleReader(frames(4), 4, tt.rate, tt.loop)

			p := make([]byte, tt.buf)
			n, err := r.Read(p)
			if err != nil {
				t.Fatalf("Read() error = %v", err)
			}
			if n != tt.n {
				t.Fatalf("Read() n = %d, want %d", n, tt.n)
			}

			var got []byte
			for i := 0; i < n; i += 4 {
				got = append(got, p[i])
			}
			if !bytes.Equal(got, tt.first) {
				t.Errorf("frame order = %v, want %v", got, tt.first)
			}
		})
	}
}

func TestSampleReaderEOF(t *testing.T) {
	r := newSampleReader(frames(2), 4, 1, false)

	p := make([]byte, 64)
	if n, err := r.Read(p); err != nil || n != 8 {
		t.Fatalf("first Read() = %d, %v", n, err)
	}
	if _, err := r.Read(p); err != io.EOF {
		t.Fatalf("second Read() error = %v, want io.EOF", err)
	}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	if n, err := r.Read(p); err != nil || n != 8 {
		t.Fatalf("Read() after rewind = %d, %v", n, err)
	}
}

func TestSampleReaderEmpty(t *testing.T) {
	r := newSampleReader(nil, 4, 1, true)
	if _, err := r.Read(make([]byte, 16)); err != io.EOF {
		t.Errorf("Read() on empty data error = %v, want io.EOF", err)
	}
}

func TestSampleReaderSeek(t *testing.T) {
	r := newSampleReader(frames(8), 4, 1, false)

	tests := []struct {
		offset int64
		whence int
		want   int64
		err    bool
	}{
		{offset: 8, whence: io.SeekStart, want: 8},
		{offset: 4, whence: io.SeekCurrent, want: 12},
		{offset: -4, whence: io.SeekEnd, want: 28},
		{offset: -64, whence: io.SeekStart, err: true},
		{offset: 0, whence: 42, err: true},
	}

	for _, tt := range tests {
		got, err := r.Seek(tt.offset, tt.whence)
		if tt.err {
			if err == nil {
				t.Errorf("Seek(%d, %d) expected error", tt.offset, tt.whence)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Seek(%d, %d) error = %v", tt.offset, tt.whence, err)
		}
		if got != tt.want {
			t.Errorf("Seek(%d, %d) = %d, want %d", tt.offset, tt.whence, got, tt.want)
		}
	}
}

func TestSampleReaderSetRateIgnoresNonPositive(t *testing.T) {
	r := newSampleReader(frames(4), 4, 1, false)
	r.SetRate(0)
	r.SetRate(-1)
	if r.rate != 1 {
		t.Errorf("rate = %v, want 1", r.rate)
	}
}

func writeWAV(t *testing.T, dir string, frames int) string {
	t.Helper()

	path := filepath.Join(dir, "click.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, 44100, 16, 2, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 2, SampleRate: 44100},
		Data:           make([]int, frames*2),
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
	return path
}

func TestLoaderUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeWAV(t, dir, 441)

	store, err := cache.NewStore(cache.Config{MemoryCapacity: 1 << 20})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	l := NewLoader(decode.Format{SampleRate: 44100, Channels: 2}, store)

	first, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(first) != 441*4 {
		t.Fatalf("Load() = %d bytes, want %d", len(first), 441*4)
	}

	second, err := l.Load(path)
	if err != nil {
		t.Fatalf("second Load() error = %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Error("cached sample differs from decoded sample")
	}

	if hits := store.Stats()[cache.LevelMemory].Hits; hits != 1 {
		t.Errorf("memory hits = %d, want 1", hits)
	}
	if d := l.Duration(len(first)); d != 10*time.Millisecond {
		t.Errorf("Duration() = %v, want 10ms", d)
	}
}

func TestLoaderDropsPartialFrame(t *testing.T) {
	path := writeWAV(t, t.TempDir(), 441)

	store, err := cache.NewStore(cache.Config{MemoryCapacity: 1 << 20})
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	l := NewLoader(decode.Format{SampleRate: 44100, Channels: 2}, store)

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	key := l.key(path, info)
	if err := store.Put(key, make([]byte, 7)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	data, err := l.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(data) != 441*4 {
		t.Fatalf("Load() = %d bytes, want freshly decoded %d", len(data), 441*4)
	}
	if cached, _, ok := store.Get(key); !ok || len(cached) != 441*4 {
		t.Errorf("cache entry not replaced: ok=%v len=%d", ok, len(cached))
	}
}

func TestLoaderMissingFile(t *testing.T) {
	l := NewLoader(decode.Format{SampleRate: 44100, Channels: 2}, nil)
	if _, err := l.Load(filepath.Join(t.TempDir(), "missing.wav")); err == nil {
		t.Error("Load() of missing file expected error")
	}
}
