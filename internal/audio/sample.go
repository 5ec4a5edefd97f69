package audio

import (
	"errors"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/audioplayers/audioplayers/internal/cache"
	"github.com/audioplayers/audioplayers/internal/decode"
	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
)

// Loader decodes files into PCM at the output format, consulting a sample
// cache when one is configured.
type Loader struct {
	format decode.Format
	store  *cache.Store
}

// NewLoader creates a loader. store may be nil.
func NewLoader(format decode.Format, store *cache.Store) *Loader {
	return &Loader{format: format, store: store}
}

// Format returns the output PCM format.
func (l *Loader) Format() decode.Format {
	return l.format
}

// Load decodes the file at path.
func (l *Loader) Load(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	key := l.key(path, info)
	if l.store != nil {
		if data, level, ok := l.store.Get(key); ok {
			if len(data)%l.format.BytesPerFrame() == 0 {
				log.Debug("Sample cache hit", "path", path, "level", level, "size", humanize.IBytes(uint64(len(data))))
				return data, nil
			}
			log.Warn("Dropping cached sample with partial frame", "path", path, "level", level, "size", len(data))
			if err := l.store.Delete(key); err != nil {
				log.Warn("Failed to drop cached sample", "path", path, "error", err)
			}
		}
	}

	start := time.Now()
	data, err := decode.File(path, l.format)
	if err != nil {
		return nil, err
	}

	log.Debug("Sound decoded",
		"path", path,
		"size", humanize.IBytes(uint64(len(data))),
		"duration", l.Duration(len(data)),
		"took", time.Since(start))

	if l.store != nil {
		if err := l.store.Put(key, data); err != nil && !errors.Is(err, cache.ErrItemTooLarge) {
			log.Warn("Failed to cache decoded sample", "path", path, "error", err)
		}
	}

	return data, nil
}

// key identifies a decoded sample by source file version and output format.
func (l *Loader) key(path string, info os.FileInfo) string {
	return cache.Key(
		path,
		info.ModTime().UTC().Format(time.RFC3339Nano),
		strconv.FormatInt(info.Size(), 10),
		strconv.Itoa(l.format.SampleRate),
		strconv.Itoa(l.format.Channels),
	)
}

// Duration returns the playback length of n bytes of PCM.
func (l *Loader) Duration(n int) time.Duration {
	frames := n / l.format.BytesPerFrame()
	return time.Duration(frames) * time.Second / time.Duration(l.format.SampleRate)
}

// sampleReader streams shared PCM data with its own position, playback rate
// and looping flag. Several readers may share one data slice.
type sampleReader struct {
	mu        sync.Mutex
	data      []byte
	frameSize int
	pos       float64 // in frames
	rate      float64
	loop      bool
}

func newSampleReader(data []byte, frameSize int, rate float64, loop bool) *sampleReader {
	if rate <= 0 {
		rate = 1
	}
	return &sampleReader{data: data, frameSize: frameSize, rate: rate, loop: loop}
}

// Read implements io.Reader. Rates other than 1 step through the source by
// nearest frame.
func (r *sampleReader) Read(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	frames := len(r.data) / r.frameSize
	if frames == 0 {
		return 0, io.EOF
	}

	n := 0
	for n+r.frameSize <= len(p) {
		i := int(r.pos)
		if i >= frames {
			if !r.loop {
				break
			}
			r.pos -= float64(frames)
			if r.pos < 0 || int(r.pos) >= frames {
				r.pos = 0
			}
			i = int(r.pos)
		}

		copy(p[n:n+r.frameSize], r.data[i*r.frameSize:(i+1)*r.frameSize])
		n += r.frameSize
		r.pos += r.rate
	}

	if n == 0 && len(p) >= r.frameSize {
		return 0, io.EOF
	}
	return n, nil
}

// Seek implements io.Seeker in bytes of source data.
func (r *sampleReader) Seek(offset int64, whence int) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var frames float64
	switch whence {
	case io.SeekStart:
		frames = float64(offset / int64(r.frameSize))
	case io.SeekCurrent:
		frames = r.pos + float64(offset/int64(r.frameSize))
	case io.SeekEnd:
		frames = float64((int64(len(r.data)) + offset) / int64(r.frameSize))
	default:
		return 0, errors.New("invalid whence")
	}
	if frames < 0 {
		return 0, errors.New("negative position")
	}

	r.pos = frames
	return int64(frames) * int64(r.frameSize), nil
}

func (r *sampleReader) SetRate(rate float64) {
	if rate <= 0 {
		return
	}
	r.mu.Lock()
	r.rate = rate
	r.mu.Unlock()
}

func (r *sampleReader) SetLoop(loop bool) {
	r.mu.Lock()
	r.loop = loop
	r.mu.Unlock()
}
