package audio

import (
	"fmt"
	"strings"
	"time"

	"github.com/audioplayers/audioplayers/internal/cache"
	"github.com/audioplayers/audioplayers/internal/decode"
	"github.com/charmbracelet/log"
)

// DefaultMaxStreams bounds concurrently playing pool streams.
const DefaultMaxStreams = 100

// Backend selects the native audio implementation.
type Backend string

const (
	BackendAuto Backend = "auto"
	BackendOto  Backend = "oto"
	BackendMpv  Backend = "mpv"
	BackendMock Backend = "mock"
)

// ParseBackend parses a backend name.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendAuto, BackendOto, BackendMpv, BackendMock:
		return b, nil
	case "":
		return BackendAuto, nil
	default:
		return "", fmt.Errorf("unknown audio backend %q", s)
	}
}

// Options configures backend construction.
type Options struct {
	Backend    Backend
	SampleRate int
	Channels   int
	BufferSize time.Duration
	MaxStreams int
	Cache      *cache.Store
}

// Format returns the output PCM format.
func (o Options) Format() decode.Format {
	f := decode.Format{SampleRate: o.SampleRate, Channels: o.Channels}
	if f.SampleRate == 0 {
		f.SampleRate = 44100
	}
	if f.Channels == 0 {
		f.Channels = 2
	}
	return f
}

// NewSoundPool creates a sound pool for opts.Backend. With BackendAuto an
// unavailable device falls back to the mock pool.
func NewSoundPool(opts Options) (SoundPool, Backend, error) {
	switch opts.Backend {
	case BackendMock:
		return autoMockPool(), BackendMock, nil
	case BackendOto:
		p, err := NewOtoPool(opts)
		if err != nil {
			return nil, "", err
		}
		return p, BackendOto, nil
	case BackendMpv:
		return nil, "", fmt.Errorf("backend %q does not provide a sound pool", opts.Backend)
	case BackendAuto, "":
		p, err := NewOtoPool(opts)
		if err != nil {
			log.Warn("Audio device unavailable, using mock sound pool", "error", err)
			return autoMockPool(), BackendMock, nil
		}
		return p, BackendOto, nil
	default:
		return nil, "", fmt.Errorf("unknown audio backend %q", opts.Backend)
	}
}

// NewTrackOpener creates a track opener for opts.Backend. With BackendAuto
// libmpv is preferred, then oto, then the mock.
func NewTrackOpener(opts Options) (TrackOpener, Backend, error) {
	switch opts.Backend {
	case BackendMock:
		return NewMockTrackOpener(), BackendMock, nil
	case BackendOto:
		o, err := NewOtoTrackOpener(opts)
		if err != nil {
			return nil, "", err
		}
		return o, BackendOto, nil
	case BackendMpv:
		o, err := NewMpvTrackOpener(opts)
		if err != nil {
			return nil, "", err
		}
		return o, BackendMpv, nil
	case BackendAuto, "":
		if o, err := NewMpvTrackOpener(opts); err == nil {
			return o, BackendMpv, nil
		}
		o, err := NewOtoTrackOpener(opts)
		if err != nil {
			log.Warn("Audio device unavailable, using mock track opener", "error", err)
			return NewMockTrackOpener(), BackendMock, nil
		}
		return o, BackendOto, nil
	default:
		return nil, "", fmt.Errorf("unknown audio backend %q", opts.Backend)
	}
}

func autoMockPool() *MockPool {
	p := NewMockPool()
	p.AutoComplete = true
	return p
}
