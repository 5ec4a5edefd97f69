package audio

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// MockTrackOpener opens MockTracks.
type MockTrackOpener struct {
	// FailPaths makes Open of these paths fail with the given error.
	FailPaths map[string]error
	// OpenDelay simulates slow preparation.
	OpenDelay time.Duration

	mu     sync.Mutex
	tracks []*MockTrack
	closed bool

	openCount atomic.Int64
}

// NewMockTrackOpener creates a mock track opener.
func NewMockTrackOpener() *MockTrackOpener {
	return &MockTrackOpener{}
}

func (o *MockTrackOpener) Open(ctx context.Context, path string) (Track, error) {
	o.openCount.Add(1)

	if o.OpenDelay > 0 {
		timer := time.NewTimer(o.OpenDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return nil, ErrAudioUnavailable
	}
	if err := o.FailPaths[path]; err != nil {
		return nil, err
	}

	t := &MockTrack{path: path, volume: 1, rate: 1}
	o.tracks = append(o.tracks, t)
	return t, nil
}

func (o *MockTrackOpener) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
	return nil
}

// Tracks returns every track opened so far.
func (o *MockTrackOpener) Tracks() []*MockTrack {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MockTrack(nil), o.tracks...)
}

// GetOpenCount returns the number of Open calls.
func (o *MockTrackOpener) GetOpenCount() int64 {
	return o.openCount.Load()
}

// MockTrack records the calls made to it.
type MockTrack struct {
	path string

	mu      sync.Mutex
	playing bool
	paused  bool
	volume  float64
	rate    float64
	looping bool
	closed  bool

	playCount atomic.Int64
	stopCount atomic.Int64
}

func (t *MockTrack) Source() string {
	return t.path
}

func (t *MockTrack) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.playing = true
	t.paused = false
	t.playCount.Add(1)
}

func (t *MockTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed || !t.playing {
		return
	}
	t.playing = false
	t.paused = true
}

func (t *MockTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.playing = false
	t.paused = false
	t.stopCount.Add(1)
}

func (t *MockTrack) SetVolume(volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.volume = volume
}

func (t *MockTrack) SetRate(rate float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rate = rate
}

func (t *MockTrack) SetLooping(loop bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.looping = loop
}

func (t *MockTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.playing = false
	return nil
}

// IsPlaying reports whether the track is producing sound.
func (t *MockTrack) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// IsPaused reports whether the track was paused mid-playback.
func (t *MockTrack) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.paused
}

// IsClosed reports whether Close was called.
func (t *MockTrack) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *MockTrack) Volume() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.volume
}

func (t *MockTrack) Rate() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.rate
}

func (t *MockTrack) Looping() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.looping
}

// GetPlayCount returns the number of Play calls on an open track.
func (t *MockTrack) GetPlayCount() int64 {
	return t.playCount.Load()
}

// GetStopCount returns the number of Stop calls.
func (t *MockTrack) GetStopCount() int64 {
	return t.stopCount.Load()
}
