//go:build !nocgo
// +build !nocgo

package audio

import (
	"context"
	"io"
	"sync"

	"github.com/ebitengine/oto/v3"
)

// OtoTrackOpener opens single tracks on the shared oto context.
type OtoTrackOpener struct {
	ctx    *oto.Context
	loader *Loader
}

// NewOtoTrackOpener creates a track opener on the shared oto context.
func NewOtoTrackOpener(opts Options) (*OtoTrackOpener, error) {
	format := opts.Format()
	ctx, err := sharedOtoContext(format, opts.BufferSize)
	if err != nil {
		return nil, err
	}
	return &OtoTrackOpener{ctx: ctx, loader: NewLoader(format, opts.Cache)}, nil
}

// Open decodes the source and prepares a paused player for it.
func (o *OtoTrackOpener) Open(ctx context.Context, path string) (Track, error) {
	type result struct {
		data []byte
		err  error
	}

	done := make(chan result, 1)
	go func() {
		data, err := o.loader.Load(path)
		done <- result{data, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, r.err
		}
		reader := newSampleReader(r.data, o.loader.Format().BytesPerFrame(), 1, false)
		return &otoTrack{
			path:   path,
			reader: reader,
			player: o.ctx.NewPlayer(reader),
		}, nil
	}
}

// Close is a no-op; the oto context lives for the whole process.
func (o *OtoTrackOpener) Close() error {
	return nil
}

type otoTrack struct {
	mu     sync.Mutex
	path   string
	reader *sampleReader
	player *oto.Player
	closed bool
}

func (t *otoTrack) Source() string {
	return t.path
}

func (t *otoTrack) Play() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.player.Play()
	}
}

func (t *otoTrack) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.player.Pause()
	}
}

// Stop pauses output and rewinds to the start.
func (t *otoTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.player.Pause()
	_, _ = t.player.Seek(0, io.SeekStart)
}

func (t *otoTrack) SetVolume(volume float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		t.player.SetVolume(volume)
	}
}

func (t *otoTrack) SetRate(rate float64) {
	t.reader.SetRate(rate)
}

func (t *otoTrack) SetLooping(loop bool) {
	t.reader.SetLoop(loop)
}

func (t *otoTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true
	t.player.Pause()
	return t.player.Close()
}
