package player

import (
	"context"
	"sync"

	"github.com/audioplayers/audioplayers/internal/audio"
	"github.com/audioplayers/audioplayers/internal/decode"
	"github.com/charmbracelet/log"
)

// TrackEngine is the single-track variant: each player owns at most one
// native track and nothing is shared between players.
type TrackEngine struct {
	opener audio.TrackOpener

	mu     sync.Mutex
	closed bool
}

// NewTrackEngine creates an engine opening tracks with opener.
func NewTrackEngine(opener audio.TrackOpener) *TrackEngine {
	return &TrackEngine{opener: opener}
}

func (e *TrackEngine) Variant() Variant {
	return VariantTrack
}

// NewPlayer creates an unbound player.
func (e *TrackEngine) NewPlayer(id string) Player {
	return &trackPlayer{id: id, e: e, flags: defaultFlags()}
}

// Close closes the track opener. Players must be released first.
func (e *TrackEngine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	e.closed = true
	e.mu.Unlock()

	log.Debug("Track engine closed")
	return e.opener.Close()
}

func (e *TrackEngine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

type trackPlayer struct {
	id string
	e  *TrackEngine

	mu sync.Mutex
	flags
	track audio.Track
	// gen is bumped by every bind and release so that a slow Open that was
	// superseded drops its result.
	gen uint64
}

func (p *trackPlayer) ID() string {
	return p.id
}

// SetURL returns after the track is ready or failed to open. A failed open
// leaves the player idle.
func (p *trackPlayer) SetURL(ctx context.Context, url string) error {
	if p.e.isClosed() {
		return ErrEngineClosed
	}

	path := decode.Path(url)

	p.mu.Lock()
	if p.url != "" && p.url == url {
		p.mu.Unlock()
		return nil
	}

	p.gen++
	gen := p.gen

	if p.track != nil && p.track.Source() == path {
		p.url = url
		p.released = false
		p.mu.Unlock()
		log.Debug("Reusing track", "player", p.id, "url", url)
		return nil
	}

	if p.track != nil {
		p.stopLocked()
		p.closeTrackLocked()
	}
	p.url = url
	p.loading = true
	p.released = false
	p.mu.Unlock()

	track, err := p.e.opener.Open(ctx, path)

	p.mu.Lock()
	defer p.mu.Unlock()

	if gen != p.gen {
		if track != nil {
			_ = track.Close()
		}
		log.Debug("Discarding superseded track", "player", p.id, "url", url)
		return nil
	}

	if err != nil {
		p.url = ""
		p.loading = false
		return &LoadError{URL: url, Err: err}
	}

	p.track = track
	p.loading = false
	track.SetVolume(p.volume)
	track.SetRate(p.rate)
	track.SetLooping(p.looping())
	if p.playing {
		track.Play()
	}

	log.Debug("Track ready", "player", p.id, "url", url)
	return nil
}

func (p *trackPlayer) Play(ctx context.Context, url string) error {
	if err := p.SetURL(ctx, url); err != nil {
		return err
	}
	return p.Resume()
}

func (p *trackPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.url == "" {
		return nil
	}
	p.playing = true
	p.paused = false
	if p.track != nil && !p.loading {
		p.track.Play()
	}
	return nil
}

func (p *trackPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.url == "" {
		return nil
	}
	if p.playing && p.track != nil {
		p.track.Pause()
	}
	p.playing = false
	p.paused = true
	return nil
}

func (p *trackPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	return nil
}

// stopLocked halts output. The track rewinds itself; no seek-back is done.
func (p *trackPlayer) stopLocked() {
	if (p.playing || p.paused) && p.track != nil {
		p.track.Stop()
	}
	p.playing = false
	p.paused = false
}

func (p *trackPlayer) closeTrackLocked() {
	if p.track == nil {
		return
	}
	if err := p.track.Close(); err != nil {
		log.Warn("Failed to close track", "player", p.id, "error", err)
	}
	p.track = nil
}

func (p *trackPlayer) Release() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	if p.url == "" && p.track == nil {
		return nil
	}
	p.gen++
	p.closeTrackLocked()
	p.url = ""
	p.loading = false
	p.released = true
	return nil
}

func (p *trackPlayer) SetVolume(volume float64) error {
	if err := ValidateVolume(volume); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.volume = volume
	if p.track != nil {
		p.track.SetVolume(volume)
	}
	return nil
}

func (p *trackPlayer) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.rate = rate
	if p.track != nil {
		p.track.SetRate(rate)
	}
	return nil
}

func (p *trackPlayer) SetReleaseMode(mode ReleaseMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.releaseMode = mode
	if p.track != nil {
		p.track.SetLooping(p.looping())
	}
	return nil
}

func (p *trackPlayer) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.snapshot(p.id)
}
