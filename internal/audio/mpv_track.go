//go:build libmpv

package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"

	mpv "github.com/gen2brain/go-mpv"
)

const (
	mpvPauseProperty  = "pause"
	mpvVolumeProperty = "volume"
	mpvSpeedProperty  = "speed"
	mpvLoopProperty   = "loop-file"
)

var errMpvLoadFailed = errors.New("libmpv could not open source")

// MpvTrackOpener opens each track on its own libmpv instance.
type MpvTrackOpener struct{}

// NewMpvTrackOpener creates a libmpv track opener.
func NewMpvTrackOpener(Options) (*MpvTrackOpener, error) {
	return &MpvTrackOpener{}, nil
}

// Open loads path paused and waits until libmpv reports it loaded.
func (o *MpvTrackOpener) Open(ctx context.Context, path string) (Track, error) {
	client := mpv.New()
	if client == nil {
		return nil, errors.New("create libmpv instance")
	}

	_ = client.SetOptionString("terminal", "no")
	_ = client.SetOptionString("video", "no")
	_ = client.SetOptionString("audio-display", "no")
	_ = client.SetOptionString("keep-open", "yes")
	_ = client.SetOptionString(mpvPauseProperty, "yes")

	if err := client.Initialize(); err != nil {
		client.TerminateDestroy()
		return nil, fmt.Errorf("initialize libmpv: %w", err)
	}

	if err := client.Command([]string{"loadfile", path, "replace"}); err != nil {
		client.TerminateDestroy()
		return nil, fmt.Errorf("load file %q: %w", path, err)
	}

	if err := waitFileLoaded(ctx, client); err != nil {
		client.TerminateDestroy()
		return nil, fmt.Errorf("load file %q: %w", path, err)
	}

	return &mpvTrack{path: path, client: client}, nil
}

func waitFileLoaded(ctx context.Context, client *mpv.Mpv) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		event := client.WaitEvent(0.1)
		if event == nil {
			continue
		}

		switch event.EventID {
		case mpv.EventFileLoaded:
			return nil
		case mpv.EventEnd, mpv.EventShutdown:
			return errMpvLoadFailed
		}
	}
}

// Close is a no-op; every track owns its libmpv instance.
func (o *MpvTrackOpener) Close() error {
	return nil
}

type mpvTrack struct {
	mu     sync.Mutex
	path   string
	client *mpv.Mpv
}

func (t *mpvTrack) Source() string {
	return t.path
}

func (t *mpvTrack) Play() {
	t.setString(mpvPauseProperty, "no")
}

func (t *mpvTrack) Pause() {
	t.setString(mpvPauseProperty, "yes")
}

// Stop pauses and rewinds; the file stays loaded for a later Play.
func (t *mpvTrack) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return
	}
	_ = t.client.SetPropertyString(mpvPauseProperty, "yes")
	_ = t.client.Command([]string{"seek", "0", "absolute"})
}

func (t *mpvTrack) SetVolume(volume float64) {
	t.setDouble(mpvVolumeProperty, volume*100)
}

func (t *mpvTrack) SetRate(rate float64) {
	t.setDouble(mpvSpeedProperty, rate)
}

func (t *mpvTrack) SetLooping(loop bool) {
	if loop {
		t.setString(mpvLoopProperty, "inf")
	} else {
		t.setString(mpvLoopProperty, "no")
	}
}

func (t *mpvTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client == nil {
		return nil
	}
	t.client.TerminateDestroy()
	t.client = nil
	return nil
}

func (t *mpvTrack) setString(name, value string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		_ = t.client.SetPropertyString(name, value)
	}
}

func (t *mpvTrack) setDouble(name string, value float64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil {
		_ = t.client.SetProperty(name, mpv.FormatDouble, value)
	}
}
