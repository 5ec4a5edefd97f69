package audio

import (
	"context"
	"errors"
)

// Common errors for the audio layer.
var (
	ErrAudioUnavailable = errors.New("audio output not available")
	ErrSoundNotLoaded   = errors.New("sound not loaded")
	ErrUnknownSound     = errors.New("unknown sound id")
	ErrPoolClosed       = errors.New("sound pool is closed")
	ErrTrackClosed      = errors.New("track is closed")
)

// SoundID identifies a sample loaded into a SoundPool.
type SoundID int32

// StreamID identifies one playing instance of a sample.
type StreamID int32

// LoadCompleteFunc is called exactly once per successful Load call, from a
// goroutine owned by the pool. A nil err means the sound is ready to play.
type LoadCompleteFunc func(id SoundID, err error)

// SoundPool mixes many short preloaded samples with low latency.
type SoundPool interface {
	// SetOnLoadComplete registers the load-complete listener.
	SetOnLoadComplete(fn LoadCompleteFunc)

	// Load starts loading the sample at path and returns immediately.
	// Completion is reported through the load-complete listener.
	Load(path string) (SoundID, error)

	// Unload frees a sample and stops its streams. It reports whether the
	// sound was known.
	Unload(id SoundID) bool

	// Play starts a new stream of a loaded sample.
	Play(id SoundID, volume, rate float64, loop bool) (StreamID, error)

	Pause(stream StreamID)
	Resume(stream StreamID)
	Stop(stream StreamID)

	SetVolume(stream StreamID, volume float64)
	SetRate(stream StreamID, rate float64)
	SetLoop(stream StreamID, loop bool)

	// Close stops every stream and releases the output device.
	Close() error
}

// Track is a native player bound to a single source.
type Track interface {
	// Source returns the path the track was opened from.
	Source() string

	Play()
	Pause()
	// Stop halts output. The position may be reset by the implementation.
	Stop()

	SetVolume(volume float64)
	SetRate(rate float64)
	SetLooping(loop bool)

	Close() error
}

// TrackOpener instantiates tracks.
type TrackOpener interface {
	// Open prepares the source at path. It returns once the track is ready
	// to play or ctx is done.
	Open(ctx context.Context, path string) (Track, error)

	Close() error
}
