package player

import (
	"errors"
	"fmt"
)

var (
	// ErrRegistryClosed is returned after the registry was torn down.
	ErrRegistryClosed = errors.New("player registry is closed")
	// ErrEngineClosed is returned by players whose engine was closed.
	ErrEngineClosed = errors.New("player engine is closed")
	// ErrLoadTimeout reports a sound that did not finish loading in time.
	ErrLoadTimeout = errors.New("sound load timed out")
	// ErrInvalidVolume reports a volume outside 0..1.
	ErrInvalidVolume = errors.New("volume must be between 0 and 1")
	// ErrInvalidRate reports a non-positive playback rate.
	ErrInvalidRate = errors.New("playback rate must be positive")
)

// LoadError describes a failed asynchronous load of url.
type LoadError struct {
	URL string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.URL, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrorFunc receives asynchronous failures for a player.
type ErrorFunc func(playerID string, err error)
