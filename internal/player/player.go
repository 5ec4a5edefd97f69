package player

import (
	"context"
	"fmt"
)

// Variant names a player implementation.
type Variant string

const (
	VariantSoundPool Variant = "soundpool"
	VariantTrack     Variant = "track"
)

// ParseVariant parses a variant name.
func ParseVariant(s string) (Variant, error) {
	switch v := Variant(s); v {
	case VariantSoundPool, VariantTrack:
		return v, nil
	default:
		return "", fmt.Errorf("unknown player variant %q", s)
	}
}

// Player is the playback capability addressed by one identifier.
type Player interface {
	ID() string

	// SetURL binds the player to url. It is a no-op when url is already
	// bound.
	SetURL(ctx context.Context, url string) error
	// Play binds url and starts playback, deferring output until the
	// source is ready.
	Play(ctx context.Context, url string) error

	Resume() error
	Pause() error
	Stop() error
	// Release stops playback and detaches the bound source. It is
	// idempotent.
	Release() error

	SetVolume(volume float64) error
	SetRate(rate float64) error
	SetReleaseMode(mode ReleaseMode) error

	State() State
}

// Engine creates players of one variant and owns their shared native
// resources.
type Engine interface {
	Variant() Variant
	NewPlayer(id string) Player
	Close() error
}
