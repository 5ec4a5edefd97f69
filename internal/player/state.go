package player

import (
	"fmt"
	"strings"
)

// Status is the coarse state of a player.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusPlaying
	StatusPaused
	StatusReleased
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusPlaying:
		return "playing"
	case StatusPaused:
		return "paused"
	case StatusReleased:
		return "released"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// ReleaseMode controls what happens when playback reaches the end.
type ReleaseMode int

const (
	// ReleaseModeRelease frees the source when playback ends.
	ReleaseModeRelease ReleaseMode = iota
	// ReleaseModeStop keeps the source loaded.
	ReleaseModeStop
	// ReleaseModeLoop restarts playback from the beginning.
	ReleaseModeLoop
)

func (m ReleaseMode) String() string {
	switch m {
	case ReleaseModeRelease:
		return "RELEASE"
	case ReleaseModeStop:
		return "STOP"
	case ReleaseModeLoop:
		return "LOOP"
	default:
		return fmt.Sprintf("ReleaseMode(%d)", int(m))
	}
}

// ParseReleaseMode accepts both "LOOP" and qualified names like
// "ReleaseMode.LOOP".
func ParseReleaseMode(s string) (ReleaseMode, error) {
	name := s
	if i := strings.LastIndex(s, "."); i >= 0 {
		name = s[i+1:]
	}
	switch strings.ToUpper(name) {
	case "RELEASE":
		return ReleaseModeRelease, nil
	case "STOP":
		return ReleaseModeStop, nil
	case "LOOP":
		return ReleaseModeLoop, nil
	default:
		return 0, fmt.Errorf("unknown release mode %q", s)
	}
}

// State is a snapshot of a player.
type State struct {
	ID          string
	URL         string
	Volume      float64
	Rate        float64
	ReleaseMode ReleaseMode
	Looping     bool
	Playing     bool
	Paused      bool
	Loading     bool
	Released    bool
}

// Status derives the coarse state from the flags.
func (s State) Status() Status {
	switch {
	case s.URL == "" && s.Released:
		return StatusReleased
	case s.URL == "":
		return StatusIdle
	case s.Loading:
		return StatusLoading
	case s.Playing:
		return StatusPlaying
	case s.Paused:
		return StatusPaused
	default:
		return StatusReady
	}
}

// flags holds the mutable state shared by both variants.
type flags struct {
	url         string
	volume      float64
	rate        float64
	releaseMode ReleaseMode
	playing     bool
	paused      bool
	loading     bool
	released    bool
}

func defaultFlags() flags {
	return flags{volume: 1, rate: 1}
}

func (f *flags) snapshot(id string) State {
	return State{
		ID:          id,
		URL:         f.url,
		Volume:      f.volume,
		Rate:        f.rate,
		ReleaseMode: f.releaseMode,
		Looping:     f.releaseMode == ReleaseModeLoop,
		Playing:     f.playing,
		Paused:      f.paused,
		Loading:     f.loading,
		Released:    f.released,
	}
}

func (f *flags) looping() bool {
	return f.releaseMode == ReleaseModeLoop
}

// ValidateVolume reports ErrInvalidVolume unless v is within [0, 1].
func ValidateVolume(v float64) error {
	if v < 0 || v > 1 || v != v {
		return fmt.Errorf("%w: %v", ErrInvalidVolume, v)
	}
	return nil
}

// ValidateRate reports ErrInvalidRate unless r is positive.
func ValidateRate(r float64) error {
	if !(r > 0) {
		return fmt.Errorf("%w: %v", ErrInvalidRate, r)
	}
	return nil
}
