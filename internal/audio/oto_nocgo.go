//go:build nocgo
// +build nocgo

package audio

// Stub implementations for builds without CGO

// OtoPool is unavailable in nocgo builds.
type OtoPool struct{ MockPool }

// NewOtoPool always fails in nocgo builds.
func NewOtoPool(Options) (*OtoPool, error) {
	return nil, ErrAudioUnavailable
}

// OtoTrackOpener is unavailable in nocgo builds.
type OtoTrackOpener struct{ MockTrackOpener }

// NewOtoTrackOpener always fails in nocgo builds.
func NewOtoTrackOpener(Options) (*OtoTrackOpener, error) {
	return nil, ErrAudioUnavailable
}
