//go:build !libmpv

package audio

import "errors"

// MpvTrackOpener is unavailable without the libmpv build tag.
type MpvTrackOpener struct{ MockTrackOpener }

// NewMpvTrackOpener always fails without the libmpv build tag.
func NewMpvTrackOpener(Options) (*MpvTrackOpener, error) {
	return nil, errors.New("libmpv backend is not enabled; build with -tags libmpv")
}
