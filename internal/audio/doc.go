// Package audio is the native playback layer behind the players. It exposes
// two capabilities: a SoundPool, a low-latency mixer of preloaded samples
// whose loads complete asynchronously, and a TrackOpener producing
// single-track players bound to one source.
//
// Production implementations use oto/v3 for output (and libmpv for tracks
// when built with the libmpv tag). Mock implementations simulate playback
// without producing sound and are used in tests and CI.
package audio
