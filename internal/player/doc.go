// Package player implements the per-identifier playback state machine in two
// variants: a sound-pool variant whose players share loaded samples by URL,
// and a single-track variant with one native track per player.
package player
