// Package decode turns audio sources referenced by URL into interleaved
// signed 16-bit little-endian PCM at a fixed output format. WAV, MP3 and
// Ogg Vorbis inputs are supported.
package decode
