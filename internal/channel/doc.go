// Package channel bridges the host's method-call channel to the player
// registry. Calls arrive as newline-delimited JSON; each gets exactly one
// response, and asynchronous events are interleaved on the same stream.
package channel
