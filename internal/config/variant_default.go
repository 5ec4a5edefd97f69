//go:build !singletrack

package config

// DefaultVariant is the player variant used when none is configured.
const DefaultVariant = "soundpool"
