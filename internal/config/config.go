// Package config holds the audioplayers configuration model and its loading
// from file, environment and flags.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/audioplayers/audioplayers/internal/audio"
	"github.com/audioplayers/audioplayers/internal/cache"
	"github.com/audioplayers/audioplayers/internal/player"
	"github.com/caarlos0/env/v11"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// AppName names the config file, cache and log directories.
const AppName = "audioplayers"

// Config contains all audioplayers configuration options.
type Config struct {
	Variant string      `yaml:"variant" mapstructure:"variant"`
	Backend string      `yaml:"backend" mapstructure:"backend"`
	Debug   bool        `yaml:"debug" mapstructure:"debug"`
	Audio   AudioConfig `yaml:"audio" mapstructure:"audio"`
	Pool    PoolConfig  `yaml:"pool" mapstructure:"pool"`
	Cache   CacheConfig `yaml:"cache" mapstructure:"cache"`
}

// AudioConfig describes the output device format.
type AudioConfig struct {
	SampleRate int           `yaml:"sample_rate" mapstructure:"sample_rate"`
	Channels   int           `yaml:"channels" mapstructure:"channels"`
	BufferSize time.Duration `yaml:"buffer_size" mapstructure:"buffer_size"`
}

// PoolConfig contains sound-pool variant settings.
type PoolConfig struct {
	MaxStreams  int           `yaml:"max_streams" mapstructure:"max_streams"`
	LoadTimeout time.Duration `yaml:"load_timeout" mapstructure:"load_timeout"`
}

// CacheConfig contains decoded sample cache settings.
type CacheConfig struct {
	Enabled          bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir              string        `yaml:"dir" mapstructure:"dir"`
	MemoryMB         int           `yaml:"memory_mb" mapstructure:"memory_mb"`
	DiskMB           int           `yaml:"disk_mb" mapstructure:"disk_mb"`
	CompressionLevel int           `yaml:"compression_level" mapstructure:"compression_level"`
	MaxAge           time.Duration `yaml:"max_age" mapstructure:"max_age"`
}

// Env holds environment overrides read outside viper.
type Env struct {
	MockAudio  bool   `env:"AUDIOPLAYERS_MOCK_AUDIO" envDefault:"false"`
	CI         bool   `env:"CI" envDefault:"false"`
	ConfigHome string `env:"AUDIOPLAYERS_CONFIG_HOME"`
	XDGConfig  string `env:"XDG_CONFIG_HOME"`
}

// ReadEnv parses the environment.
func ReadEnv() (Env, error) {
	e, err := env.ParseAs[Env]()
	if err != nil {
		return Env{}, fmt.Errorf("error parsing environment: %w", err)
	}
	return e, nil
}

// ForceMock reports whether audio output must not touch a real device.
func (e Env) ForceMock() bool {
	return e.MockAudio || e.CI
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Variant: DefaultVariant,
		Backend: string(audio.BackendAuto),
		Audio: AudioConfig{
			SampleRate: 44100,
			Channels:   2,
			BufferSize: 50 * time.Millisecond,
		},
		Pool: PoolConfig{
			MaxStreams:  audio.DefaultMaxStreams,
			LoadTimeout: 30 * time.Second,
		},
		Cache: CacheConfig{
			Enabled:          true,
			MemoryMB:         64,
			DiskMB:           256,
			CompressionLevel: 3,
			MaxAge:           30 * 24 * time.Hour,
		},
	}
}

// SetDefaults registers the defaults with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("variant", d.Variant)
	v.SetDefault("backend", d.Backend)
	v.SetDefault("debug", d.Debug)
	v.SetDefault("audio.sample_rate", d.Audio.SampleRate)
	v.SetDefault("audio.channels", d.Audio.Channels)
	v.SetDefault("audio.buffer_size", d.Audio.BufferSize)
	v.SetDefault("pool.max_streams", d.Pool.MaxStreams)
	v.SetDefault("pool.load_timeout", d.Pool.LoadTimeout)
	v.SetDefault("cache.enabled", d.Cache.Enabled)
	v.SetDefault("cache.dir", d.Cache.Dir)
	v.SetDefault("cache.memory_mb", d.Cache.MemoryMB)
	v.SetDefault("cache.disk_mb", d.Cache.DiskMB)
	v.SetDefault("cache.compression_level", d.Cache.CompressionLevel)
	v.SetDefault("cache.max_age", d.Cache.MaxAge)
}

// Load decodes and validates the configuration held by v.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unable to decode configuration: %w", err)
	}

	if cfg.Cache.Dir != "" {
		dir, err := homedir.Expand(cfg.Cache.Dir)
		if err != nil {
			return Config{}, fmt.Errorf("unable to expand cache dir: %w", err)
		}
		cfg.Cache.Dir = dir
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	variant, err := player.ParseVariant(c.Variant)
	if err != nil {
		return fmt.Errorf("invalid variant: %w", err)
	}

	backend, err := audio.ParseBackend(c.Backend)
	if err != nil {
		return fmt.Errorf("invalid backend: %w", err)
	}
	c.Backend = string(backend)

	if variant == player.VariantSoundPool && backend == audio.BackendMpv {
		return fmt.Errorf("backend %q only supports the %q variant", backend, player.VariantTrack)
	}

	switch c.Audio.SampleRate {
	case 22050, 44100, 48000:
	default:
		return fmt.Errorf("invalid sample rate %d: must be one of [22050 44100 48000]", c.Audio.SampleRate)
	}

	if c.Audio.Channels != 1 && c.Audio.Channels != 2 {
		return fmt.Errorf("invalid channel count %d: must be 1 or 2", c.Audio.Channels)
	}

	if c.Audio.BufferSize < 0 {
		return fmt.Errorf("buffer size must not be negative, got %s", c.Audio.BufferSize)
	}

	if c.Pool.MaxStreams < 1 || c.Pool.MaxStreams > 1000 {
		return fmt.Errorf("max streams must be between 1 and 1000, got %d", c.Pool.MaxStreams)
	}

	if c.Pool.LoadTimeout < 0 {
		return fmt.Errorf("load timeout must not be negative, got %s", c.Pool.LoadTimeout)
	}

	if c.Cache.MemoryMB < 0 || c.Cache.DiskMB < 0 {
		return fmt.Errorf("cache sizes must not be negative")
	}

	if c.Cache.CompressionLevel < 0 || c.Cache.CompressionLevel > 22 {
		return fmt.Errorf("compression level must be between 0 and 22, got %d", c.Cache.CompressionLevel)
	}

	if c.Cache.MaxAge < 0 {
		return fmt.Errorf("cache max age must not be negative, got %s", c.Cache.MaxAge)
	}

	return nil
}

// PlayerVariant returns the validated variant.
func (c Config) PlayerVariant() player.Variant {
	return player.Variant(c.Variant)
}

// AudioBackend resolves the backend, forcing the mock when the environment
// asks for it and the backend was left on auto.
func (c Config) AudioBackend(e Env) audio.Backend {
	b := audio.Backend(c.Backend)
	if b == audio.BackendAuto && e.ForceMock() {
		return audio.BackendMock
	}
	return b
}

// CacheStore returns the sample cache configuration, or false when caching
// is disabled.
func (c Config) CacheStore() (cache.Config, bool, error) {
	if !c.Cache.Enabled {
		return cache.Config{}, false, nil
	}

	dir := c.Cache.Dir
	if dir == "" && c.Cache.DiskMB > 0 {
		d, err := DefaultCacheDir()
		if err != nil {
			return cache.Config{}, false, err
		}
		dir = d
	}

	return cache.Config{
		MemoryCapacity:   int64(c.Cache.MemoryMB) << 20,
		DiskCapacity:     int64(c.Cache.DiskMB) << 20,
		DiskPath:         dir,
		CompressionLevel: c.Cache.CompressionLevel,
		MaxAge:           c.Cache.MaxAge,
	}, true, nil
}

// DefaultCacheDir returns the per-user sample cache directory.
func DefaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, AppName).CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "samples"), nil
}

// ConfigDirs returns the directories searched for the config file, most
// specific first.
func (e Env) ConfigDirs() ([]string, error) {
	dirs, err := gap.NewScope(gap.User, AppName).ConfigDirs()
	if err != nil {
		return nil, fmt.Errorf("unable to find configuration directory: %w", err)
	}
	if e.XDGConfig != "" {
		dirs = append([]string{filepath.Join(e.XDGConfig, AppName)}, dirs...)
	}
	if e.ConfigHome != "" {
		dirs = append([]string{e.ConfigHome}, dirs...)
	}
	return dirs, nil
}

// MarshalYAML writes durations in their human form.
func (a AudioConfig) MarshalYAML() (any, error) {
	return struct {
		SampleRate int    `yaml:"sample_rate"`
		Channels   int    `yaml:"channels"`
		BufferSize string `yaml:"buffer_size"`
	}{a.SampleRate, a.Channels, a.BufferSize.String()}, nil
}

// MarshalYAML writes durations in their human form.
func (p PoolConfig) MarshalYAML() (any, error) {
	return struct {
		MaxStreams  int    `yaml:"max_streams"`
		LoadTimeout string `yaml:"load_timeout"`
	}{p.MaxStreams, p.LoadTimeout.String()}, nil
}

// GenerateExample renders the default configuration as YAML.
func GenerateExample() (string, error) {
	out, err := yaml.Marshal(Default())
	if err != nil {
		return "", fmt.Errorf("unable to render example configuration: %w", err)
	}
	return string(out), nil
}
