// Package plugin holds the process-wide plugin state: it wires configuration,
// the sample cache, the audio backend, the player registry and the method
// dispatcher together on attach and tears them down on detach.
package plugin

import (
	"errors"
	"fmt"
	"sync"

	"github.com/audioplayers/audioplayers/internal/audio"
	"github.com/audioplayers/audioplayers/internal/cache"
	"github.com/audioplayers/audioplayers/internal/channel"
	"github.com/audioplayers/audioplayers/internal/config"
	"github.com/audioplayers/audioplayers/internal/player"
	"github.com/charmbracelet/log"
)

// Options configures Attach.
type Options struct {
	Config config.Config
	Env    config.Env
	// Emitter receives asynchronous events. It may be nil.
	Emitter channel.Emitter
}

// Plugin is the attached plugin.
type Plugin struct {
	Variant    player.Variant
	Backend    audio.Backend
	Registry   *player.Registry
	Dispatcher *channel.Dispatcher

	store      *cache.Store
	detachOnce sync.Once
	detachErr  error
}

// Attach builds the plugin state.
func Attach(opts Options) (*Plugin, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	audioOpts := audio.Options{
		Backend:    cfg.AudioBackend(opts.Env),
		SampleRate: cfg.Audio.SampleRate,
		Channels:   cfg.Audio.Channels,
		BufferSize: cfg.Audio.BufferSize,
		MaxStreams: cfg.Pool.MaxStreams,
		Cache:      store,
	}

	var onError player.ErrorFunc
	if opts.Emitter != nil {
		onError = channel.ErrorEvents(opts.Emitter)
	}

	var (
		engine  player.Engine
		backend audio.Backend
	)
	switch cfg.PlayerVariant() {
	case player.VariantSoundPool:
		var pool audio.SoundPool
		pool, backend, err = audio.NewSoundPool(audioOpts)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("unable to create sound pool: %w", err)
		}
		engine = player.NewSoundPoolEngine(pool, player.SoundPoolOptions{
			LoadTimeout: cfg.Pool.LoadTimeout,
			OnError:     onError,
		})
	case player.VariantTrack:
		var opener audio.TrackOpener
		opener, backend, err = audio.NewTrackOpener(audioOpts)
		if err != nil {
			closeStore(store)
			return nil, fmt.Errorf("unable to create track opener: %w", err)
		}
		engine = player.NewTrackEngine(opener)
	default:
		closeStore(store)
		return nil, fmt.Errorf("unknown player variant %q", cfg.Variant)
	}

	registry := player.NewRegistry(engine)

	log.Info("Plugin attached",
		"variant", cfg.Variant,
		"backend", backend,
		"sample_rate", cfg.Audio.SampleRate,
		"channels", cfg.Audio.Channels,
		"cache", store != nil)

	return &Plugin{
		Variant:    cfg.PlayerVariant(),
		Backend:    backend,
		Registry:   registry,
		Dispatcher: channel.NewDispatcher(registry),
		store:      store,
	}, nil
}

// Detach releases every player and closes the native resources. It is safe
// to call more than once.
func (p *Plugin) Detach() error {
	p.detachOnce.Do(func() {
		var errs []error
		if err := p.Registry.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close registry: %w", err))
		}
		if p.store != nil {
			if err := p.store.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sample cache: %w", err))
			}
		}
		p.detachErr = errors.Join(errs...)
		log.Info("Plugin detached", "error", p.detachErr)
	})
	return p.detachErr
}

func newStore(cfg config.Config) (*cache.Store, error) {
	cc, ok, err := cfg.CacheStore()
	if err != nil || !ok {
		return nil, err
	}
	store, err := cache.NewStore(cc)
	if err != nil {
		return nil, fmt.Errorf("unable to open sample cache: %w", err)
	}
	return store, nil
}

func closeStore(store *cache.Store) {
	if store == nil {
		return
	}
	if err := store.Close(); err != nil {
		log.Warn("Failed to close sample cache", "error", err)
	}
}
