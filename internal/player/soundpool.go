package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/audioplayers/audioplayers/internal/audio"
	"github.com/audioplayers/audioplayers/internal/decode"
	"github.com/charmbracelet/log"
)

const loadEventBuffer = 16

// SoundPoolOptions configures a SoundPoolEngine.
type SoundPoolOptions struct {
	// LoadTimeout fails loads that take longer. Zero disables the timeout.
	LoadTimeout time.Duration
	// OnError receives load failures, once per bound player.
	OnError ErrorFunc
}

// SoundPoolEngine is the shared resource manager of the sound-pool variant.
// Players bound to the same URL share one loaded sound, which is unloaded
// when the last of them releases.
//
// Load completions from the native pool are posted to an event loop and
// applied under the engine lock, so native callbacks never touch player
// state directly.
type SoundPoolEngine struct {
	pool        audio.SoundPool
	loadTimeout time.Duration
	onError     ErrorFunc

	mu        sync.Mutex
	resources map[string]*sharedResource
	loads     map[audio.SoundID]*sharedResource
	closed    bool

	events    chan loadEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

type sharedResource struct {
	url     string
	sound   audio.SoundID
	loading bool
	members []*poolPlayer
	timer   *time.Timer
}

type loadEvent struct {
	sound audio.SoundID
	err   error
}

// NewSoundPoolEngine creates an engine on pool and starts its event loop.
func NewSoundPoolEngine(pool audio.SoundPool, opts SoundPoolOptions) *SoundPoolEngine {
	e := &SoundPoolEngine{
		pool:        pool,
		loadTimeout: opts.LoadTimeout,
		onError:     opts.OnError,
		resources:   make(map[string]*sharedResource),
		loads:       make(map[audio.SoundID]*sharedResource),
		events:      make(chan loadEvent, loadEventBuffer),
		done:        make(chan struct{}),
	}

	pool.SetOnLoadComplete(func(id audio.SoundID, err error) {
		e.post(loadEvent{sound: id, err: err})
	})

	e.wg.Add(1)
	go e.loop()

	return e
}

func (e *SoundPoolEngine) Variant() Variant {
	return VariantSoundPool
}

// NewPlayer creates an unbound player.
func (e *SoundPoolEngine) NewPlayer(id string) Player {
	return &poolPlayer{id: id, e: e, flags: defaultFlags()}
}

// Resources reports the number of players bound to each loaded URL.
func (e *SoundPoolEngine) Resources() map[string]int {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make(map[string]int, len(e.resources))
	for url, res := range e.resources {
		out[url] = len(res.members)
	}
	return out
}

// Close stops the event loop and closes the native pool.
func (e *SoundPoolEngine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		for _, res := range e.resources {
			if res.timer != nil {
				res.timer.Stop()
			}
		}
		e.resources = make(map[string]*sharedResource)
		e.loads = make(map[audio.SoundID]*sharedResource)
		e.mu.Unlock()

		close(e.done)
		e.wg.Wait()

		err = e.pool.Close()
		log.Debug("Sound pool engine closed")
	})
	return err
}

// post hands an event to the loop without blocking the native callback.
func (e *SoundPoolEngine) post(ev loadEvent) {
	select {
	case e.events <- ev:
		return
	case <-e.done:
		return
	default:
	}

	go func() {
		select {
		case e.events <- ev:
		case <-e.done:
		}
	}()
}

func (e *SoundPoolEngine) loop() {
	defer e.wg.Done()

	for {
		select {
		case <-e.done:
			return
		case ev := <-e.events:
			e.handleLoad(ev)
		}
	}
}

func (e *SoundPoolEngine) handleLoad(ev loadEvent) {
	e.mu.Lock()

	res, ok := e.loads[ev.sound]
	if !ok {
		e.mu.Unlock()
		log.Debug("Ignoring load completion", "sound", ev.sound, "error", ev.err)
		return
	}
	delete(e.loads, ev.sound)
	if res.timer != nil {
		res.timer.Stop()
		res.timer = nil
	}

	if ev.err != nil {
		members := res.members
		res.members = nil
		delete(e.resources, res.url)
		e.pool.Unload(res.sound)

		ids := make([]string, 0, len(members))
		for _, p := range members {
			p.resetLocked()
			ids = append(ids, p.id)
		}
		onError := e.onError
		e.mu.Unlock()

		log.Warn("Sound failed to load", "url", res.url, "players", len(ids), "error", ev.err)
		if onError != nil {
			for _, id := range ids {
				onError(id, &LoadError{URL: res.url, Err: ev.err})
			}
		}
		return
	}

	res.loading = false
	started := 0
	for _, p := range res.members {
		p.loading = false
		if p.playing {
			if err := p.startLocked(); err != nil {
				log.Warn("Failed to start stream", "player", p.id, "url", res.url, "error", err)
				continue
			}
			started++
		}
	}
	players := len(res.members)
	e.mu.Unlock()

	log.Debug("Sound loaded", "url", res.url, "sound", ev.sound, "players", players, "started", started)
}

// bindLocked must be called with e.mu held.
func (e *SoundPoolEngine) bindLocked(p *poolPlayer, url string) error {
	if res, ok := e.resources[url]; ok {
		res.members = append(res.members, p)
		p.res = res
		p.url = url
		p.loading = res.loading
		p.released = false
		log.Debug("Sharing loaded sound", "player", p.id, "url", url, "players", len(res.members))
		return nil
	}

	id, err := e.pool.Load(decode.Path(url))
	if err != nil {
		return fmt.Errorf("load %s: %w", url, err)
	}

	res := &sharedResource{url: url, sound: id, loading: true, members: []*poolPlayer{p}}
	e.resources[url] = res
	e.loads[id] = res

	if e.loadTimeout > 0 {
		res.timer = time.AfterFunc(e.loadTimeout, func() {
			e.post(loadEvent{sound: id, err: ErrLoadTimeout})
		})
	}

	p.res = res
	p.url = url
	p.loading = true
	p.released = false
	log.Debug("Loading sound", "player", p.id, "url", url, "sound", id)
	return nil
}

// unbindLocked must be called with e.mu held.
func (e *SoundPoolEngine) unbindLocked(p *poolPlayer) {
	res := p.res
	if res == nil {
		return
	}
	p.res = nil

	for i, m := range res.members {
		if m == p {
			res.members = append(res.members[:i], res.members[i+1:]...)
			break
		}
	}
	if len(res.members) > 0 {
		log.Debug("Player left shared sound", "player", p.id, "url", res.url, "players", len(res.members))
		return
	}

	delete(e.resources, res.url)
	if res.loading {
		delete(e.loads, res.sound)
		if res.timer != nil {
			res.timer.Stop()
			res.timer = nil
		}
	}
	e.pool.Unload(res.sound)
	log.Debug("Sound unloaded", "url", res.url, "sound", res.sound)
}

// poolPlayer fields are guarded by e.mu.
type poolPlayer struct {
	id string
	e  *SoundPoolEngine
	flags

	res       *sharedResource
	stream    audio.StreamID
	hasStream bool
}

func (p *poolPlayer) ID() string {
	return p.id
}

func (p *poolPlayer) SetURL(_ context.Context, url string) error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	return p.setURLLocked(url)
}

func (p *poolPlayer) Play(_ context.Context, url string) error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if err := p.setURLLocked(url); err != nil {
		return err
	}
	return p.resumeLocked()
}

func (p *poolPlayer) setURLLocked(url string) error {
	if p.e.closed {
		return ErrEngineClosed
	}
	if p.url != "" && p.url == url {
		return nil
	}
	if p.res != nil {
		p.stopLocked()
		p.e.unbindLocked(p)
		p.url = ""
		p.loading = false
	}
	return p.e.bindLocked(p, url)
}

func (p *poolPlayer) Resume() error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.playing && p.hasStream {
		return nil
	}
	return p.resumeLocked()
}

func (p *poolPlayer) resumeLocked() error {
	if p.res == nil {
		return nil
	}
	if !p.loading {
		if err := p.startLocked(); err != nil {
			return err
		}
	}
	p.playing = true
	p.paused = false
	return nil
}

// startLocked resumes a paused stream or starts a new one.
func (p *poolPlayer) startLocked() error {
	if p.res == nil {
		return nil
	}
	if p.paused && p.hasStream {
		p.e.pool.Resume(p.stream)
		return nil
	}
	if p.hasStream {
		p.e.pool.Stop(p.stream)
		p.hasStream = false
	}

	stream, err := p.e.pool.Play(p.res.sound, p.volume, p.rate, p.looping())
	if err != nil {
		return fmt.Errorf("play %s: %w", p.url, err)
	}
	p.stream = stream
	p.hasStream = true
	return nil
}

func (p *poolPlayer) Pause() error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	if p.res == nil {
		return nil
	}
	if p.playing && p.hasStream {
		p.e.pool.Pause(p.stream)
	}
	p.playing = false
	p.paused = true
	return nil
}

func (p *poolPlayer) Stop() error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	p.stopLocked()
	return nil
}

func (p *poolPlayer) stopLocked() {
	if p.hasStream {
		p.e.pool.Stop(p.stream)
		p.hasStream = false
	}
	p.playing = false
	p.paused = false
}

func (p *poolPlayer) Release() error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	p.stopLocked()
	if p.res == nil && p.url == "" {
		return nil
	}
	p.e.unbindLocked(p)
	p.url = ""
	p.loading = false
	p.released = true
	return nil
}

// resetLocked returns the player to idle after its sound failed to load.
func (p *poolPlayer) resetLocked() {
	p.res = nil
	p.hasStream = false
	p.url = ""
	p.loading = false
	p.playing = false
	p.paused = false
}

func (p *poolPlayer) SetVolume(volume float64) error {
	if err := ValidateVolume(volume); err != nil {
		return err
	}

	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	p.volume = volume
	if p.hasStream {
		p.e.pool.SetVolume(p.stream, volume)
	}
	return nil
}

func (p *poolPlayer) SetRate(rate float64) error {
	if err := ValidateRate(rate); err != nil {
		return err
	}

	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	p.rate = rate
	if p.hasStream {
		p.e.pool.SetRate(p.stream, rate)
	}
	return nil
}

func (p *poolPlayer) SetReleaseMode(mode ReleaseMode) error {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	p.releaseMode = mode
	if p.hasStream {
		p.e.pool.SetLoop(p.stream, p.looping())
	}
	return nil
}

func (p *poolPlayer) State() State {
	p.e.mu.Lock()
	defer p.e.mu.Unlock()

	return p.snapshot(p.id)
}
