//go:build !nocgo
// +build !nocgo

package audio

import (
	"sort"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// OtoPool implements SoundPool on top of an oto context. Samples are decoded
// fully into memory; each stream is an oto player over a private reader of
// the shared sample data.
type OtoPool struct {
	ctx        *oto.Context
	loader     *Loader
	maxStreams int

	mu         sync.Mutex
	nextSound  SoundID
	nextStream StreamID
	sounds     map[SoundID]*otoSound
	streams    map[StreamID]*otoStream
	onLoad     LoadCompleteFunc
	closed     bool

	loading sync.WaitGroup
}

type otoSound struct {
	path  string
	data  []byte
	ready bool
}

type otoStream struct {
	sound  SoundID
	player *oto.Player
	reader *sampleReader
}

// NewOtoPool creates a sound pool on the shared oto context.
func NewOtoPool(opts Options) (*OtoPool, error) {
	format := opts.Format()
	ctx, err := sharedOtoContext(format, opts.BufferSize)
	if err != nil {
		return nil, err
	}

	maxStreams := opts.MaxStreams
	if maxStreams <= 0 {
		maxStreams = DefaultMaxStreams
	}

	return &OtoPool{
		ctx:        ctx,
		loader:     NewLoader(format, opts.Cache),
		maxStreams: maxStreams,
		sounds:     make(map[SoundID]*otoSound),
		streams:    make(map[StreamID]*otoStream),
	}, nil
}

// SetOnLoadComplete registers the load-complete listener.
func (p *OtoPool) SetOnLoadComplete(fn LoadCompleteFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLoad = fn
}

// Load decodes the sample in the background.
func (p *OtoPool) Load(path string) (SoundID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPoolClosed
	}

	p.nextSound++
	id := p.nextSound
	p.sounds[id] = &otoSound{path: path}

	p.loading.Add(1)
	go p.load(id, path)

	return id, nil
}

func (p *OtoPool) load(id SoundID, path string) {
	defer p.loading.Done()

	data, err := p.loader.Load(path)

	p.mu.Lock()
	if s, ok := p.sounds[id]; ok && err == nil {
		s.data = data
		s.ready = true
	}
	cb := p.onLoad
	closed := p.closed
	p.mu.Unlock()

	if cb != nil && !closed {
		cb(id, err)
	}
}

// Unload frees a sample and stops its streams.
func (p *OtoPool) Unload(id SoundID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sounds[id]; !ok {
		return false
	}
	for sid, st := range p.streams {
		if st.sound == id {
			p.stopLocked(sid)
		}
	}
	delete(p.sounds, id)
	return true
}

// Play starts a new stream. The oldest stream is stopped when the pool is
// at its stream limit.
func (p *OtoPool) Play(id SoundID, volume, rate float64, loop bool) (StreamID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return 0, ErrPoolClosed
	}

	s, ok := p.sounds[id]
	if !ok {
		return 0, ErrUnknownSound
	}
	if !s.ready {
		return 0, ErrSoundNotLoaded
	}

	for len(p.streams) >= p.maxStreams {
		p.stopLocked(p.oldestStreamLocked())
	}

	reader := newSampleReader(s.data, p.loader.Format().BytesPerFrame(), rate, loop)
	player := p.ctx.NewPlayer(reader)
	player.SetVolume(volume)
	player.Play()

	p.nextStream++
	sid := p.nextStream
	p.streams[sid] = &otoStream{sound: id, player: player, reader: reader}

	return sid, nil
}

func (p *OtoPool) Pause(stream StreamID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.streams[stream]; ok {
		st.player.Pause()
	}
}

func (p *OtoPool) Resume(stream StreamID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.streams[stream]; ok {
		st.player.Play()
	}
}

func (p *OtoPool) Stop(stream StreamID) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked(stream)
}

func (p *OtoPool) SetVolume(stream StreamID, volume float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.streams[stream]; ok {
		st.player.SetVolume(volume)
	}
}

func (p *OtoPool) SetRate(stream StreamID, rate float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.streams[stream]; ok {
		st.reader.SetRate(rate)
	}
}

func (p *OtoPool) SetLoop(stream StreamID, loop bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.streams[stream]; ok {
		st.reader.SetLoop(loop)
	}
}

// Close stops every stream and waits for in-flight loads.
func (p *OtoPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for sid := range p.streams {
		p.stopLocked(sid)
	}
	p.sounds = make(map[SoundID]*otoSound)
	p.mu.Unlock()

	p.loading.Wait()
	log.Debug("Oto sound pool closed")
	return nil
}

// stopLocked must be called with p.mu held.
func (p *OtoPool) stopLocked(stream StreamID) {
	st, ok := p.streams[stream]
	if !ok {
		return
	}
	st.player.Pause()
	_ = st.player.Close()
	delete(p.streams, stream)
}

func (p *OtoPool) oldestStreamLocked() StreamID {
	ids := make([]StreamID, 0, len(p.streams))
	for sid := range p.streams {
		ids = append(ids, sid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids[0]
}
