package audio

import (
	"sync"
	"sync/atomic"
)

// MockPool implements SoundPool without producing sound. Loads stay pending
// until CompleteLoad is called, unless AutoComplete is set.
type MockPool struct {
	// AutoComplete finishes every load from a new goroutine.
	AutoComplete bool
	// FailPaths makes auto-completed loads of these paths fail.
	FailPaths map[string]error

	mu         sync.Mutex
	nextSound  SoundID
	nextStream StreamID
	sounds     map[SoundID]*mockSound
	streams    map[StreamID]*MockStream
	onLoad     LoadCompleteFunc
	closed     bool

	// Metrics for testing
	loadCount   atomic.Int64
	unloadCount atomic.Int64
	playCount   atomic.Int64
}

type mockSound struct {
	path  string
	ready bool
}

// MockStream is a snapshot of a mock stream.
type MockStream struct {
	Sound   SoundID
	Paused  bool
	Stopped bool
	Volume  float64
	Rate    float64
	Loop    bool
}

// NewMockPool creates an empty mock pool.
func NewMockPool() *MockPool {
	return &MockPool{
		sounds:  make(map[SoundID]*mockSound),
		streams: make(map[StreamID]*MockStream),
	}
}

func (p *MockPool) SetOnLoadComplete(fn LoadCompleteFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onLoad = fn
}

func (p *MockPool) Load(path string) (SoundID, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, ErrPoolClosed
	}
	p.nextSound++
	id := p.nextSound
	p.sounds[id] = &mockSound{path: path}
	auto := p.AutoComplete
	failErr := p.FailPaths[path]
	p.mu.Unlock()

	p.loadCount.Add(1)

	if auto {
		go p.CompleteLoad(id, failErr)
	}
	return id, nil
}

// CompleteLoad finishes a pending load and invokes the listener from the
// calling goroutine.
func (p *MockPool) CompleteLoad(id SoundID, err error) {
	p.mu.Lock()
	s, ok := p.sounds[id]
	if ok && err == nil {
		s.ready = true
	}
	cb := p.onLoad
	p.mu.Unlock()

	if cb != nil {
		cb(id, err)
	}
}

// Path returns the path a sound was loaded from.
func (p *MockPool) Path(id SoundID) (string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sounds[id]
	if !ok {
		return "", false
	}
	return s.path, true
}

// Sounds lists the ids of every sound currently loaded or loading.
func (p *MockPool) Sounds() []SoundID {
	p.mu.Lock()
	defer p.mu.Unlock()

	ids := make([]SoundID, 0, len(p.sounds))
	for id := range p.sounds {
		ids = append(ids, id)
	}
	return ids
}

func (p *MockPool) Unload(id SoundID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.sounds[id]; !ok {
		return false
	}
	for _, st := range p.streams {
		if st.Sound == id {
			st.Stopped = true
		}
	}
	delete(p.sounds, id)
	p.unloadCount.Add(1)
	return true
}

func (p *MockPool) Play(id SoundID, volume, rate float64, loop bool) (StreamID, error) {
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

	p.nextStream++
	sid := p.nextStream
	p.streams[sid] = &MockStream{Sound: id, Volume: volume, Rate: rate, Loop: loop}
	p.playCount.Add(1)
	return sid, nil
}

func (p *MockPool) Pause(stream StreamID) {
	p.update(stream, func(st *MockStream) { st.Paused = true })
}

func (p *MockPool) Resume(stream StreamID) {
	p.update(stream, func(st *MockStream) { st.Paused = false })
}

func (p *MockPool) Stop(stream StreamID) {
	p.update(stream, func(st *MockStream) { st.Stopped = true })
}

func (p *MockPool) SetVolume(stream StreamID, volume float64) {
	p.update(stream, func(st *MockStream) { st.Volume = volume })
}

func (p *MockPool) SetRate(stream StreamID, rate float64) {
	p.update(stream, func(st *MockStream) { st.Rate = rate })
}

func (p *MockPool) SetLoop(stream StreamID, loop bool) {
	p.update(stream, func(st *MockStream) { st.Loop = loop })
}

func (p *MockPool) update(stream StreamID, fn func(*MockStream)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st, ok := p.streams[stream]; ok && !st.Stopped {
		fn(st)
	}
}

// Stream returns a snapshot of a stream.
func (p *MockPool) Stream(stream StreamID) (MockStream, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, ok := p.streams[stream]
	if !ok {
		return MockStream{}, false
	}
	return *st, true
}

// ActiveStreams counts streams that were not stopped.
func (p *MockPool) ActiveStreams() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	n := 0
	for _, st := range p.streams {
		if !st.Stopped {
			n++
		}
	}
	return n
}

func (p *MockPool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	for _, st := range p.streams {
		st.Stopped = true
	}
	return nil
}

// Closed reports whether Close was called.
func (p *MockPool) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// GetLoadCount returns the number of Load calls.
func (p *MockPool) GetLoadCount() int64 {
	return p.loadCount.Load()
}

// GetUnloadCount returns the number of successful Unload calls.
func (p *MockPool) GetUnloadCount() int64 {
	return p.unloadCount.Load()
}

// GetPlayCount returns the number of streams started.
func (p *MockPool) GetPlayCount() int64 {
	return p.playCount.Load()
}
