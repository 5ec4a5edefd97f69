package player

import (
	"context"
	"testing"
	"time"

	"github.com/audioplayers/audioplayers/internal/audio"
)

// eventually polls cond until it holds or a deadline passes.
func eventually(t *testing.T, cond func() bool, format string, args ...any) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met: "+format, args...)
}

func newTestSoundPool(t *testing.T, opts SoundPoolOptions) (*SoundPoolEngine, *audio.MockPool, *Registry) {
	t.Helper()

	pool := audio.NewMockPool()
	engine := NewSoundPoolEngine(pool, opts)
	reg := NewRegistry(engine)
	t.Cleanup(func() { _ = reg.Close() })
	return engine, pool, reg
}

func mustPlayer(t *testing.T, reg *Registry, id string) Player {
	t.Helper()

	p, err := reg.GetOrCreate(id)
	if err != nil {
		t.Fatalf("GetOrCreate(%q) error = %v", id, err)
	}
	return p
}

// soundFor finds the pool sound loaded from path.
func soundFor(t *testing.T, pool *audio.MockPool, path string) audio.SoundID {
	t.Helper()

	for _, id := range pool.Sounds() {
		if p, _ := pool.Path(id); p == path {
			return id
		}
	}
	t.Fatalf("no sound loaded for %s", path)
	return 0
}

// streamOf returns the native stream of a sound-pool player.
func streamOf(p Player) (audio.StreamID, bool) {
	pp := p.(*poolPlayer)
	pp.e.mu.Lock()
	defer pp.e.mu.Unlock()
	return pp.stream, pp.hasStream
}

// loadAndWait completes the load of path and waits until p is ready.
func loadAndWait(t *testing.T, pool *audio.MockPool, p Player, path string) {
	t.Helper()

	pool.CompleteLoad(soundFor(t, pool, path), nil)
	eventually(t, func() bool { return !p.State().Loading }, "player %s still loading", p.ID())
}

var bg = context.Background()
