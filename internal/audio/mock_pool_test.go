package audio

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMockPoolLoadLifecycle(t *testing.T) {
	p := NewMockPool()

	type completion struct {
		id  SoundID
		err error
	}
	done := make(chan completion, 1)
	p.SetOnLoadComplete(func(id SoundID, err error) {
		done <- completion{id, err}
	})

	id, err := p.Load("/tmp/a.wav")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := p.Play(id, 1, 1, false); !errors.Is(err, ErrSoundNotLoaded) {
		t.Fatalf("Play() before load complete error = %v, want ErrSoundNotLoaded", err)
	}

	p.CompleteLoad(id, nil)
	c := <-done
	if c.id != id || c.err != nil {
		t.Fatalf("completion = %+v, want id %d and nil error", c, id)
	}

	stream, err := p.Play(id, 0.5, 1.5, true)
	if err != nil {
		t.Fatalf("Play() error = %v", err)
	}

	p.Pause(stream)
	p.SetVolume(stream, 0.2)
	st, ok := p.Stream(stream)
	if !ok || !st.Paused || st.Volume != 0.2 || st.Rate != 1.5 || !st.Loop {
		t.Errorf("Stream() = %+v, %v", st, ok)
	}

	p.Resume(stream)
	if st, _ := p.Stream(stream); st.Paused {
		t.Error("stream still paused after Resume")
	}

	if !p.Unload(id) {
		t.Fatal("Unload() = false, want true")
	}
	if p.Unload(id) {
		t.Error("second Unload() = true, want false")
	}
	if st, _ := p.Stream(stream); !st.Stopped {
		t.Error("stream not stopped by Unload")
	}
	if n := p.ActiveStreams(); n != 0 {
		t.Errorf("ActiveStreams() = %d, want 0", n)
	}
}

func TestMockPoolAutoComplete(t *testing.T) {
	p := NewMockPool()
	p.AutoComplete = true
	p.FailPaths = map[string]error{"/bad.wav": errors.New("corrupt")}

	results := make(chan error, 2)
	p.SetOnLoadComplete(func(_ SoundID, err error) { results <- err })

	if _, err := p.Load("/good.wav"); err != nil {
		t.Fatal(err)
	}
	if _, err := p.Load("/bad.wav"); err != nil {
		t.Fatal(err)
	}

	var failures int
	for i := 0; i < 2; i++ {
		select {
		case err := <-results:
			if err != nil {
				failures++
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for load completion")
		}
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
	if got := p.GetLoadCount(); got != 2 {
		t.Errorf("GetLoadCount() = %d, want 2", got)
	}
}

func TestMockPoolClosed(t *testing.T) {
	p := NewMockPool()
	_ = p.Close()

	if _, err := p.Load("/a.wav"); !errors.Is(err, ErrPoolClosed) {
		t.Errorf("Load() after Close error = %v, want ErrPoolClosed", err)
	}
	if !p.Closed() {
		t.Error("Closed() = false")
	}
}

func TestMockTrackOpener(t *testing.T) {
	o := NewMockTrackOpener()
	o.FailPaths = map[string]error{"/missing.mp3": errors.New("not found")}

	if _, err := o.Open(context.Background(), "/missing.mp3"); err == nil {
		t.Error("Open() of failing path expected error")
	}

	tr, err := o.Open(context.Background(), "/song.mp3")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if tr.Source() != "/song.mp3" {
		t.Errorf("Source() = %q", tr.Source())
	}

	mt := o.Tracks()[0]
	tr.Play()
	if !mt.IsPlaying() {
		t.Error("track not playing after Play")
	}
	tr.Pause()
	if mt.IsPlaying() || !mt.IsPaused() {
		t.Error("track not paused after Pause")
	}
	tr.Stop()
	if mt.IsPaused() || mt.GetStopCount() != 1 {
		t.Error("track not stopped after Stop")
	}
	_ = tr.Close()
	tr.Play()
	if mt.IsPlaying() {
		t.Error("closed track started playing")
	}
	if got := o.GetOpenCount(); got != 2 {
		t.Errorf("GetOpenCount() = %d, want 2", got)
	}
}

func TestMockTrackOpenerRespectsContext(t *testing.T) {
	o := NewMockTrackOpener()
	o.OpenDelay = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := o.Open(ctx, "/slow.mp3"); !errors.Is(err, context.Canceled) {
		t.Errorf("Open() error = %v, want context.Canceled", err)
	}
}
