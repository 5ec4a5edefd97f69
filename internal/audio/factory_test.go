package audio

import "testing"

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{in: "", want: BackendAuto},
		{in: "auto", want: BackendAuto},
		{in: " OTO ", want: BackendOto},
		{in: "mpv", want: BackendMpv},
		{in: "mock", want: BackendMock},
		{in: "alsa", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseBackend(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseBackend(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOptionsFormatDefaults(t *testing.T) {
	f := Options{}.Format()
	if f.SampleRate != 44100 || f.Channels != 2 {
		t.Errorf("Format() = %+v, want 44100 Hz stereo", f)
	}

	f = Options{SampleRate: 48000, Channels: 1}.Format()
	if f.SampleRate != 48000 || f.Channels != 1 {
		t.Errorf("Format() = %+v, want 48000 Hz mono", f)
	}
}

func TestNewMockBackends(t *testing.T) {
	pool, backend, err := NewSoundPool(Options{Backend: BackendMock})
	if err != nil || backend != BackendMock {
		t.Fatalf("NewSoundPool(mock) = %v, %v", backend, err)
	}
	if mp, ok := pool.(*MockPool); !ok || !mp.AutoComplete {
		t.Error("mock sound pool should auto-complete loads")
	}

	opener, backend, err := NewTrackOpener(Options{Backend: BackendMock})
	if err != nil || backend != BackendMock {
		t.Fatalf("NewTrackOpener(mock) = %v, %v", backend, err)
	}
	if _, ok := opener.(*MockTrackOpener); !ok {
		t.Errorf("NewTrackOpener(mock) = %T", opener)
	}
}

func TestNewSoundPoolRejectsMpv(t *testing.T) {
	if _, _, err := NewSoundPool(Options{Backend: BackendMpv}); err == nil {
		t.Error("NewSoundPool(mpv) expected error")
	}
}
