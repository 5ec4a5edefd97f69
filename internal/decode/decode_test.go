package decode

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/ik5/audpbx/utils"
)

// writeTestWAV writes a 16-bit PCM wav file with a square wave.
func writeTestWAV(t *testing.T, sampleRate, channels, frames int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}
	defer f.Close()

	data := make([]int, frames*channels)
	for i := range data {
		if (i/channels)%2 == 0 {
			data[i] = 16000
		} else {
			data[i] = -16000
		}
	}

	enc := wav.NewEncoder(f, sampleRate, 16, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: 16,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
	return path
}

func TestPath(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"file:///tmp/x.mp3", "/tmp/x.mp3"},
		{"/tmp/x.mp3", "/tmp/x.mp3"},
		{"file://relative.wav", "relative.wav"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := Path(tt.url); got != tt.want {
			t.Errorf("Path(%q) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := map[string]Kind{
		"a.wav":      KindWAV,
		"a.WAV":      KindWAV,
		"b.mp3":      KindMP3,
		"c.ogg":      KindVorbis,
		"d.flac":     KindUnknown,
		"no-ext":     KindUnknown,
		"/x/y/z.oga": KindVorbis,
	}

	for path, want := range tests {
		if got := Detect(path); got != want {
			t.Errorf("Detect(%q) = %v, want %v", path, got, want)
		}
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   Kind
	}{
		{"wav", []byte("RIFF\x00\x00\x00\x00WAVEfmt "), KindWAV},
		{"ogg", []byte("OggS\x00\x02"), KindVorbis},
		{"id3", []byte("ID3\x04"), KindMP3},
		{"mpeg frame", []byte{0xFF, 0xFB, 0x90, 0x00}, KindMP3},
		{"garbage", []byte("hello"), KindUnknown},
		{"empty", nil, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sniff(tt.header); got != tt.want {
				t.Errorf("sniff() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name      string
		format    Format
		expectErr bool
	}{
		{"mono 44100", Format{SampleRate: 44100, Channels: 1}, false},
		{"stereo 48000", Format{SampleRate: 48000, Channels: 2}, false},
		{"zero rate", Format{SampleRate: 0, Channels: 2}, true},
		{"surround", Format{SampleRate: 44100, Channels: 6}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.format.Validate()
			if tt.expectErr && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.expectErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestFileWAV(t *testing.T) {
	path := writeTestWAV(t, 22050, 1, 100)

	out := Format{SampleRate: 44100, Channels: 2}
	data, err := File(path, out)
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}

	// 100 mono frames at 22050 Hz become about 200 stereo frames at 44100 Hz;
	// the cubic resampler consumes a few edge frames.
	if len(data)%out.BytesPerFrame() != 0 {
		t.Fatalf("decoded size %d is not a whole number of frames", len(data))
	}
	if frames := len(data) / out.BytesPerFrame(); frames < 180 || frames > 202 {
		t.Fatalf("decoded frames = %d, want about 200", frames)
	}

	for i := 0; i < len(data); i += out.BytesPerFrame() {
		left := int16(uint16(data[i]) | uint16(data[i+1])<<8)
		right := int16(uint16(data[i+2]) | uint16(data[i+3])<<8)
		if left != right {
			t.Fatalf("frame %d: mono source not duplicated: left %d right %d", i/out.BytesPerFrame(), left, right)
		}
	}
}

func TestFileSameFormat(t *testing.T) {
	path := writeTestWAV(t, 44100, 2, 50)

	out := Format{SampleRate: 44100, Channels: 2}
	data, err := File(path, out)
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if want := 50 * out.BytesPerFrame(); len(data) != want {
		t.Errorf("decoded size = %d, want %d", len(data), want)
	}
}

func TestBytesUnsupported(t *testing.T) {
	_, err := Bytes([]byte("definitely not audio"), KindUnknown, Format{SampleRate: 44100, Channels: 2})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.wav"), Format{SampleRate: 44100, Channels: 1})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestConvertDownmix(t *testing.T) {
	src := &pcm{
		samples:    []float32{0.5, -0.5, 1, 0},
		sampleRate: 44100,
		channels:   2,
	}

	data, err := src.convert(Format{SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatalf("convert() error: %v", err)
	}
	if len(data) != 4 {
		t.Fatalf("converted size = %d, want 4", len(data))
	}

	first := int16(uint16(data[0]) | uint16(data[1])<<8)
	if first != 0 {
		t.Errorf("downmix of +0.5/-0.5 = %d, want 0", first)
	}
	second := int16(uint16(data[2]) | uint16(data[3])<<8)
	if want := utils.Float32ToInt16(0.5); second != want {
		t.Errorf("downmix of 1/0 = %d, want %d", second, want)
	}
}

func TestFileWAV8BitSilence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "silence8.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create wav: %v", err)
	}

	data := make([]int, 100)
	for i := range data {
		data[i] = 128
	}
	enc := wav.NewEncoder(f, 44100, 8, 1, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 44100},
		Data:           data,
		SourceBitDepth: 8,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	if err := enc.Close(); err != nil {
		t.Fatalf("close wav encoder: %v", err)
	}
	_ = f.Close()

	out, err := File(path, Format{SampleRate: 44100, Channels: 1})
	if err != nil {
		t.Fatalf("File() error: %v", err)
	}
	if len(out) != 200 {
		t.Fatalf("decoded size = %d, want 200", len(out))
	}
	for i := 0; i < len(out); i += 2 {
		if v := int16(uint16(out[i]) | uint16(out[i+1])<<8); v != 0 {
			t.Fatalf("sample %d = %d, want 0 for 8-bit midpoint", i/2, v)
		}
	}
}

func TestConvertStereoFromSurround(t *testing.T) {
	src := &pcm{
		samples:    []float32{0.25, -0.25, 1, 1, 0.5, -0.5, 1, 1},
		sampleRate: 48000,
		channels:   4,
	}

	data, err := src.convert(Format{SampleRate: 48000, Channels: 2})
	if err != nil {
		t.Fatalf("convert() error: %v", err)
	}
	if len(data) != 8 {
		t.Fatalf("converted size = %d, want 8", len(data))
	}
	if got := int16(uint16(data[2]) | uint16(data[3])<<8); got != utils.Float32ToInt16(-0.25) {
		t.Errorf("right channel = %d, want leading source channel %d", got, utils.Float32ToInt16(-0.25))
	}
}
