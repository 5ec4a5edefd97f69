package decode

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	gomp3 "github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
)

// Common decode errors.
var (
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrEmptyAudio        = errors.New("audio source contains no samples")
	ErrInvalidFormat     = errors.New("invalid output format")
)

const fileScheme = "file://"

// Kind identifies a container/codec pair.
type Kind int

const (
	KindUnknown Kind = iota
	KindWAV
	KindMP3
	KindVorbis
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindWAV:
		return "wav"
	case KindMP3:
		return "mp3"
	case KindVorbis:
		return "ogg vorbis"
	default:
		return "unknown"
	}
}

// Format describes the PCM layout produced by the decoder.
type Format struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the size of one interleaved frame in bytes.
func (f Format) BytesPerFrame() int {
	return f.Channels * 2
}

// Validate checks that the format can be produced.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("%w: %d channels", ErrInvalidFormat, f.Channels)
	}
	return nil
}

// Path resolves a player URL to a local filesystem path. A leading file://
// scheme is stripped; anything else is returned unchanged.
func Path(url string) string {
	return strings.TrimPrefix(url, fileScheme)
}

// Detect guesses the kind of a file from its extension.
func Detect(path string) Kind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return KindWAV
	case ".mp3":
		return KindMP3
	case ".ogg", ".oga":
		return KindVorbis
	default:
		return KindUnknown
	}
}

// sniff inspects the leading bytes of a stream.
func sniff(header []byte) Kind {
	switch {
	case len(header) >= 12 && bytes.Equal(header[:4], []byte("RIFF")) && bytes.Equal(header[8:12], []byte("WAVE")):
		return KindWAV
	case len(header) >= 4 && bytes.Equal(header[:4], []byte("OggS")):
		return KindVorbis
	case len(header) >= 3 && bytes.Equal(header[:3], []byte("ID3")):
		return KindMP3
	case len(header) >= 2 && header[0] == 0xFF && header[1]&0xE0 == 0xE0:
		return KindMP3
	default:
		return KindUnknown
	}
}

// File decodes the file at path into PCM with the given format.
func File(path string, out Format) ([]byte, error) {
	if err := out.Validate(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}

	kind := Detect(path)
	if kind == KindUnknown {
		kind = sniff(data)
	}

	return Bytes(data, kind, out)
}

// Bytes decodes an in-memory encoded source. When kind is KindUnknown the
// format is sniffed from the data.
func Bytes(data []byte, kind Kind, out Format) ([]byte, error) {
	if err := out.Validate(); err != nil {
		return nil, err
	}
	if kind == KindUnknown {
		kind = sniff(data)
	}

	var (
		src pcm
		err error
	)
	switch kind {
	case KindWAV:
		src, err = decodeWAV(bytes.NewReader(data))
	case KindMP3:
		src, err = decodeMP3(bytes.NewReader(data))
	case KindVorbis:
		src, err = decodeVorbis(bytes.NewReader(data))
	default:
		return nil, ErrUnsupportedFormat
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", kind, err)
	}
	if len(src.samples) == 0 {
		return nil, ErrEmptyAudio
	}

	return src.convert(out)
}

func decodeWAV(r io.ReadSeeker) (pcm, error) {
	d := wav.NewDecoder(r)
	if !d.IsValidFile() {
		return pcm{}, errors.New("not a valid wav file")
	}

	buf, err := d.FullPCMBuffer()
	if err != nil {
		return pcm{}, err
	}
	if buf.Format == nil || buf.Format.NumChannels == 0 {
		return pcm{}, errors.New("wav file has no format chunk")
	}

	depth := int(d.BitDepth)
	if depth == 0 {
		depth = buf.SourceBitDepth
	}
	if depth <= 0 || depth > 32 {
		depth = 16
	}
	scale := float32(int64(1) << (depth - 1))

	// 8-bit wav samples are unsigned around a midpoint of 128.
	var offset float32
	if depth == 8 {
		offset = 128
	}

	samples := make([]float32, len(buf.Data))
	for i, v := range buf.Data {
		samples[i] = (float32(v) - offset) / scale
	}

	return pcm{samples: samples, sampleRate: buf.Format.SampleRate, channels: buf.Format.NumChannels}, nil
}

func decodeMP3(r io.Reader) (pcm, error) {
	d, err := gomp3.NewDecoder(r)
	if err != nil {
		return pcm{}, err
	}

	// go-mp3 always yields 16-bit little-endian stereo.
	raw, err := io.ReadAll(bufio.NewReader(d))
	if err != nil {
		return pcm{}, err
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(uint16(raw[2*i]) | uint16(raw[2*i+1])<<8)
		samples[i] = float32(v) / 32768.0
	}

	return pcm{samples: samples, sampleRate: d.SampleRate(), channels: 2}, nil
}

func decodeVorbis(r io.Reader) (pcm, error) {
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return pcm{}, err
	}
	return pcm{samples: samples, sampleRate: format.SampleRate, channels: format.Channels}, nil
}
