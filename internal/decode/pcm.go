package decode

import (
	"fmt"
	"io"

	pbx "github.com/ik5/audpbx/audio"
	"github.com/ik5/audpbx/utils"
)

// readChunk is the number of frames pulled through the conversion pipeline
// per read.
const readChunk = 4096

// pcm is a decoded stream of interleaved float32 samples in [-1, 1]. It
// implements the audpbx Source interface so it can feed the mixer and
// resampler directly.
type pcm struct {
	samples    []float32
	sampleRate int
	channels   int
	pos        int
}

func (p *pcm) SampleRate() int { return p.sampleRate }
func (p *pcm) Channels() int   { return p.channels }
func (p *pcm) BufSize() int    { return readChunk * p.channels }
func (p *pcm) Close() error    { return nil }

func (p *pcm) ReadSamples(dst []float32) (int, error) {
	if p.pos >= len(p.samples) {
		return 0, io.EOF
	}
	n := copy(dst, p.samples[p.pos:])
	p.pos += n
	return n, nil
}

func (p *pcm) frames() int {
	if p.channels == 0 {
		return 0
	}
	return len(p.samples) / p.channels
}

// convert mixes down to mono when asked, resamples when the rates differ,
// then maps the remaining channels onto out and encodes to int16 LE.
func (p *pcm) convert(out Format) ([]byte, error) {
	if p.frames() == 0 {
		return nil, nil
	}
	p.samples = p.samples[:p.frames()*p.channels]
	p.pos = 0

	var src pbx.Source = p
	if out.Channels == 1 && p.channels > 1 {
		src = pbx.NewMonoMixer(src)
	}
	if p.sampleRate != out.SampleRate {
		src = pbx.NewResampler(src, out.SampleRate)
	}

	samples, err := drain(src)
	if err != nil {
		return nil, fmt.Errorf("failed to convert samples: %w", err)
	}

	return encode(samples, src.Channels(), out.Channels), nil
}

func drain(src pbx.Source) ([]float32, error) {
	var (
		all []float32
		buf = make([]float32, readChunk*src.Channels())
	)
	for {
		n, err := src.ReadSamples(buf)
		all = append(all, buf[:n]...)
		if err == io.EOF {
			return all, nil
		}
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return all, nil
		}
	}
}

// encode writes interleaved int16 LE frames with outChannels channels.
// Mono input is duplicated onto both stereo channels; inputs with more
// channels than the output keep the leading ones.
func encode(samples []float32, inChannels, outChannels int) []byte {
	frames := len(samples) / inChannels
	buf := make([]byte, 0, frames*outChannels*2)

	for i := 0; i < frames; i++ {
		base := i * inChannels
		for ch := 0; ch < outChannels; ch++ {
			v := utils.Float32ToInt16(samples[base+min(ch, inChannels-1)])
			buf = append(buf, byte(v), byte(v>>8))
		}
	}
	return buf
}
