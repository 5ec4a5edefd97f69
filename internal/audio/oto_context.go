//go:build !nocgo
// +build !nocgo

package audio

import (
	"fmt"
	"sync"
	"time"

	"github.com/audioplayers/audioplayers/internal/decode"
	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process; every oto pool and track shares it.
var (
	otoCtx     *oto.Context
	otoFormat  decode.Format
	otoCtxErr  error
	otoCtxOnce sync.Once
)

func sharedOtoContext(format decode.Format, bufferSize time.Duration) (*oto.Context, error) {
	otoCtxOnce.Do(func() {
		op := &oto.NewContextOptions{
			SampleRate:   format.SampleRate,
			ChannelCount: format.Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   bufferSize,
		}

		log.Debug("Initializing oto context",
			"sample_rate", op.SampleRate,
			"channels", op.ChannelCount,
			"buffer_size", op.BufferSize)

		ctx, ready, err := oto.NewContext(op)
		if err != nil {
			otoCtxErr = fmt.Errorf("failed to create oto context: %w", err)
			return
		}
		<-ready

		otoCtx = ctx
		otoFormat = format
	})

	if otoCtxErr != nil {
		return nil, otoCtxErr
	}
	if otoFormat != format {
		return nil, fmt.Errorf("oto context already created for %d Hz/%d ch", otoFormat.SampleRate, otoFormat.Channels)
	}
	return otoCtx, nil
}
