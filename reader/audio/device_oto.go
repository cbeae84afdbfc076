//go:build !nocgo

package audio

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

// oto allows a single context per process.
var (
	otoOnce   sync.Once
	otoDevice *OtoDevice
	otoErr    error
)

// OtoDevice is the sound card reached through oto.
type OtoDevice struct {
	ctx        *oto.Context
	sampleRate int
}

// OpenDevice opens the sound card. Later calls return the first device
// regardless of their arguments.
func OpenDevice(sampleRate int, buffer time.Duration) (Device, error) {
	otoOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   sampleRate,
			ChannelCount: Channels,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   buffer,
		})
		if err != nil {
			otoErr = fmt.Errorf("%w: %w", ErrNoDevice, err)
			return
		}
		<-ready
		otoDevice = &OtoDevice{ctx: ctx, sampleRate: sampleRate}
	})
	if otoErr != nil {
		return nil, otoErr
	}
	return otoDevice, nil
}

// SampleRate returns the output sample rate.
func (d *OtoDevice) SampleRate() int { return d.sampleRate }

// NewSink creates an oto player reading from r.
func (d *OtoDevice) NewSink(r io.Reader) Sink {
	return d.ctx.NewPlayer(r)
}
