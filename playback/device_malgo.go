package playback

import (
	"fmt"
	"sync"

	"github.com/gen2brain/malgo"
)

// MalgoDevice renders scheduled entries through a miniaudio playback
// device. The render callback drains entries in order and zero-fills the
// output when starved, so underruns produce silence rather than noise.
//
// A sample-rate change is a full device recreation; miniaudio devices are
// fixed-rate once initialized.
type MalgoDevice struct {
	ctx     *malgo.AllocatedContext
	ownsCtx bool

	mu      sync.Mutex
	device  *malgo.Device
	rate    int
	pending []*pendingEntry
}

// pendingEntry tracks the render offset into a scheduled entry.
type pendingEntry struct {
	entry *Entry
	off   int
}

// NewMalgoDevice creates a playback device on its own miniaudio context.
func NewMalgoDevice() (*MalgoDevice, error) {
	ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}
	return &MalgoDevice{ctx: ctx, ownsCtx: true}, nil
}

// NewMalgoDeviceWithContext creates a playback device on a shared miniaudio
// context. The caller retains ownership of the context.
func NewMalgoDeviceWithContext(ctx *malgo.AllocatedContext) *MalgoDevice {
	return &MalgoDevice{ctx: ctx}
}

// Start configures the output stream at the given rate, recreating the
// underlying device when the rate changes. Entries scheduled on the old
// stream are dropped. After Close, Start reacquires an owned context so
// the device survives session teardown and restart.
func (d *MalgoDevice) Start(sampleRate int) error {
	d.mu.Lock()
	if d.device != nil && d.rate == sampleRate {
		d.mu.Unlock()
		return nil
	}
	old := d.device
	d.device = nil
	d.pending = nil
	d.mu.Unlock()

	if d.ctx == nil {
		if !d.ownsCtx {
			return fmt.Errorf("audio context has been released")
		}
		ctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
		if err != nil {
			return fmt.Errorf("failed to initialize audio context: %w", err)
		}
		d.ctx = ctx
	}

	// Uninit blocks until the render callback returns, so it must not run
	// while holding d.mu.
	if old != nil {
		old.Uninit()
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.SampleRate = uint32(sampleRate) //nolint:gosec // audio rates are small positive values
	cfg.Playback.Format = malgo.FormatS16
	cfg.Playback.Channels = 1
	cfg.Alsa.NoMMap = 1
	cfg.PeriodSizeInFrames = uint32(sampleRate / 10) //nolint:gosec // ~100ms of audio
	cfg.Periods = 4

	dev, err := malgo.InitDevice(d.ctx.Context, cfg, malgo.DeviceCallbacks{Data: d.render})
	if err != nil {
		return fmt.Errorf("failed to initialize playback device: %w", err)
	}
	if err := dev.Start(); err != nil {
		dev.Uninit()
		return fmt.Errorf("failed to start playback device: %w", err)
	}

	d.mu.Lock()
	d.device = dev
	d.rate = sampleRate
	d.mu.Unlock()

	return nil
}

// Play appends an entry to the render queue.
func (d *MalgoDevice) Play(e *Entry) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.device == nil {
		return
	}
	d.pending = append(d.pending, &pendingEntry{entry: e})
}

// StopAll drops every scheduled entry immediately. OnDone is not fired for
// dropped entries.
func (d *MalgoDevice) StopAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = nil
}

// Close releases the output stream and, when owned, the miniaudio context.
func (d *MalgoDevice) Close() error {
	d.mu.Lock()
	dev := d.device
	d.device = nil
	d.pending = nil
	d.mu.Unlock()

	if dev != nil {
		dev.Uninit()
	}

	if d.ownsCtx && d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx.Free()
		d.ctx = nil
	}

	return nil
}

// render is the miniaudio data callback. It copies scheduled bytes into
// the output buffer in FIFO order and fires OnDone for entries it
// exhausts. Completion is delivered on a fresh goroutine so the audio
// thread never blocks on scheduler locks.
func (d *MalgoDevice) render(pOutput, _ []byte, _ uint32) {
	var done []*Entry

	d.mu.Lock()
	off := 0
	for off < len(pOutput) && len(d.pending) > 0 {
		pe := d.pending[0]
		n := copy(pOutput[off:], pe.entry.PCM[pe.off:])
		off += n
		pe.off += n
		if pe.off >= len(pe.entry.PCM) {
			d.pending = d.pending[1:]
			if pe.entry.OnDone != nil {
				done = append(done, pe.entry)
			}
		}
	}
	d.mu.Unlock()

	// Zero-fill when starved
	for i := off; i < len(pOutput); i++ {
		pOutput[i] = 0
	}

	for _, e := range done {
		go e.OnDone()
	}
}
