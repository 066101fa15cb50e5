// Package capture acquires the microphone through miniaudio and delivers
// raw float samples to the session's encoding path.
//
// Acquisition is fatal-on-failure: a missing device or denied permission
// surfaces as an error from Acquire and is never retried. Release is
// idempotent and is called on every session exit path.
package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/gen2brain/malgo"
)

// DefaultSampleRate is the capture rate requested from the device. Devices
// may not honor it; SampleRate() reports the rate actually granted.
const DefaultSampleRate = 48000

// capturePeriodFrames sizes the device period; small periods keep the
// mic-to-wire latency low.
const capturePeriodFrames = 480

// AdapterConfig configures an Adapter.
type AdapterConfig struct {
	// SampleRate is the requested capture rate. Defaults to DefaultSampleRate.
	SampleRate int

	// OnSamples receives each captured block as float32 samples in [-1, 1].
	// It runs on the capture thread and must not block. Required.
	OnSamples func(samples []float32)

	// Logger receives capture log messages. Optional.
	Logger *slog.Logger
}

// Adapter owns a miniaudio context and capture device for the life of a
// session.
type Adapter struct {
	logger *slog.Logger

	mu     sync.Mutex
	ctx    *malgo.AllocatedContext
	device *malgo.Device
	rate   int
}

// NewAdapter creates an idle Adapter. Acquire opens the device.
func NewAdapter(logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Adapter{logger: logger}
}

// Acquire initializes the audio context and opens the capture device at
// the requested rate, then starts capturing. The context parameter bounds
// nothing today; it is accepted for symmetry with the other acquisition
// paths and future cancellation support.
func (a *Adapter) Acquire(_ context.Context, cfg AdapterConfig) error {
	if cfg.OnSamples == nil {
		return fmt.Errorf("capture config requires OnSamples")
	}
	rate := cfg.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.device != nil {
		return fmt.Errorf("capture device already acquired")
	}

	mctx, err := malgo.InitContext(nil, malgo.ContextConfig{}, func(string) {})
	if err != nil {
		return fmt.Errorf("failed to initialize audio context: %w", err)
	}

	devCfg := malgo.DefaultDeviceConfig(malgo.Capture)
	devCfg.SampleRate = uint32(rate) //nolint:gosec // audio rates are small positive values
	devCfg.Capture.Format = malgo.FormatF32
	devCfg.Capture.Channels = 1
	devCfg.Alsa.NoMMap = 1
	devCfg.PerformanceProfile = malgo.LowLatency
	devCfg.PeriodSizeInFrames = capturePeriodFrames
	devCfg.Periods = 3

	onSamples := cfg.OnSamples
	device, err := malgo.InitDevice(mctx.Context, devCfg, malgo.DeviceCallbacks{
		Data: func(_, pInput []byte, frameCount uint32) {
			samples := decodeF32(pInput, int(frameCount))
			if len(samples) > 0 {
				onSamples(samples)
			}
		},
	})
	if err != nil {
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to initialize capture device: %w", err)
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = mctx.Uninit()
		mctx.Free()
		return fmt.Errorf("failed to start capture device: %w", err)
	}

	a.ctx = mctx
	a.device = device
	a.rate = int(device.SampleRate())

	a.logger.Info("capture device acquired",
		"requestedRate", rate, "deviceRate", a.rate)

	return nil
}

// SampleRate returns the rate the device actually captures at, or 0 when
// no device is acquired. The resampler must use this, not the requested
// rate.
func (a *Adapter) SampleRate() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.rate
}

// Acquired reports whether a capture device is currently held.
func (a *Adapter) Acquired() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.device != nil
}

// Release stops the device and tears down the context. Safe to call
// multiple times and on a never-acquired adapter.
func (a *Adapter) Release() {
	a.mu.Lock()
	device := a.device
	mctx := a.ctx
	a.device = nil
	a.ctx = nil
	a.rate = 0
	a.mu.Unlock()

	// Uninit blocks until the data callback returns, so it must not run
	// while holding a.mu.
	if device != nil {
		device.Uninit()
	}
	if mctx != nil {
		_ = mctx.Uninit()
		mctx.Free()
	}

	if device != nil {
		a.logger.Info("capture device released")
	}
}

// decodeF32 reinterprets a miniaudio F32 frame buffer as float32 samples.
func decodeF32(data []byte, frameCount int) []float32 {
	const bytesPerSample = 4
	n := frameCount
	if limit := len(data) / bytesPerSample; n > limit {
		n = limit
	}
	if n <= 0 {
		return nil
	}

	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := uint32(data[i*bytesPerSample]) |
			uint32(data[i*bytesPerSample+1])<<8 |
			uint32(data[i*bytesPerSample+2])<<16 |
			uint32(data[i*bytesPerSample+3])<<24
		samples[i] = math.Float32frombits(bits)
	}
	return samples
}
