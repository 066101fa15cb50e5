// Package video paces screen or camera frames onto the session's outbound
// path. Frames are grabbed and encoded on a dedicated goroutine at a fixed
// cadence (default one per second), never on the audio capture thread.
package video

import (
	"context"
	"image"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/AuralisLabs/livevoice/media"
)

// DefaultInterval is the default frame cadence.
const DefaultInterval = time.Second

// FrameSource supplies the current video frame on demand.
type FrameSource interface {
	// Frame returns the most recent frame.
	Frame() (image.Image, error)

	// Close releases the underlying source.
	Close() error
}

// ThrottlerConfig configures a Throttler.
type ThrottlerConfig struct {
	// Source supplies frames. Required.
	Source FrameSource

	// Interval is the frame cadence. Defaults to DefaultInterval.
	Interval time.Duration

	// Encode controls JPEG encoding of each frame.
	Encode media.FrameConfig

	// Post delivers an encoded frame to the outbound path. It must not
	// block; drop-on-backpressure is the poster's concern. Required.
	Post func(jpeg []byte)

	// Logger receives throttler log messages. Optional.
	Logger *slog.Logger
}

// Throttler grabs, encodes, and posts frames at the configured cadence.
// A frame that fails to grab or encode is logged and skipped; the cadence
// continues.
type Throttler struct {
	source   FrameSource
	limiter  *rate.Limiter
	encode   media.FrameConfig
	post     func([]byte)
	logger   *slog.Logger
	interval time.Duration
}

// NewThrottler creates a Throttler. Call Run to start pacing frames.
func NewThrottler(cfg ThrottlerConfig) *Throttler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Throttler{
		source:   cfg.Source,
		limiter:  rate.NewLimiter(rate.Every(interval), 1),
		encode:   cfg.Encode,
		post:     cfg.Post,
		logger:   logger,
		interval: interval,
	}
}

// Run paces frames until the context is canceled. The frame source is not
// closed; its owner releases it on session teardown.
func (t *Throttler) Run(ctx context.Context) {
	t.logger.Debug("video throttler started", "interval", t.interval)

	for {
		if err := t.limiter.Wait(ctx); err != nil {
			t.logger.Debug("video throttler stopped")
			return
		}

		img, err := t.source.Frame()
		if err != nil {
			t.logger.Warn("failed to grab video frame", "error", err)
			continue
		}

		jpeg, err := media.EncodeFrame(img, t.encode)
		if err != nil {
			t.logger.Warn("failed to encode video frame", "error", err)
			continue
		}

		t.post(jpeg)
	}
}
