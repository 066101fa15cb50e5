package live

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/AuralisLabs/livevoice/audio"
	"github.com/AuralisLabs/livevoice/capture"
	"github.com/AuralisLabs/livevoice/internal/streaming"
	"github.com/AuralisLabs/livevoice/resume"
	"github.com/AuralisLabs/livevoice/video"
)

// Player consumes inbound audio. *playback.Scheduler is the production
// implementation.
type Player interface {
	// Enqueue schedules a decoded chunk for gapless playback.
	Enqueue(chunk audio.Chunk)

	// Interrupt stops playback immediately and clears pending audio.
	Interrupt()

	// Flush interrupts and releases the output device at teardown.
	Flush() error
}

// CaptureSource supplies microphone samples. *capture.Adapter is the
// production implementation.
type CaptureSource interface {
	// Acquire opens the capture device and begins delivering samples to
	// cfg.OnSamples. Failure is fatal to session start.
	Acquire(ctx context.Context, cfg capture.AdapterConfig) error

	// SampleRate reports the rate the device actually granted.
	SampleRate() int

	// Release stops and releases the device. Idempotent.
	Release()
}

// transport is the slice of the streaming connection the controller
// uses. Tests substitute a scripted fake.
type transport interface {
	Connect(ctx context.Context) error
	Send(msg any) error
	Receive(ctx context.Context) ([]byte, error)
	StartHeartbeat(ctx context.Context, interval time.Duration)
	Close() error
	LastClose() *streaming.CloseStatus
	IsClosed() bool
}

// transportFactory builds a transport from a connection config. The
// default wires streaming.NewConn.
type transportFactory func(cfg *streaming.ConnConfig) transport

// Handlers are the caller-facing notifications. Every field is optional;
// nil handlers are skipped. Handlers are invoked from session goroutines
// and must not block for long; calling Stop from a handler is safe.
type Handlers struct {
	// OnStateChange reports whether the session is actively streaming.
	OnStateChange func(active bool)

	// OnInterimText delivers the accumulated text of the in-progress
	// turn after each text delta.
	OnInterimText func(text string)

	// OnTurnComplete delivers a finalized turn: its text and, when the
	// turn carried audio, a WAV artifact.
	OnTurnComplete func(text string, audio []byte)

	// OnVideoStream reports whether video frames are being streamed.
	OnVideoStream func(active bool)

	// OnError surfaces fatal session errors.
	OnError func(err error)
}

func (h Handlers) stateChange(active bool) {
	if h.OnStateChange != nil {
		h.OnStateChange(active)
	}
}

func (h Handlers) interimText(text string) {
	if h.OnInterimText != nil {
		h.OnInterimText(text)
	}
}

func (h Handlers) turnComplete(text string, audio []byte) {
	if h.OnTurnComplete != nil {
		h.OnTurnComplete(text, audio)
	}
}

func (h Handlers) videoStream(active bool) {
	if h.OnVideoStream != nil {
		h.OnVideoStream(active)
	}
}

func (h Handlers) errorf(err error) {
	if h.OnError != nil {
		h.OnError(err)
	}
}

// Deps bundles the session's collaborators. Capture and Player are
// required; the rest default sensibly.
type Deps struct {
	// Handlers receive caller-facing notifications.
	Handlers Handlers

	// Capture supplies microphone samples.
	Capture CaptureSource

	// Player renders inbound audio.
	Player Player

	// Frames supplies video frames when video streaming is requested.
	// Optional; the Client never closes it.
	Frames video.FrameSource

	// Store persists resumption handles across processes. Defaults to an
	// in-memory store scoped to this Client.
	Store resume.Store

	// TracerProvider emits session spans. Defaults to the global
	// provider.
	TracerProvider trace.TracerProvider

	// Logger receives session log messages. Defaults to the package
	// logger.
	Logger *slog.Logger
}
