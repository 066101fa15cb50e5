// Package live implements the session protocol controller: the state
// machine that owns the transport connection to the conversational voice
// endpoint, streams captured media out, schedules inbound audio for
// gapless playback, and survives endpoint-driven interrupts, migrations,
// and reconnects.
package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/AuralisLabs/livevoice/audio"
	"github.com/AuralisLabs/livevoice/capture"
	"github.com/AuralisLabs/livevoice/credentials"
	"github.com/AuralisLabs/livevoice/internal/streaming"
	"github.com/AuralisLabs/livevoice/logger"
	"github.com/AuralisLabs/livevoice/media"
	prom "github.com/AuralisLabs/livevoice/metrics/prometheus"
	"github.com/AuralisLabs/livevoice/resume"
	"github.com/AuralisLabs/livevoice/telemetry"
	"github.com/AuralisLabs/livevoice/turn"
	"github.com/AuralisLabs/livevoice/video"
)

// StartOptions tune one session start.
type StartOptions struct {
	// StreamVideo enables the video frame throttler when a frame source
	// was supplied.
	StreamVideo bool
}

// outChunk is one framed outbound payload queued between the capture
// thread and the outbound pump.
type outChunk struct {
	mime string
	data []byte
}

// Client is the session protocol controller. A Client is reusable: Stop
// tears the session down to Idle and a later Start opens a fresh one,
// resuming the prior conversation when a resumption handle survives in
// the store.
type Client struct {
	cfg      Config
	issuer   credentials.Issuer
	handlers Handlers
	capture  CaptureSource
	player   Player
	frames   video.FrameSource
	store    resume.Store
	tracer   trace.Tracer
	logger   *slog.Logger

	newTransport transportFactory

	outbound chan outChunk
	agg      *turn.Aggregator

	// startMu serializes Start calls; Stop never takes it.
	startMu sync.Mutex

	mu                sync.Mutex
	state             State
	generation        int
	manualStop        bool
	handle            string
	conn              transport
	cancelLoops       context.CancelFunc
	sessionCtx        context.Context
	cancelSession     context.CancelFunc
	span              trace.Span
	reconnectTimer    *time.Timer
	reconnectAttempts int
	sessionStart      time.Time
	videoActive       bool
	lastActive        bool
}

// New creates a Client. Capture and Player are required in deps; a nil
// issuer sends no credentials.
func New(cfg Config, issuer credentials.Issuer, deps Deps) (*Client, error) {
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.Capture == nil {
		return nil, fmt.Errorf("live client requires a capture source")
	}
	if deps.Player == nil {
		return nil, fmt.Errorf("live client requires a player")
	}
	if issuer == nil {
		issuer = credentials.Static(credentials.NoOp{})
	}
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	store := deps.Store
	if store == nil {
		store = resume.NewMemoryStore()
	}
	log := deps.Logger
	if log == nil {
		log = logger.DefaultLogger
	}

	return &Client{
		cfg:      cfg,
		issuer:   issuer,
		handlers: deps.Handlers,
		capture:  deps.Capture,
		player:   deps.Player,
		frames:   deps.Frames,
		store:    store,
		tracer:   telemetry.Tracer(deps.TracerProvider),
		logger:   log.With("sessionID", cfg.SessionID),
		newTransport: func(cc *streaming.ConnConfig) transport {
			return streaming.NewConn(cc)
		},
		outbound: make(chan outChunk, cfg.OutboundQueueSize),
		agg:      turn.NewAggregator(),
	}, nil
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Start opens a session: it acquires the capture device and a credential
// concurrently, dials the endpoint, performs the setup exchange, primes
// the endpoint with history when no resumption handle exists, and begins
// streaming. Calling Start while a session is connecting or active is a
// no-op.
//
// ctx bounds session establishment only; the running session is stopped
// with Stop.
func (c *Client) Start(ctx context.Context, history []Message, opts StartOptions) error {
	c.startMu.Lock()
	defer c.startMu.Unlock()

	c.mu.Lock()
	if c.state != StateIdle {
		state := c.state
		c.mu.Unlock()
		c.logger.Debug("start ignored; session not idle", "state", state.String())
		return nil
	}
	c.manualStop = false
	c.generation++
	gen := c.generation
	c.state = StateConnecting
	c.reconnectAttempts = 0
	c.sessionStart = time.Time{}

	sctx, cancel := context.WithCancel(context.Background())
	sctx = logger.WithSessionID(sctx, c.cfg.SessionID)
	sctx, span := c.tracer.Start(sctx, "live.session", trace.WithAttributes(
		attribute.String("session.id", c.cfg.SessionID),
		attribute.String("model", c.cfg.Model),
	))
	c.sessionCtx = sctx
	c.cancelSession = cancel
	c.span = span
	wantVideo := opts.StreamVideo && c.frames != nil
	c.mu.Unlock()

	// A prior session may have left chunks queued after its producers
	// stopped; a fresh session must not replay them.
	c.drainOutbound()
	c.agg.Reset()
	c.seedHandle(ctx)

	// Device acquisition and credential issue run concurrently; either
	// failure is fatal to the start attempt and is not retried.
	var cred credentials.Credential
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		issued, err := c.issuer.Issue(gctx)
		if err != nil {
			return fmt.Errorf("credential issuer failed: %w", err)
		}
		cred = issued
		return nil
	})
	g.Go(func() error {
		return c.acquireCapture(gctx)
	})
	if err := g.Wait(); err != nil {
		c.abortStart(gen, err)
		return err
	}

	c.mu.Lock()
	superseded := gen != c.generation || c.manualStop
	c.mu.Unlock()
	if superseded {
		// Stop ran mid-start; the device may have been acquired after
		// its teardown released it.
		c.capture.Release()
		return nil
	}

	if err := c.connect(ctx, gen, cred, history, wantVideo); err != nil {
		c.abortStart(gen, err)
		return err
	}

	c.setActive(true)
	if wantVideo {
		c.handlers.videoStream(true)
	}
	return nil
}

// Stop ends the session, cancels any pending reconnect, and releases
// every resource. Idempotent and callable from any state.
func (c *Client) Stop() {
	c.mu.Lock()
	c.manualStop = true
	c.mu.Unlock()
	c.teardown(nil)
}

// seedHandle loads a stored resumption handle so a fresh process can
// continue a prior conversation.
func (c *Client) seedHandle(ctx context.Context) {
	c.mu.Lock()
	have := c.handle != ""
	c.mu.Unlock()
	if have {
		return
	}

	h, err := c.store.Load(ctx, c.cfg.SessionID)
	switch {
	case err == nil && h != "":
		c.mu.Lock()
		c.handle = h
		c.mu.Unlock()
		c.logger.Info("resumption handle loaded from store")
	case err != nil && !errors.Is(err, resume.ErrNotFound):
		c.logger.Warn("failed to load resumption handle", "error", err)
	}
}

// acquireCapture opens the microphone and wires its samples through the
// resampler to the outbound queue. The capture callback never blocks: a
// full queue drops the frame and bumps a counter.
func (c *Client) acquireCapture(ctx context.Context) error {
	mime := fmt.Sprintf("audio/pcm;rate=%d", c.cfg.TargetSampleRate)

	// The device may grant a different rate than requested; it is known
	// only after Acquire returns, so the callback reads it atomically.
	var srcRate atomic.Int64
	cfg := capture.AdapterConfig{
		SampleRate: c.cfg.CaptureSampleRate,
		Logger:     c.logger,
		OnSamples: func(samples []float32) {
			rate := int(srcRate.Load())
			if rate == 0 {
				return
			}
			pcm := audio.Resample(samples, rate, c.cfg.TargetSampleRate)
			select {
			case c.outbound <- outChunk{mime: mime, data: audio.Int16ToBytes(pcm)}:
			default:
				prom.RecordCaptureDrop()
			}
		},
	}

	if err := c.capture.Acquire(ctx, cfg); err != nil {
		return fmt.Errorf("failed to acquire capture device: %w", err)
	}
	srcRate.Store(int64(c.capture.SampleRate()))
	return nil
}

// abortStart unwinds a failed Start: device released, span closed, error
// surfaced, state back to Idle.
func (c *Client) abortStart(gen int, err error) {
	// Release is idempotent; on a superseded start it sweeps up a device
	// acquired after the stopping teardown already released.
	c.capture.Release()

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	cancel := c.cancelSession
	c.cancelSession = nil
	span := c.span
	c.span = nil
	c.sessionCtx = nil
	c.state = StateIdle
	c.mu.Unlock()
	if span != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
	}
	if cancel != nil {
		cancel()
	}

	c.logger.Error("session start failed", "error", err)
	c.handlers.errorf(err)
}

// connect dials the endpoint, performs the setup exchange, optionally
// primes it with history, and installs the transport as current. Used by
// Start and by reconnect attempts; reconnects pass no history.
func (c *Client) connect(ctx context.Context, gen int, cred credentials.Credential, history []Message, wantVideo bool) error {
	headers := http.Header{}
	if err := cred.Apply(ctx, headers); err != nil {
		return fmt.Errorf("failed to apply credential: %w", err)
	}

	c.mu.Lock()
	sctx := c.sessionCtx
	handle := c.handle
	c.mu.Unlock()
	if sctx != nil {
		telemetry.InjectHTTPHeaders(sctx, headers)
	}

	t := c.newTransport(&streaming.ConnConfig{
		URL:         c.cfg.Endpoint,
		Headers:     headers,
		DialTimeout: c.cfg.DialTimeout,
		Logger:      c.logger,
	})
	if err := t.Connect(ctx); err != nil {
		return err
	}

	if err := t.Send(c.setupMessage(handle)); err != nil {
		_ = t.Close()
		return fmt.Errorf("failed to send setup: %w", err)
	}
	if err := c.awaitSetupComplete(ctx, t); err != nil {
		_ = t.Close()
		return err
	}

	// History primes a fresh session only; a resumed session already has
	// its context on the endpoint side.
	if len(history) > 0 && handle == "" {
		if err := t.Send(primingMessage(history)); err != nil {
			_ = t.Close()
			return fmt.Errorf("failed to send priming content: %w", err)
		}
		c.logger.Debug("sent priming history", "turns", len(history))
	}

	c.mu.Lock()
	if gen != c.generation || c.manualStop {
		c.mu.Unlock()
		_ = t.Close()
		return fmt.Errorf("session superseded during connect")
	}
	loopCtx, cancelLoops := context.WithCancel(c.sessionCtx)
	c.conn = t
	c.cancelLoops = cancelLoops
	c.state = StateActive
	c.reconnectAttempts = 0
	firstActive := c.sessionStart.IsZero()
	if firstActive {
		c.sessionStart = time.Now()
	}
	span := c.span
	c.videoActive = wantVideo
	c.mu.Unlock()

	if firstActive {
		prom.RecordSessionStart()
	}
	if span != nil {
		span.AddEvent("connected", trace.WithAttributes(
			attribute.Bool("resumed", handle != ""),
		))
	}
	c.logger.Info("session active", "resumed", handle != "")

	go c.receiveLoop(loopCtx, gen, t)
	go c.outboundPump(loopCtx, t)
	t.StartHeartbeat(loopCtx, c.cfg.HeartbeatInterval)

	if wantVideo {
		thr := video.NewThrottler(video.ThrottlerConfig{
			Source:   c.frames,
			Interval: c.cfg.VideoFrameInterval,
			Encode:   c.cfg.frameConfig(),
			Post:     c.postVideoFrame,
			Logger:   c.logger,
		})
		go thr.Run(loopCtx)
	}

	return nil
}

// setupMessage builds the session setup for the configured model, voice,
// language, and resumption handle.
func (c *Client) setupMessage(handle string) SetupMessage {
	speech := &SpeechConfig{LanguageCode: c.cfg.Language}
	if c.cfg.Voice != "" {
		speech.VoiceConfig = &VoiceConfig{
			PrebuiltVoiceConfig: &PrebuiltVoiceConfig{VoiceName: c.cfg.Voice},
		}
	}
	return SetupMessage{Setup: Setup{
		Model: c.cfg.Model,
		GenerationConfig: &GenerationConfig{
			ResponseModalities: []string{"AUDIO"},
			SpeechConfig:       speech,
		},
		SessionResumption: &SessionResumption{Handle: handle},
	}}
}

// primingMessage serializes prior turns as context the endpoint should
// not answer.
func primingMessage(history []Message) ClientContentMessage {
	turns := make([]ContentTurn, 0, len(history))
	for _, m := range history {
		turns = append(turns, ContentTurn{
			Role:  m.Role,
			Parts: []ContentPart{{Text: m.Text}},
		})
	}
	return ClientContentMessage{ClientContent: ClientContent{
		Turns:        turns,
		TurnComplete: false,
	}}
}

// awaitSetupComplete reads until the endpoint acknowledges the setup.
// Resumption updates that arrive early are processed; anything else
// before the acknowledgment is ignored.
func (c *Client) awaitSetupComplete(ctx context.Context, t transport) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.DialTimeout)
	defer cancel()

	for {
		raw, err := t.Receive(ctx)
		if err != nil {
			return fmt.Errorf("waiting for setup acknowledgment: %w", err)
		}
		var msg ServerMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Warn("failed to parse endpoint message", "error", err)
			continue
		}
		switch {
		case msg.SetupComplete != nil:
			return nil
		case msg.SessionResumptionUpdate != nil:
			c.handleResumptionUpdate(ctx, msg.SessionResumptionUpdate)
		default:
			c.logger.Debug("ignoring message before setup acknowledgment")
		}
	}
}

// receiveLoop reads and dispatches endpoint messages until the transport
// goes down or the loop context is canceled.
func (c *Client) receiveLoop(ctx context.Context, gen int, t transport) {
	for {
		raw, err := t.Receive(ctx)
		if err != nil {
			c.handleTransportDown(ctx, gen, t, err)
			return
		}
		c.dispatch(ctx, gen, raw)
	}
}

// handleTransportDown classifies the end of a transport: locally
// superseded (ignore), closed by the endpoint (reconnect when a handle
// exists), or failed (surface and tear down).
func (c *Client) handleTransportDown(ctx context.Context, gen int, t transport, err error) {
	if ctx.Err() != nil || t.IsClosed() {
		// Local cancellation or close; the initiator owns the teardown.
		return
	}

	c.mu.Lock()
	if gen != c.generation || c.manualStop {
		c.mu.Unlock()
		return
	}

	last := t.LastClose()
	if last != nil && c.handle != "" {
		c.logger.Info("transport closed by endpoint; reconnect scheduled",
			"code", last.Code, "reason", last.Reason)
		c.scheduleReconnectLocked(prom.ReasonClosed)
		c.mu.Unlock()
		c.setActive(false)
		return
	}
	c.mu.Unlock()

	if last != nil {
		c.teardown(fmt.Errorf("connection closed by endpoint without a resumption handle (code %d)", last.Code))
		return
	}
	c.teardown(fmt.Errorf("transport failed: %w", err))
}

// scheduleReconnectLocked arms the single reconnect timer slot. A timer
// that is already pending stands; nothing stacks. Caller holds c.mu.
func (c *Client) scheduleReconnectLocked(reason string) {
	if c.reconnectTimer != nil || c.manualStop {
		return
	}
	c.state = StateReconnecting
	if c.span != nil {
		c.span.AddEvent("reconnect scheduled", trace.WithAttributes(
			attribute.String("reason", reason),
		))
	}
	prom.RecordReconnect(reason)
	c.logger.Info("reconnect scheduled", "reason", reason, "delay", c.cfg.ReconnectDelay)
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, c.attemptReconnect)
}

// attemptReconnect supersedes the doomed transport and re-enters the
// connect step with the stored handle. Devices stay acquired; only the
// transport and its goroutines are rebuilt.
func (c *Client) attemptReconnect() {
	c.mu.Lock()
	c.reconnectTimer = nil
	if c.manualStop || c.state != StateReconnecting || c.sessionCtx == nil {
		c.mu.Unlock()
		return
	}
	c.generation++
	gen := c.generation
	c.state = StateConnecting
	t := c.conn
	c.conn = nil
	cancelLoops := c.cancelLoops
	c.cancelLoops = nil
	sctx := c.sessionCtx
	wantVideo := c.videoActive
	c.mu.Unlock()

	if cancelLoops != nil {
		cancelLoops()
	}
	if t != nil {
		_ = t.Close()
	}
	c.setActive(false)

	ctx, cancel := context.WithTimeout(sctx, 2*c.cfg.DialTimeout)
	defer cancel()

	cred, err := c.issuer.Issue(ctx)
	if err != nil {
		c.reconnectFailed(gen, fmt.Errorf("credential issuer failed: %w", err))
		return
	}
	if err := c.connect(ctx, gen, cred, nil, wantVideo); err != nil {
		c.reconnectFailed(gen, err)
		return
	}

	c.setActive(true)
}

// reconnectFailed counts a failed attempt: under the cap it re-arms the
// timer, at the cap it surfaces a terminal error and tears down.
func (c *Client) reconnectFailed(gen int, err error) {
	c.mu.Lock()
	if gen != c.generation || c.manualStop {
		c.mu.Unlock()
		return
	}
	c.reconnectAttempts++
	attempts := c.reconnectAttempts
	if limit := c.cfg.MaxReconnectAttempts; limit > 0 && attempts >= limit {
		c.mu.Unlock()
		c.teardown(fmt.Errorf("failed to reconnect after %d attempts: %w", attempts, err))
		return
	}
	c.state = StateReconnecting
	c.reconnectTimer = time.AfterFunc(c.cfg.ReconnectDelay, c.attemptReconnect)
	c.mu.Unlock()
	c.logger.Warn("reconnect attempt failed", "attempt", attempts, "error", err)
}

// outboundPump is the transport's only writer for media: it drains the
// outbound queue, base64-frames each chunk, and sends it in capture
// order.
func (c *Client) outboundPump(ctx context.Context, t transport) {
	for {
		select {
		case <-ctx.Done():
			return
		case chunk := <-c.outbound:
			msg := RealtimeInputMessage{RealtimeInput: RealtimeInput{
				MediaChunks: []MediaChunk{{
					MIMEType: chunk.mime,
					Data:     base64.StdEncoding.EncodeToString(chunk.data),
				}},
			}}
			if err := t.Send(msg); err != nil {
				c.logger.Warn("failed to send media chunk", "error", err)
				return
			}
			kind := prom.KindAudio
			if chunk.mime == media.MIMETypeJPEG {
				kind = prom.KindVideo
			}
			prom.RecordMediaFrameSent(kind)
		}
	}
}

// drainOutbound discards queued media chunks left over from a stopped
// session.
func (c *Client) drainOutbound() {
	for {
		select {
		case <-c.outbound:
		default:
			return
		}
	}
}

// postVideoFrame queues an encoded frame without ever blocking the
// caller.
func (c *Client) postVideoFrame(jpeg []byte) {
	select {
	case c.outbound <- outChunk{mime: media.MIMETypeJPEG, data: jpeg}:
	default:
		c.logger.Debug("outbound queue full; dropping video frame")
	}
}

// setActive notifies OnStateChange on transitions only.
func (c *Client) setActive(active bool) {
	c.mu.Lock()
	changed := c.lastActive != active
	c.lastActive = active
	c.mu.Unlock()
	if changed {
		c.handlers.stateChange(active)
	}
}

// teardown releases every session resource and transitions to Idle. A
// non-nil err is surfaced through OnError first. Safe to call from any
// state; concurrent and repeated calls are no-ops.
func (c *Client) teardown(err error) {
	c.mu.Lock()
	if c.state == StateIdle || c.state == StateClosing {
		c.mu.Unlock()
		return
	}
	c.generation++
	c.state = StateClosing
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
		c.reconnectTimer = nil
	}
	t := c.conn
	c.conn = nil
	cancelLoops := c.cancelLoops
	c.cancelLoops = nil
	cancelSession := c.cancelSession
	c.cancelSession = nil
	c.sessionCtx = nil
	span := c.span
	c.span = nil
	started := c.sessionStart
	c.sessionStart = time.Time{}
	hadVideo := c.videoActive
	c.videoActive = false
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("session failed", "error", err)
		c.handlers.errorf(err)
	}

	if cancelLoops != nil {
		cancelLoops()
	}
	if t != nil {
		_ = t.Close()
	}
	c.capture.Release()
	if perr := c.player.Flush(); perr != nil {
		c.logger.Warn("failed to flush playback", "error", perr)
	}
	c.agg.Reset()
	if cancelSession != nil {
		cancelSession()
	}

	if span != nil {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
	if !started.IsZero() {
		prom.RecordSessionEnd(time.Since(started).Seconds())
	}

	c.mu.Lock()
	if c.state == StateClosing {
		c.state = StateIdle
	}
	c.mu.Unlock()

	if hadVideo {
		c.handlers.videoStream(false)
	}
	c.setActive(false)
	c.logger.Info("session stopped")
}
