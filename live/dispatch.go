package live

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AuralisLabs/livevoice/audio"
	prom "github.com/AuralisLabs/livevoice/metrics/prometheus"
)

// dispatch routes one endpoint message. Messages from a superseded
// generation are dropped; a reconnect may already be streaming under a
// newer one.
func (c *Client) dispatch(ctx context.Context, gen int, raw []byte) {
	c.mu.Lock()
	stale := gen != c.generation
	c.mu.Unlock()
	if stale {
		return
	}

	var msg ServerMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		c.logger.Warn("failed to parse endpoint message", "error", err)
		return
	}

	switch {
	case msg.SetupComplete != nil:
		c.logger.Debug("duplicate setup acknowledgment ignored")
	case msg.SessionResumptionUpdate != nil:
		c.handleResumptionUpdate(ctx, msg.SessionResumptionUpdate)
	case msg.GoAway != nil:
		c.handleGoAway(msg.GoAway)
	case msg.ServerContent != nil:
		c.handleServerContent(msg.ServerContent)
	default:
		c.logger.Debug("unrecognized endpoint message", "bytes", len(raw))
	}
}

// handleResumptionUpdate records the freshest handle in memory and in
// the store. A store failure is logged, not fatal: the in-memory handle
// still covers reconnects within this process.
func (c *Client) handleResumptionUpdate(ctx context.Context, u *SessionResumptionUpdate) {
	if !u.Resumable || u.NewHandle == "" {
		return
	}
	c.mu.Lock()
	c.handle = u.NewHandle
	c.mu.Unlock()

	if err := c.store.Save(ctx, c.cfg.SessionID, u.NewHandle); err != nil {
		c.logger.Warn("failed to persist resumption handle", "error", err)
	}
	c.logger.Debug("resumption handle updated")
}

// handleGoAway arms a reconnect ahead of the announced disconnect. The
// current transport keeps streaming until the timer fires, so playback
// runs as close to the cutoff as possible.
func (c *Client) handleGoAway(g *GoAway) {
	c.logger.Info("endpoint announced disconnect", "timeLeft", g.TimeLeft)
	c.mu.Lock()
	if c.span != nil {
		c.span.AddEvent("go-away", trace.WithAttributes(
			attribute.String("time_left", g.TimeLeft),
		))
	}
	c.scheduleReconnectLocked(prom.ReasonGoAway)
	c.mu.Unlock()
}

// handleServerContent applies a content frame: barge-in interrupts first,
// then model parts, then turn completion.
func (c *Client) handleServerContent(sc *ServerContent) {
	if sc.Interrupted {
		c.player.Interrupt()
		prom.RecordInterruption()
		c.addSpanEvent("interrupted")
		c.logger.Debug("playback interrupted by endpoint")
	}

	if sc.ModelTurn != nil {
		for i := range sc.ModelTurn.Parts {
			c.handlePart(&sc.ModelTurn.Parts[i])
		}
	}

	if sc.TurnComplete {
		finished, ok := c.agg.Complete()
		if !ok {
			return
		}
		prom.RecordTurnCompleted()
		c.addSpanEvent("turn complete")
		c.handlers.turnComplete(finished.Text, finished.Audio)
	}
}

// handlePart accumulates one model part: text goes to the aggregator and
// the interim handler, audio is decoded and queued for playback.
func (c *Client) handlePart(p *Part) {
	if p.Text != "" {
		c.agg.AddText(p.Text)
		c.handlers.interimText(c.agg.Text())
	}

	if p.InlineData == nil || !strings.HasPrefix(p.InlineData.MIMEType, "audio/") {
		return
	}

	pcm, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
	if err != nil {
		c.logger.Warn("failed to decode audio chunk", "error", err)
		prom.RecordChunkDropped()
		return
	}
	rate := audio.ParseSampleRate(p.InlineData.MIMEType, audio.SampleRate24kHz)
	chunk := audio.Chunk{PCM: pcm, SampleRate: rate}
	if !chunk.Valid() {
		c.logger.Warn("dropping malformed audio chunk", "bytes", len(pcm), "rate", rate)
		prom.RecordChunkDropped()
		return
	}

	c.agg.AddAudio(pcm, rate)
	c.player.Enqueue(chunk)
	prom.RecordChunkPlayed()
}

// addSpanEvent annotates the session span when one is live.
func (c *Client) addSpanEvent(name string) {
	c.mu.Lock()
	span := c.span
	c.mu.Unlock()
	if span != nil {
		span.AddEvent(name)
	}
}
