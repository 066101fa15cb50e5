// Package turn accumulates endpoint output for the current conversational
// turn and packages it into a finalized artifact on turn completion.
package turn

import (
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/AuralisLabs/livevoice/audio"
)

// Turn is the finalized artifact for one conversational exchange.
type Turn struct {
	// ID identifies the turn for logging and tracing.
	ID string

	// Text is the full text of the turn.
	Text string

	// Audio is the turn's audio as a WAV container, or nil when the turn
	// carried no audio.
	Audio []byte

	// SampleRate is the rate the audio was encoded at. Zero when Audio is nil.
	SampleRate int
}

// Aggregator accumulates text deltas and raw audio for the current turn.
// Audio buffers are kept in arrival order, independent of playback.
//
// Safe for concurrent use, though in practice all calls come from the
// session controller's dispatch goroutine.
type Aggregator struct {
	mu         sync.Mutex
	id         string
	text       strings.Builder
	audio      []byte
	sampleRate int
}

// NewAggregator creates an aggregator ready for the first turn.
func NewAggregator() *Aggregator {
	return &Aggregator{
		id:         uuid.NewString(),
		sampleRate: audio.SampleRate24kHz,
	}
}

// AddText appends a text delta to the current turn.
func (a *Aggregator) AddText(delta string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.text.WriteString(delta)
}

// AddAudio appends a raw PCM buffer to the current turn. The buffer is
// copied; callers may reuse it after AddAudio returns. sampleRate records
// the rate the artifact will be encoded at; the most recent rate wins.
func (a *Aggregator) AddAudio(pcm []byte, sampleRate int) {
	if len(pcm) == 0 {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.audio = append(a.audio, pcm...)
	if sampleRate > 0 {
		a.sampleRate = sampleRate
	}
}

// Text returns the text accumulated so far, for interim display.
func (a *Aggregator) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text.String()
}

// ID returns the current turn's identifier.
func (a *Aggregator) ID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.id
}

// Complete finalizes the current turn and resets the accumulators. The
// returned bool reports whether the turn carried any content; a second
// Complete with no intervening deltas yields an empty turn, never stale
// data. The reset happens before Complete returns.
func (a *Aggregator) Complete() (Turn, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	t := Turn{
		ID:   a.id,
		Text: a.text.String(),
	}
	if len(a.audio) > 0 {
		t.Audio = audio.EncodeWAV(a.audio, a.sampleRate)
		t.SampleRate = a.sampleRate
	}

	a.resetLocked()

	return t, t.Text != "" || t.Audio != nil
}

// Reset discards the current turn's accumulators without emitting.
func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.resetLocked()
}

func (a *Aggregator) resetLocked() {
	a.id = uuid.NewString()
	a.text.Reset()
	a.audio = nil
}
