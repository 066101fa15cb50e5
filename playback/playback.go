// Package playback schedules inbound audio for gapless output.
//
// The Scheduler owns the timing math: it merges queued chunks into
// contiguous buffers and schedules each to begin exactly when the previous
// one ends. Rendering is behind the Device interface; MalgoDevice is the
// production implementation, and tests substitute a fake device and clock
// to verify the scheduling exactly.
package playback

import "time"

// Clock supplies the scheduler's notion of now. Injected so tests can
// control time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Entry is one contiguous buffer scheduled for playback.
type Entry struct {
	// PCM is the merged little-endian 16-bit mono payload.
	PCM []byte

	// Start is when playback of this entry begins.
	Start time.Time

	// Duration is the entry's playback duration at the device rate.
	Duration time.Duration

	// OnDone is invoked once the entry has finished rendering. Devices
	// deliver it from their own goroutine, never synchronously from Play
	// and never from inside a render callback's critical section.
	OnDone func()
}

// Device renders scheduled entries at a fixed sample rate.
type Device interface {
	// Start configures the output stream at the given rate. Calling Start
	// on a running device recreates it; entries scheduled on the old
	// stream are dropped without firing OnDone.
	Start(sampleRate int) error

	// Play appends an entry to the render queue.
	Play(e *Entry)

	// StopAll drops every scheduled entry immediately without firing
	// OnDone.
	StopAll()

	// Close releases the output stream. A later Start reacquires it.
	Close() error
}
