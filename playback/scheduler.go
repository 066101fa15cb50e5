package playback

import (
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/AuralisLabs/livevoice/audio"
)

// SchedulerConfig configures a Scheduler.
type SchedulerConfig struct {
	// Device renders the scheduled audio. Required.
	Device Device

	// Clock supplies the scheduler's time base. Defaults to the system clock.
	Clock Clock

	// Logger receives scheduling log messages. Optional.
	Logger *slog.Logger
}

// Scheduler maintains a FIFO queue of inbound audio chunks and schedules
// them gaplessly: each merged buffer starts exactly when the previous one
// ends, or immediately when the output has gone idle.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	device Device
	clock  Clock
	logger *slog.Logger

	mu       sync.Mutex
	queue    []audio.Chunk
	rate     int // current device rate; 0 until the first chunk arrives
	nextPlay time.Time
	active   map[*Entry]struct{}
}

// NewScheduler creates a Scheduler rendering through the given device. The
// device is not started until the first chunk arrives, which fixes the
// initial output rate.
func NewScheduler(cfg SchedulerConfig) *Scheduler {
	clock := cfg.Clock
	if clock == nil {
		clock = systemClock{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Scheduler{
		device: cfg.Device,
		clock:  clock,
		logger: logger,
		active: make(map[*Entry]struct{}),
	}
}

// Enqueue adds a chunk to the playback queue, scheduling immediately when
// the output is idle. A chunk whose rate differs from the current device
// rate recreates the device at the new rate and resets the playback clock
// to now; rate changes mid-session are legal.
//
// Corrupt chunks (empty, misaligned, or rate-less) are dropped with a
// warning.
func (s *Scheduler) Enqueue(chunk audio.Chunk) {
	if !chunk.Valid() {
		s.logger.Warn("dropping corrupt audio chunk",
			"bytes", len(chunk.PCM), "rate", chunk.SampleRate)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if chunk.SampleRate != s.rate {
		if err := s.device.Start(chunk.SampleRate); err != nil {
			s.logger.Error("failed to start output device",
				"rate", chunk.SampleRate, "error", err)
			return
		}
		if n := len(s.queue); n > 0 {
			// Queued chunks carry the old rate and cannot be rendered
			// on the recreated device.
			s.logger.Warn("dropping queued audio across rate switch",
				"chunks", n, "oldRate", s.rate, "newRate", chunk.SampleRate)
			s.queue = s.queue[:0]
		}
		// Entries on the old stream were dropped by the device restart.
		clear(s.active)
		s.rate = chunk.SampleRate
		s.nextPlay = s.clock.Now()
		s.logger.Debug("output device started", "rate", s.rate)
	}

	s.queue = append(s.queue, chunk)

	if len(s.active) == 0 {
		s.drainLocked()
	}
}

// drainLocked merges all queued chunks into one contiguous entry and hands
// it to the device, starting at max(now, nextPlayTime). Called with s.mu
// held.
func (s *Scheduler) drainLocked() {
	if len(s.queue) == 0 || s.rate == 0 {
		return
	}

	total := 0
	for _, c := range s.queue {
		total += len(c.PCM)
	}
	buf := make([]byte, 0, total)
	for _, c := range s.queue {
		buf = append(buf, c.PCM...)
	}
	s.queue = s.queue[:0]

	start := s.clock.Now()
	if s.nextPlay.After(start) {
		start = s.nextPlay
	}

	entry := &Entry{
		PCM:      buf,
		Start:    start,
		Duration: audio.Chunk{PCM: buf, SampleRate: s.rate}.Duration(),
	}
	entry.OnDone = func() { s.entryDone(entry) }

	s.active[entry] = struct{}{}
	s.nextPlay = start.Add(entry.Duration)

	s.device.Play(entry)
}

// entryDone removes a finished entry from the active set and re-invokes
// the scheduling step when more data is queued.
func (s *Scheduler) entryDone(e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.active, e)
	s.drainLocked()
}

// Interrupt stops every actively-playing buffer immediately, clears the
// queue, and resets the playback clock to now. The session stays usable;
// the next chunk schedules from a clean slate.
func (s *Scheduler) Interrupt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interruptLocked()
}

func (s *Scheduler) interruptLocked() {
	s.device.StopAll()
	s.queue = s.queue[:0]
	clear(s.active)
	s.nextPlay = s.clock.Now()
}

// Flush interrupts playback and releases the output device. Used at
// session teardown. The scheduler stays usable: the next enqueued chunk
// reacquires the device at its rate. Safe to call multiple times.
func (s *Scheduler) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.interruptLocked()
	s.rate = 0

	return s.device.Close()
}

// NextPlayTime returns when the next scheduled buffer would begin.
func (s *Scheduler) NextPlayTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextPlay
}

// Pending returns the number of queued, not yet scheduled chunks.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Active returns the number of scheduled, not yet finished entries.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}
