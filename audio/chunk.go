package audio

import "time"

// Chunk is one block of mono PCM16 audio with its sample rate. Ownership
// transfers to the consumer once a chunk is handed off; producers must not
// mutate the payload afterwards.
type Chunk struct {
	// PCM holds little-endian 16-bit samples.
	PCM []byte

	// SampleRate is the rate in Hz.
	SampleRate int
}

// Duration returns the chunk's playback duration.
func (c Chunk) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	samples := len(c.PCM) / bytesPerSample
	return time.Duration(samples) * time.Second / time.Duration(c.SampleRate)
}

// Valid reports whether the chunk can be played: a non-empty payload
// aligned to 16-bit samples and a positive rate.
func (c Chunk) Valid() bool {
	return len(c.PCM) > 0 && len(c.PCM)%bytesPerSample == 0 && c.SampleRate > 0
}
