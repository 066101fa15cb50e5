package audio

import (
	"encoding/binary"
	"errors"
	"strconv"
	"strings"
)

// bytesPerSample is the width of one PCM16 sample on the wire.
const bytesPerSample = 2

// ErrMisalignedPCM indicates a PCM byte payload whose length is not a
// multiple of the 16-bit sample size.
var ErrMisalignedPCM = errors.New("pcm data not aligned to 16-bit samples")

// Int16ToBytes converts samples to little-endian PCM16 bytes.
func Int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(s)) //nolint:gosec // PCM16 range maps onto uint16 for byte encoding
	}
	return out
}

// BytesToInt16 converts little-endian PCM16 bytes to samples.
// Returns ErrMisalignedPCM when the payload length is odd.
func BytesToInt16(data []byte) ([]int16, error) {
	if len(data)%bytesPerSample != 0 {
		return nil, ErrMisalignedPCM
	}
	samples := make([]int16, len(data)/bytesPerSample)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[i*bytesPerSample:])) //nolint:gosec // PCM16 stored as unsigned bytes
	}
	return samples, nil
}

// Duration returns the playback duration in seconds of a PCM16 payload of
// byteLen bytes at the given mono sample rate.
func Duration(byteLen, sampleRate int) float64 {
	if sampleRate <= 0 {
		return 0
	}
	return float64(byteLen/bytesPerSample) / float64(sampleRate)
}

// ParseSampleRate extracts the rate parameter from a mime type of the form
// "audio/pcm;rate=24000". Returns fallback when no parseable rate is present.
func ParseSampleRate(mimeType string, fallback int) int {
	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if rest, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(rest); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return fallback
}
