package audio

import "math"

// Standard sample rates for duplex voice sessions.
const (
	SampleRate24kHz = 24000 // Common endpoint output rate
	SampleRate16kHz = 16000 // Common endpoint input rate
)

// maxPCM16 is the scale factor from normalized float samples to int16.
const maxPCM16 = 32767

// Resample converts float32 samples at sourceRate to int16 samples at
// targetRate by averaging over decimation windows. For output index i the
// input window is [round(i*ratio), round((i+1)*ratio)) with
// ratio = sourceRate/targetRate; the window average is clamped to [-1, 1]
// and scaled to the signed 16-bit range.
//
// The averaging acts as a crude low-pass filter, which is sufficient for
// speech decimation (e.g. 48kHz device capture down to a 16kHz endpoint
// rate). The function performs exactly one allocation (the output slice)
// and no other work that would be unsafe on a real-time capture thread.
func Resample(src []float32, sourceRate, targetRate int) []int16 {
	if len(src) == 0 || sourceRate <= 0 || targetRate <= 0 {
		return []int16{}
	}

	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(math.Round(float64(len(src)) / ratio))
	if outLen == 0 {
		return []int16{}
	}

	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		start := int(math.Round(float64(i) * ratio))
		end := int(math.Round(float64(i+1) * ratio))
		if start >= len(src) {
			start = len(src) - 1
		}
		if end > len(src) {
			end = len(src)
		}
		if end <= start {
			end = start + 1
		}

		var sum float64
		for j := start; j < end; j++ {
			sum += float64(src[j])
		}
		avg := sum / float64(end-start)

		if avg > 1 {
			avg = 1
		} else if avg < -1 {
			avg = -1
		}
		out[i] = int16(avg * maxPCM16)
	}

	return out
}
