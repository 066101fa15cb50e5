package capture

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAdapter_AcquireRequiresCallback(t *testing.T) {
	a := NewAdapter(nil)

	err := a.Acquire(context.Background(), AdapterConfig{SampleRate: 48000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OnSamples")
}

func TestAdapter_IdleState(t *testing.T) {
	a := NewAdapter(nil)

	assert.False(t, a.Acquired())
	assert.Equal(t, 0, a.SampleRate())
}

func TestAdapter_ReleaseWithoutAcquire(t *testing.T) {
	a := NewAdapter(nil)

	// Release on every exit path means it must tolerate never-acquired
	// and repeated calls.
	a.Release()
	a.Release()
	assert.False(t, a.Acquired())
}

func TestDecodeF32(t *testing.T) {
	encode := func(vals ...float32) []byte {
		out := make([]byte, 0, len(vals)*4)
		for _, v := range vals {
			bits := math.Float32bits(v)
			out = append(out, byte(bits), byte(bits>>8), byte(bits>>16), byte(bits>>24))
		}
		return out
	}

	samples := decodeF32(encode(0, 0.5, -1.0, 1.0), 4)
	require.Len(t, samples, 4)
	assert.Equal(t, float32(0), samples[0])
	assert.Equal(t, float32(0.5), samples[1])
	assert.Equal(t, float32(-1.0), samples[2])
	assert.Equal(t, float32(1.0), samples[3])
}

func TestDecodeF32_FrameCountBounds(t *testing.T) {
	data := make([]byte, 8) // two samples

	// Claimed frame count beyond the buffer is clamped.
	assert.Len(t, decodeF32(data, 100), 2)

	// Fewer frames than the buffer holds reads only the claimed count.
	assert.Len(t, decodeF32(data, 1), 1)

	assert.Nil(t, decodeF32(nil, 4))
	assert.Nil(t, decodeF32(data, 0))
}
