package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChunk_Duration(t *testing.T) {
	tests := []struct {
		name string
		c    Chunk
		want time.Duration
	}{
		{"one second at 24kHz", Chunk{PCM: make([]byte, 48000), SampleRate: 24000}, time.Second},
		{"half second at 24kHz", Chunk{PCM: make([]byte, 24000), SampleRate: 24000}, 500 * time.Millisecond},
		{"one second at 16kHz", Chunk{PCM: make([]byte, 32000), SampleRate: 16000}, time.Second},
		{"empty", Chunk{SampleRate: 24000}, 0},
		{"zero rate", Chunk{PCM: make([]byte, 100), SampleRate: 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.c.Duration())
		})
	}
}

func TestChunk_Valid(t *testing.T) {
	assert.True(t, Chunk{PCM: []byte{0, 0}, SampleRate: 24000}.Valid())

	assert.False(t, Chunk{PCM: nil, SampleRate: 24000}.Valid(), "empty payload")
	assert.False(t, Chunk{PCM: []byte{0}, SampleRate: 24000}.Valid(), "odd byte count")
	assert.False(t, Chunk{PCM: []byte{0, 0}, SampleRate: 0}.Valid(), "zero rate")
	assert.False(t, Chunk{PCM: []byte{0, 0}, SampleRate: -1}.Valid(), "negative rate")
}
