package audio

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWAV_ArtifactSize(t *testing.T) {
	// 48000 samples at 24kHz: 96000 payload bytes behind a 44-byte header.
	pcm := make([]byte, 96000)
	out := EncodeWAV(pcm, 24000)

	assert.Len(t, out, 44+96000)
}

func TestEncodeWAV_HeaderFields(t *testing.T) {
	pcm := make([]byte, 96000)
	out := EncodeWAV(pcm, 24000)
	require.GreaterOrEqual(t, len(out), 44)

	assert.Equal(t, "RIFF", string(out[0:4]))
	assert.Equal(t, uint32(36+96000), binary.LittleEndian.Uint32(out[4:8]))
	assert.Equal(t, "WAVE", string(out[8:12]))
	assert.Equal(t, "fmt ", string(out[12:16]))
	assert.Equal(t, uint32(16), binary.LittleEndian.Uint32(out[16:20]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[20:22]), "PCM format tag")
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(out[22:24]), "mono")
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(out[24:28]), "sample rate")
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(out[28:32]), "byte rate")
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(out[32:34]), "block align")
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(out[34:36]), "bits per sample")
	assert.Equal(t, "data", string(out[36:40]))
	assert.Equal(t, uint32(96000), binary.LittleEndian.Uint32(out[40:44]), "data size")
}

func TestEncodeWAV_PayloadUnchanged(t *testing.T) {
	pcm := []byte{0x01, 0x02, 0x03, 0x04}
	out := EncodeWAV(pcm, 16000)

	require.Len(t, out, 44+4)
	assert.Equal(t, pcm, out[44:])
}

func TestEncodeWAV_EmptyPayload(t *testing.T) {
	out := EncodeWAV(nil, 16000)

	require.Len(t, out, 44)
	assert.Equal(t, uint32(0), binary.LittleEndian.Uint32(out[40:44]))
	assert.Equal(t, uint32(36), binary.LittleEndian.Uint32(out[4:8]))
}

func TestEncodeWAV_Deterministic(t *testing.T) {
	pcm := Int16ToBytes([]int16{100, -100, 200, -200})

	a := EncodeWAV(pcm, 24000)
	b := EncodeWAV(pcm, 24000)
	assert.Equal(t, a, b)
}
