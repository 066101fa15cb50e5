package audio

import "encoding/binary"

// wavHeaderSize is the fixed size of the RIFF/WAVE header produced here.
const wavHeaderSize = 44

// EncodeWAV wraps raw little-endian PCM16 mono audio in a minimal WAV
// container: a 44-byte header followed by the payload unchanged. The result
// is byte-exact for a given (sampleRate, payload length) pair, which keeps
// finalized turn artifacts reproducible.
func EncodeWAV(pcm []byte, sampleRate int) []byte {
	const (
		channels      = 1
		bitsPerSample = 16
		blockAlign    = channels * bitsPerSample / 8
	)
	byteRate := sampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+len(pcm))) //nolint:gosec // payload sizes fit uint32
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16) // PCM fmt chunk size
	binary.LittleEndian.PutUint16(out[20:22], 1)  // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], channels)
	binary.LittleEndian.PutUint32(out[24:28], uint32(sampleRate)) //nolint:gosec // audio rates fit uint32
	binary.LittleEndian.PutUint32(out[28:32], uint32(byteRate))   //nolint:gosec // audio rates fit uint32
	binary.LittleEndian.PutUint16(out[32:34], blockAlign)
	binary.LittleEndian.PutUint16(out[34:36], bitsPerSample)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(len(pcm))) //nolint:gosec // payload sizes fit uint32

	copy(out[wavHeaderSize:], pcm)
	return out
}
