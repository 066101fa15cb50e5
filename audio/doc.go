// Package audio provides the PCM primitives for real-time duplex voice
// streaming: outbound resampling, sample format conversion, and the
// uncompressed container used for finalized turn artifacts.
//
// The package is deliberately device-free. Capture and playback hardware
// live in the capture and playback packages; everything here is pure
// computation and safe to call from a real-time audio callback:
//   - Resample: decimating average resampler (one allocation per call)
//   - Int16ToBytes / BytesToInt16: little-endian wire conversion
//   - EncodeWAV: 44-byte RIFF header plus raw PCM16 payload
//   - ParseSampleRate: rate extraction from audio/pcm;rate=N mime types
package audio
