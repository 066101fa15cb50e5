package turn

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregator_TextAccumulation(t *testing.T) {
	agg := NewAggregator()

	agg.AddText("Hello")
	agg.AddText(", ")
	agg.AddText("world")

	assert.Equal(t, "Hello, world", agg.Text())

	turn, ok := agg.Complete()
	require.True(t, ok)
	assert.Equal(t, "Hello, world", turn.Text)
	assert.Nil(t, turn.Audio)
}

func TestAggregator_AudioArrivalOrder(t *testing.T) {
	agg := NewAggregator()

	agg.AddAudio([]byte{1, 2}, 24000)
	agg.AddAudio([]byte{3, 4}, 24000)

	turn, ok := agg.Complete()
	require.True(t, ok)
	require.NotNil(t, turn.Audio)

	// Payload follows the 44-byte header in arrival order
	assert.Equal(t, []byte{1, 2, 3, 4}, turn.Audio[44:])
}

func TestAggregator_WAVArtifactSize(t *testing.T) {
	agg := NewAggregator()

	// 48000 samples of 16-bit PCM at 24kHz
	pcm := make([]byte, 96000)
	agg.AddAudio(pcm, 24000)

	turn, ok := agg.Complete()
	require.True(t, ok)
	require.Len(t, turn.Audio, 44+96000)
	assert.Equal(t, 24000, turn.SampleRate)

	header := turn.Audio[:44]
	assert.Equal(t, uint32(24000), binary.LittleEndian.Uint32(header[24:28])) // sample rate
	assert.Equal(t, uint32(48000), binary.LittleEndian.Uint32(header[28:32])) // byte rate
	assert.Equal(t, uint32(96000), binary.LittleEndian.Uint32(header[40:44])) // data size
}

func TestAggregator_EmptyAfterComplete(t *testing.T) {
	agg := NewAggregator()

	agg.AddText("some text")
	agg.AddAudio([]byte{1, 2, 3, 4}, 24000)

	turn, ok := agg.Complete()
	require.True(t, ok)
	assert.Equal(t, "some text", turn.Text)
	assert.NotNil(t, turn.Audio)

	assert.Empty(t, agg.Text())

	// A second completion with no intervening deltas must not re-emit
	// stale data.
	second, ok := agg.Complete()
	assert.False(t, ok)
	assert.Empty(t, second.Text)
	assert.Nil(t, second.Audio)
}

func TestAggregator_CompleteEmptyTurn(t *testing.T) {
	agg := NewAggregator()

	turn, ok := agg.Complete()
	assert.False(t, ok)
	assert.Empty(t, turn.Text)
	assert.Nil(t, turn.Audio)
	assert.NotEmpty(t, turn.ID)
}

func TestAggregator_NewIDPerTurn(t *testing.T) {
	agg := NewAggregator()

	agg.AddText("first")
	first, _ := agg.Complete()

	agg.AddText("second")
	second, _ := agg.Complete()

	assert.NotEmpty(t, first.ID)
	assert.NotEmpty(t, second.ID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestAggregator_MostRecentRateWins(t *testing.T) {
	agg := NewAggregator()

	agg.AddAudio([]byte{1, 2}, 24000)
	agg.AddAudio([]byte{3, 4}, 16000)

	turn, ok := agg.Complete()
	require.True(t, ok)
	assert.Equal(t, 16000, turn.SampleRate)
	assert.Equal(t, uint32(16000), binary.LittleEndian.Uint32(turn.Audio[24:28]))
}

func TestAggregator_AddAudioCopies(t *testing.T) {
	agg := NewAggregator()

	buf := []byte{1, 2, 3, 4}
	agg.AddAudio(buf, 24000)
	buf[0] = 99 // caller reuses the buffer

	turn, ok := agg.Complete()
	require.True(t, ok)
	assert.Equal(t, byte(1), turn.Audio[44])
}

func TestAggregator_EmptyAudioIgnored(t *testing.T) {
	agg := NewAggregator()

	agg.AddAudio(nil, 24000)
	agg.AddAudio([]byte{}, 24000)

	_, ok := agg.Complete()
	assert.False(t, ok)
}

func TestAggregator_Reset(t *testing.T) {
	agg := NewAggregator()

	agg.AddText("discarded")
	agg.AddAudio([]byte{1, 2}, 24000)
	agg.Reset()

	turn, ok := agg.Complete()
	assert.False(t, ok)
	assert.Empty(t, turn.Text)
	assert.Nil(t, turn.Audio)
}
