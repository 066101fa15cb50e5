package live

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupMessage_WireShape(t *testing.T) {
	c := &Client{cfg: DefaultConfig()}
	c.cfg.Language = "en-US"

	raw, err := json.Marshal(c.setupMessage(""))
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"setup"`)
	assert.Contains(t, s, `"model":"`+DefaultModel+`"`)
	assert.Contains(t, s, `"generationConfig"`)
	assert.Contains(t, s, `"responseModalities":["AUDIO"]`)
	assert.Contains(t, s, `"speechConfig"`)
	assert.Contains(t, s, `"voiceConfig"`)
	assert.Contains(t, s, `"prebuiltVoiceConfig"`)
	assert.Contains(t, s, `"voiceName":"Puck"`)
	assert.Contains(t, s, `"languageCode":"en-US"`)

	// Resumption is always requested; an empty handle is omitted so the
	// endpoint starts a fresh resumable session.
	assert.Contains(t, s, `"sessionResumption"`)
	assert.NotContains(t, s, `"handle"`)
}

func TestSetupMessage_CarriesHandle(t *testing.T) {
	c := &Client{cfg: DefaultConfig()}

	raw, err := json.Marshal(c.setupMessage("resume-token-1"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"handle":"resume-token-1"`)
}

func TestSetupMessage_NoVoice(t *testing.T) {
	c := &Client{cfg: DefaultConfig()}
	c.cfg.Voice = ""

	raw, err := json.Marshal(c.setupMessage(""))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), `"voiceConfig"`)
}

func TestPrimingMessage_WireShape(t *testing.T) {
	msg := primingMessage([]Message{
		{Role: "user", Text: "hello"},
		{Role: "model", Text: "hi"},
	})

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"clientContent"`)
	assert.Contains(t, s, `"turns"`)
	assert.Contains(t, s, `"role":"user"`)
	assert.Contains(t, s, `"parts":[{"text":"hello"}]`)

	// turnComplete:false must be serialized explicitly; the endpoint
	// treats the history as context, not a prompt to answer.
	assert.Contains(t, s, `"turnComplete":false`)
}

func TestRealtimeInputMessage_WireShape(t *testing.T) {
	msg := RealtimeInputMessage{RealtimeInput: RealtimeInput{
		MediaChunks: []MediaChunk{{MIMEType: "audio/pcm;rate=16000", Data: "AAAA"}},
	}}

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	s := string(raw)

	assert.Contains(t, s, `"realtimeInput"`)
	assert.Contains(t, s, `"mediaChunks"`)
	assert.Contains(t, s, `"mimeType":"audio/pcm;rate=16000"`)
	assert.Contains(t, s, `"data":"AAAA"`)
}

func TestServerMessage_Unmarshal(t *testing.T) {
	raw := `{
		"serverContent": {
			"interrupted": true,
			"turnComplete": true,
			"modelTurn": {
				"parts": [
					{"text": "Hello"},
					{"inlineData": {"mimeType": "audio/pcm;rate=24000", "data": "UExN"}}
				]
			}
		}
	}`

	var msg ServerMessage
	require.NoError(t, json.Unmarshal([]byte(raw), &msg))

	require.NotNil(t, msg.ServerContent)
	assert.True(t, msg.ServerContent.Interrupted)
	assert.True(t, msg.ServerContent.TurnComplete)
	require.NotNil(t, msg.ServerContent.ModelTurn)
	require.Len(t, msg.ServerContent.ModelTurn.Parts, 2)
	assert.Equal(t, "Hello", msg.ServerContent.ModelTurn.Parts[0].Text)
	require.NotNil(t, msg.ServerContent.ModelTurn.Parts[1].InlineData)
	assert.Equal(t, "audio/pcm;rate=24000", msg.ServerContent.ModelTurn.Parts[1].InlineData.MIMEType)
}

func TestServerMessage_UnmarshalControl(t *testing.T) {
	var msg ServerMessage
	require.NoError(t, json.Unmarshal([]byte(`{"setupComplete":{}}`), &msg))
	assert.NotNil(t, msg.SetupComplete)
	assert.Nil(t, msg.ServerContent)

	msg = ServerMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{"sessionResumptionUpdate":{"resumable":true,"newHandle":"h1"}}`), &msg))
	require.NotNil(t, msg.SessionResumptionUpdate)
	assert.True(t, msg.SessionResumptionUpdate.Resumable)
	assert.Equal(t, "h1", msg.SessionResumptionUpdate.NewHandle)

	msg = ServerMessage{}
	require.NoError(t, json.Unmarshal([]byte(`{"goAway":{"timeLeft":"10s"}}`), &msg))
	require.NotNil(t, msg.GoAway)
	assert.Equal(t, "10s", msg.GoAway.TimeLeft)
}
