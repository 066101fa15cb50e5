package live

// Wire message shapes for the duplex voice protocol. All field names are
// camelCase on the wire; optional sub-objects are pointers so absent and
// empty are distinguishable.

// SetupMessage is the first message sent on a new transport. It selects
// the model and voice and, when a resumption handle is present, asks the
// endpoint to continue the prior conversation.
type SetupMessage struct {
	Setup Setup `json:"setup"`
}

// Setup carries the session configuration.
type Setup struct {
	Model             string             `json:"model"`
	GenerationConfig  *GenerationConfig  `json:"generationConfig,omitempty"`
	SessionResumption *SessionResumption `json:"sessionResumption,omitempty"`
}

// GenerationConfig selects the response modality and speech options.
type GenerationConfig struct {
	ResponseModalities []string      `json:"responseModalities,omitempty"`
	SpeechConfig       *SpeechConfig `json:"speechConfig,omitempty"`
}

// SpeechConfig selects the synthesis voice and language.
type SpeechConfig struct {
	VoiceConfig  *VoiceConfig `json:"voiceConfig,omitempty"`
	LanguageCode string       `json:"languageCode,omitempty"`
}

// VoiceConfig wraps the prebuilt voice selection.
type VoiceConfig struct {
	PrebuiltVoiceConfig *PrebuiltVoiceConfig `json:"prebuiltVoiceConfig,omitempty"`
}

// PrebuiltVoiceConfig names one of the endpoint's built-in voices.
type PrebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

// SessionResumption requests resumption support. An empty handle starts a
// fresh resumable session; a non-empty handle continues a prior one.
type SessionResumption struct {
	Handle string `json:"handle,omitempty"`
}

// RealtimeInputMessage frames outbound media.
type RealtimeInputMessage struct {
	RealtimeInput RealtimeInput `json:"realtimeInput"`
}

// RealtimeInput carries one or more media chunks.
type RealtimeInput struct {
	MediaChunks []MediaChunk `json:"mediaChunks"`
}

// MediaChunk is one base64-encoded media payload tagged with its mime
// type ("audio/pcm;rate=16000" or "image/jpeg").
type MediaChunk struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

// ClientContentMessage primes the endpoint with prior conversation turns.
type ClientContentMessage struct {
	ClientContent ClientContent `json:"clientContent"`
}

// ClientContent is the priming payload. TurnComplete stays false so the
// endpoint treats the turns as context rather than something to answer.
type ClientContent struct {
	Turns        []ContentTurn `json:"turns"`
	TurnComplete bool          `json:"turnComplete"`
}

// ContentTurn is one prior conversation turn.
type ContentTurn struct {
	Role  string        `json:"role"`
	Parts []ContentPart `json:"parts"`
}

// ContentPart is a text fragment of a turn.
type ContentPart struct {
	Text string `json:"text,omitempty"`
}

// Message is one entry of the caller-supplied conversation history.
// Role is "user" or "model".
type Message struct {
	Role string
	Text string
}

// ServerMessage is the union of everything the endpoint sends. Exactly
// one field is set per message; unknown shapes unmarshal with all fields
// nil and are ignored.
type ServerMessage struct {
	SetupComplete           *SetupComplete           `json:"setupComplete,omitempty"`
	SessionResumptionUpdate *SessionResumptionUpdate `json:"sessionResumptionUpdate,omitempty"`
	GoAway                  *GoAway                  `json:"goAway,omitempty"`
	ServerContent           *ServerContent           `json:"serverContent,omitempty"`
}

// SetupComplete acknowledges the setup message.
type SetupComplete struct{}

// SessionResumptionUpdate delivers a fresh resumption handle. The handle
// is only usable when Resumable is true.
type SessionResumptionUpdate struct {
	Resumable bool   `json:"resumable"`
	NewHandle string `json:"newHandle"`
}

// GoAway warns that the endpoint will close this connection soon.
// TimeLeft is a duration string such as "10s".
type GoAway struct {
	TimeLeft string `json:"timeLeft"`
}

// ServerContent carries model output and turn signals.
type ServerContent struct {
	Interrupted  bool       `json:"interrupted,omitempty"`
	TurnComplete bool       `json:"turnComplete,omitempty"`
	ModelTurn    *ModelTurn `json:"modelTurn,omitempty"`
}

// ModelTurn is the model's in-progress turn.
type ModelTurn struct {
	Parts []Part `json:"parts"`
}

// Part is one fragment of model output: text or inline media.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inlineData,omitempty"`
}

// InlineData is a base64 media payload with a sample-rate-bearing mime
// type, e.g. "audio/pcm;rate=24000".
type InlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}
