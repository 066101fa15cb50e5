package live

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/AuralisLabs/livevoice/audio"
	"github.com/AuralisLabs/livevoice/capture"
	"github.com/AuralisLabs/livevoice/internal/streaming"
	"github.com/AuralisLabs/livevoice/media"
	"github.com/AuralisLabs/livevoice/video"
)

// Default session configuration values.
const (
	DefaultEndpoint = "wss://generativelanguage.googleapis.com/ws/" +
		"google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"
	DefaultModel = "models/gemini-2.0-flash-live-001"
	DefaultVoice = "Puck"

	DefaultReconnectDelay       = 1 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultOutboundQueueSize    = 64
	DefaultHeartbeatInterval    = 20 * time.Second
)

// Config holds everything a session needs. The zero value is usable after
// applyDefaults; LoadConfig applies defaults for you.
type Config struct {
	// Endpoint is the wss URL of the conversational voice endpoint.
	Endpoint string `yaml:"endpoint"`

	// Model selects the conversational model.
	Model string `yaml:"model"`

	// Voice selects the prebuilt synthesis voice.
	Voice string `yaml:"voice"`

	// Language is the BCP-47 speech language code. Empty uses the
	// endpoint default.
	Language string `yaml:"language"`

	// APIKey, APIKeyFile, and APIKeyEnv configure credential resolution
	// for the demo binary; see credentials.Resolve.
	APIKey     string `yaml:"api_key"`
	APIKeyFile string `yaml:"api_key_file"`
	APIKeyEnv  string `yaml:"api_key_env"`

	// TargetSampleRate is the rate the endpoint expects for input audio.
	TargetSampleRate int `yaml:"target_sample_rate"`

	// CaptureSampleRate is the rate requested from the microphone.
	CaptureSampleRate int `yaml:"capture_sample_rate"`

	// VideoFrameInterval is the cadence for outbound video frames.
	VideoFrameInterval time.Duration `yaml:"video_frame_interval"`

	// VideoMaxWidth and VideoMaxHeight bound outbound frame dimensions.
	VideoMaxWidth  int `yaml:"video_max_width"`
	VideoMaxHeight int `yaml:"video_max_height"`

	// VideoQuality is the JPEG quality for outbound frames.
	VideoQuality int `yaml:"video_quality"`

	// ReconnectDelay is the fixed delay before a scheduled reconnect.
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`

	// MaxReconnectAttempts caps consecutive failed reconnects before the
	// session gives up. 0 applies the default; negative means unlimited.
	MaxReconnectAttempts int `yaml:"max_reconnect_attempts"`

	// OutboundQueueSize bounds the channel between the capture thread and
	// the outbound pump. A full queue drops capture frames.
	OutboundQueueSize int `yaml:"outbound_queue_size"`

	// HeartbeatInterval is the transport ping cadence.
	HeartbeatInterval time.Duration `yaml:"heartbeat_interval"`

	// DialTimeout bounds the transport handshake and setup exchange.
	DialTimeout time.Duration `yaml:"dial_timeout"`

	// SessionID identifies the session in logs, traces, and the resume
	// store. A uuid is generated when empty.
	SessionID string `yaml:"session_id"`
}

// DefaultConfig returns a Config with every default applied.
func DefaultConfig() Config {
	var cfg Config
	cfg.applyDefaults()
	return cfg
}

// LoadConfig reads a YAML config file and applies defaults.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is caller-provided configuration
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Endpoint == "" {
		c.Endpoint = DefaultEndpoint
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.Voice == "" {
		c.Voice = DefaultVoice
	}
	if c.TargetSampleRate == 0 {
		c.TargetSampleRate = audio.SampleRate16kHz
	}
	if c.CaptureSampleRate == 0 {
		c.CaptureSampleRate = capture.DefaultSampleRate
	}
	if c.VideoFrameInterval == 0 {
		c.VideoFrameInterval = video.DefaultInterval
	}
	if c.VideoMaxWidth == 0 {
		c.VideoMaxWidth = media.DefaultMaxWidth
	}
	if c.VideoMaxHeight == 0 {
		c.VideoMaxHeight = media.DefaultMaxHeight
	}
	if c.VideoQuality == 0 {
		c.VideoQuality = media.DefaultQuality
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = DefaultReconnectDelay
	}
	if c.MaxReconnectAttempts == 0 {
		c.MaxReconnectAttempts = DefaultMaxReconnectAttempts
	}
	if c.OutboundQueueSize == 0 {
		c.OutboundQueueSize = DefaultOutboundQueueSize
	}
	if c.HeartbeatInterval == 0 {
		c.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = streaming.DefaultDialTimeout
	}
}

// Validate checks the fields a session cannot run without.
func (c Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("config requires an endpoint URL")
	}
	if c.Model == "" {
		return fmt.Errorf("config requires a model")
	}
	if c.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive")
	}
	if c.CaptureSampleRate <= 0 {
		return fmt.Errorf("capture sample rate must be positive")
	}
	return nil
}

// frameConfig derives the video encoder settings.
func (c Config) frameConfig() media.FrameConfig {
	return media.FrameConfig{
		MaxWidth:  c.VideoMaxWidth,
		MaxHeight: c.VideoMaxHeight,
		Quality:   c.VideoQuality,
	}
}
