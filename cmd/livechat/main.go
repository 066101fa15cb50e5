// Command livechat is a terminal client for a conversational voice
// endpoint: it streams microphone audio, plays the model's replies, and
// prints interim text as it arrives.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"

	"github.com/AuralisLabs/livevoice/capture"
	"github.com/AuralisLabs/livevoice/credentials"
	"github.com/AuralisLabs/livevoice/live"
	"github.com/AuralisLabs/livevoice/logger"
	prom "github.com/AuralisLabs/livevoice/metrics/prometheus"
	"github.com/AuralisLabs/livevoice/playback"
	"github.com/AuralisLabs/livevoice/telemetry"
	"github.com/AuralisLabs/livevoice/version"
	"github.com/AuralisLabs/livevoice/video"
)

func main() {
	os.Exit(run())
}

func run() int {
	_ = godotenv.Load()

	var (
		configPath   = flag.String("config", "", "path to a YAML config file")
		model        = flag.String("model", "", "override the configured model")
		voice        = flag.String("voice", "", "override the configured voice")
		withVideo    = flag.Bool("video", false, "stream a 1fps test pattern as video")
		saveAudio    = flag.String("save-audio", "", "directory to write one WAV file per model turn")
		metricsAddr  = flag.String("metrics", "", "serve Prometheus metrics on this address (e.g. :9090)")
		otlpEndpoint = flag.String("otlp", "", "OTLP trace endpoint URL (e.g. http://localhost:4318)")
		verbose      = flag.Bool("verbose", false, "enable debug logging")
		showVersion  = flag.Bool("version", false, "print version information and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetVersionInfo())
		return 0
	}

	logger.SetVerbose(*verbose)
	log := logger.DefaultLogger
	log.Debug("starting livechat", version.GetBuildInfo()...)

	cfg := live.DefaultConfig()
	if *configPath != "" {
		loaded, err := live.LoadConfig(*configPath)
		if err != nil {
			log.Error("failed to load config", "error", err)
			return 2
		}
		cfg = loaded
	}
	if *model != "" {
		cfg.Model = *model
	}
	if *voice != "" {
		cfg.Voice = *voice
	}

	resolverCfg := credentials.ResolverConfig{
		APIKey:     cfg.APIKey,
		APIKeyFile: cfg.APIKeyFile,
		APIKeyEnv:  cfg.APIKeyEnv,
	}
	if *configPath != "" {
		resolverCfg.ConfigDir = filepath.Dir(*configPath)
	}
	cred, err := credentials.Resolve(resolverCfg)
	if err != nil {
		log.Error("failed to resolve credentials", "error", err)
		return 2
	}

	if *saveAudio != "" {
		if err := os.MkdirAll(*saveAudio, 0o755); err != nil {
			log.Error("failed to create save-audio directory", "error", err)
			return 2
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var tp trace.TracerProvider
	if *otlpEndpoint != "" {
		telemetry.SetupPropagation()
		sdktp, err := telemetry.NewTracerProvider(ctx, *otlpEndpoint, "livechat")
		if err != nil {
			log.Error("failed to set up tracing", "error", err)
			return 1
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = sdktp.Shutdown(shutdownCtx)
		}()
		tp = sdktp
	}

	if *metricsAddr != "" {
		exporter := prom.NewExporter(*metricsAddr)
		go func() {
			if err := exporter.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics exporter failed", "error", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = exporter.Shutdown(shutdownCtx)
		}()
	}

	device, err := playback.NewMalgoDevice()
	if err != nil {
		log.Error("failed to open audio output", "error", err)
		return 1
	}
	player := playback.NewScheduler(playback.SchedulerConfig{Device: device, Logger: log})
	mic := capture.NewAdapter(log)

	var frames video.FrameSource
	if *withVideo {
		frames = newTestPattern()
		defer frames.Close()
	}

	savedTurns := 0
	sessionErr := make(chan error, 1)
	client, err := live.New(cfg, credentials.Static(cred), live.Deps{
		Handlers: live.Handlers{
			OnStateChange: func(active bool) {
				if active {
					fmt.Fprintln(os.Stderr, "session active; speak into the microphone (ctrl-c to quit)")
				}
			},
			OnInterimText: func(text string) {
				fmt.Printf("\r\033[K[model] %s", text)
			},
			OnTurnComplete: func(text string, wav []byte) {
				fmt.Printf("\r\033[K[model] %s\n", text)
				if *saveAudio != "" && len(wav) > 0 {
					savedTurns++
					path := filepath.Join(*saveAudio, fmt.Sprintf("turn-%03d.wav", savedTurns))
					if err := os.WriteFile(path, wav, 0o600); err != nil {
						log.Warn("failed to save turn audio", "path", path, "error", err)
					}
				}
			},
			OnVideoStream: func(active bool) {
				if active {
					fmt.Fprintln(os.Stderr, "video streaming enabled")
				}
			},
			OnError: func(err error) {
				select {
				case sessionErr <- err:
				default:
				}
			},
		},
		Capture:        mic,
		Player:         player,
		Frames:         frames,
		TracerProvider: tp,
		Logger:         log,
	})
	if err != nil {
		log.Error("failed to create client", "error", err)
		return 2
	}

	if err := client.Start(ctx, nil, live.StartOptions{StreamVideo: *withVideo}); err != nil {
		fmt.Fprintln(os.Stderr, "failed to start session:", err)
		return 1
	}

	select {
	case <-ctx.Done():
		fmt.Fprintln(os.Stderr, "\nshutting down")
		client.Stop()
		return 0
	case err := <-sessionErr:
		fmt.Fprintln(os.Stderr, "session error:", err)
		client.Stop()
		return 1
	}
}
