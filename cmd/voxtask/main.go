// Command voxtask is the main entry point for the voxtask voice task agent.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/voxtask/voxtask/internal/agent"
	"github.com/voxtask/voxtask/internal/app"
	"github.com/voxtask/voxtask/internal/capture"
	"github.com/voxtask/voxtask/internal/config"
	"github.com/voxtask/voxtask/internal/observe"
	"github.com/voxtask/voxtask/internal/tasks"
	"github.com/voxtask/voxtask/pkg/audio/segment"
	"github.com/voxtask/voxtask/pkg/provider/chat"
	"github.com/voxtask/voxtask/pkg/provider/transcribe"
	"github.com/voxtask/voxtask/pkg/provider/transcribe/openaitr"
	"github.com/voxtask/voxtask/pkg/provider/transcribe/whisper"
)

// version is stamped at build time via -ldflags.
var version = "dev"

// defaultInstructions is the system preamble used when the config does not
// provide one.
const defaultInstructions = `You are a voice-controlled task list assistant.
The user speaks; you manage their task list with the provided tools.
Keep answers short and suitable for being read aloud.
Call the finish tool once the user's request has been fully handled.`

const defaultListenAddr = ":8080"

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("voxtask", version)
		return 0
	}

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "voxtask: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "voxtask: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Server.LogLevel)
	slog.SetDefault(logger)

	slog.Info("voxtask starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName:    "voxtask",
		ServiceVersion: version,
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(shutdownCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Task store ────────────────────────────────────────────────────────────
	store, closeStore, err := buildStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to initialise task store", "err", err)
		return 1
	}
	defer closeStore()

	// ── Providers ─────────────────────────────────────────────────────────────
	transcriber, err := buildTranscriber(cfg.Providers.Transcription)
	if err != nil {
		slog.Error("failed to create transcription provider", "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "transcription", "name", cfg.Providers.Transcription.Name)

	chatClient, err := buildChatClient(cfg.Providers.Chat)
	if err != nil {
		slog.Error("failed to create chat provider", "err", err)
		return 1
	}
	slog.Info("provider created", "kind", "chat", "name", cfg.Providers.Chat.Name)

	// ── Agent ─────────────────────────────────────────────────────────────────
	// The finish tool reaches back into the pipeline, which is constructed
	// after the dispatcher, so it goes through this late-bound reference.
	var application *app.App
	dispatcher, err := agent.NewDispatcher(store,
		agent.WithMetrics(metrics),
		agent.WithFinishHandler(func(ctx context.Context) error {
			return application.RequestFinish(ctx)
		}),
	)
	if err != nil {
		slog.Error("failed to create tool dispatcher", "err", err)
		return 1
	}

	instructions := cfg.Agent.Instructions
	if instructions == "" {
		instructions = defaultInstructions
	}
	loop, err := agent.NewLoop(chatClient, dispatcher,
		agent.WithInstructions(instructions),
		agent.WithMaxTurns(cfg.Agent.MaxTurns),
		agent.WithLogger(logger),
	)
	if err != nil {
		slog.Error("failed to create agent loop", "err", err)
		return 1
	}

	// ── Audio pipeline ────────────────────────────────────────────────────────
	seg := segment.New(segment.Config{
		SampleRate:     cfg.Audio.SampleRate,
		BlockSize:      cfg.Audio.BlockSize,
		VoiceThreshold: cfg.Audio.VoiceThreshold,
		SilenceTimeout: time.Duration(cfg.Audio.SilenceTimeoutMs) * time.Millisecond,
		MinUtterance:   time.Duration(cfg.Audio.MinUtteranceMs) * time.Millisecond,
	})

	application, err = app.New(seg, transcriber, loop,
		app.WithSampleRate(cfg.Audio.SampleRate),
		app.WithLogger(logger),
		app.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to initialise application", "err", err)
		return 1
	}

	captureHandler, err := capture.NewHandler(seg,
		capture.WithLogger(logger),
		capture.WithMetrics(metrics),
	)
	if err != nil {
		slog.Error("failed to initialise capture handler", "err", err)
		return 1
	}

	// ── HTTP server ───────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.Handle("/capture", captureHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	listenAddr := cfg.Server.ListenAddr
	if listenAddr == "" {
		listenAddr = defaultListenAddr
	}
	server := &http.Server{
		Addr:    listenAddr,
		Handler: observe.Middleware(metrics)(mux),
	}

	printStartupSummary(cfg, listenAddr)
	slog.Info("server ready — press Ctrl+C to shut down")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if cfg.Server.TLS != nil {
			err = server.ListenAndServeTLS(cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		return application.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}

	slog.Info("goodbye")
	return 0
}

// ── Wiring helpers ────────────────────────────────────────────────────────────

// buildStore creates the task store selected by cfg.Tasks and returns it with
// a cleanup function.
func buildStore(ctx context.Context, cfg *config.Config) (tasks.Store, func(), error) {
	switch cfg.Tasks.Backend {
	case config.TaskBackendPostgres:
		pool, err := pgxpool.New(ctx, cfg.Tasks.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		store := tasks.NewPostgresStore(pool)
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("task store ready", "backend", "postgres")
		return store, pool.Close, nil

	case config.TaskBackendMemory, "":
		slog.Info("task store ready", "backend", "memory")
		return tasks.NewMemStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown task backend %q", cfg.Tasks.Backend)
}

// buildTranscriber creates the transcription provider named in entry.
func buildTranscriber(entry config.ProviderEntry) (transcribe.Provider, error) {
	switch entry.Name {
	case "whisper":
		var opts []whisper.Option
		if entry.Model != "" {
			opts = append(opts, whisper.WithModel(entry.Model))
		}
		if lang := optString(entry.Options, "language"); lang != "" {
			opts = append(opts, whisper.WithLanguage(lang))
		}
		return whisper.New(entry.BaseURL, opts...)

	case "openai":
		var opts []openaitr.Option
		if entry.BaseURL != "" {
			opts = append(opts, openaitr.WithBaseURL(entry.BaseURL))
		}
		return openaitr.New(entry.APIKey, entry.Model, opts...)
	}
	return nil, fmt.Errorf("unknown transcription provider %q", entry.Name)
}

// buildChatClient creates the chat completion client named in entry.
func buildChatClient(entry config.ProviderEntry) (*chat.Client, error) {
	switch entry.Name {
	case "openai":
		var opts []chat.Option
		if entry.BaseURL != "" {
			opts = append(opts, chat.WithBaseURL(entry.BaseURL))
		}
		return chat.New(entry.APIKey, entry.Model, opts...)
	}
	return nil, fmt.Errorf("unknown chat provider %q", entry.Name)
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, listenAddr string) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         voxtask — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("Transcription", cfg.Providers.Transcription.Name, cfg.Providers.Transcription.Model)
	printProvider("Chat", cfg.Providers.Chat.Name, cfg.Providers.Chat.Model)
	backend := cfg.Tasks.Backend
	if backend == "" {
		backend = config.TaskBackendMemory
	}
	fmt.Printf("║  Task store       : %-18s ║\n", backend)
	fmt.Printf("║  Listen addr      : %-18s ║\n", listenAddr)
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 18 {
		value = value[:15] + "…"
	}
	fmt.Printf("║  %-14s   : %-18s ║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(level config.LogLevel) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// optString extracts a string value from a provider Options map[string]any.
// Returns "" if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	if opts == nil {
		return ""
	}
	v, ok := opts[key]
	if !ok {
		return ""
	}
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return s
}
