package config_test

import (
	"strings"
	"testing"

	"github.com/voxtask/voxtask/internal/config"
)

const validYAML = `
server:
  listen_addr: ":8080"
  log_level: "debug"
audio:
  sample_rate: 16000
  block_size: 1024
  voice_threshold: 0.05
  silence_timeout_ms: 1000
  min_utterance_ms: 100
providers:
  transcription:
    name: whisper
    base_url: "http://localhost:8081"
    options:
      language: en
  chat:
    name: openai
    api_key: "sk-test"
    model: "gpt-4o-mini"
agent:
  max_turns: 8
  instructions: "manage the list"
tasks:
  backend: memory
`

func TestLoadFromReader_Valid(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(validYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":8080" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Server.LogLevel != config.LogDebug {
		t.Errorf("log_level = %q", cfg.Server.LogLevel)
	}
	if cfg.Audio.SilenceTimeoutMs != 1000 {
		t.Errorf("silence_timeout_ms = %d", cfg.Audio.SilenceTimeoutMs)
	}
	if cfg.Audio.MinUtteranceMs != 100 {
		t.Errorf("min_utterance_ms = %d", cfg.Audio.MinUtteranceMs)
	}
	if cfg.Providers.Transcription.Name != "whisper" {
		t.Errorf("transcription provider = %q", cfg.Providers.Transcription.Name)
	}
	if lang := cfg.Providers.Transcription.Options["language"]; lang != "en" {
		t.Errorf("language option = %v", lang)
	}
	if cfg.Agent.MaxTurns != 8 {
		t.Errorf("max_turns = %d", cfg.Agent.MaxTurns)
	}
	if cfg.Tasks.Backend != config.TaskBackendMemory {
		t.Errorf("tasks backend = %q", cfg.Tasks.Backend)
	}
}

func TestLoadFromReader_UnknownFieldIsRejected(t *testing.T) {
	t.Parallel()

	const yml = `
server:
  listen_adress: ":8080"
providers:
  transcription:
    name: whisper
  chat:
    name: openai
`
	if _, err := config.LoadFromReader(strings.NewReader(yml)); err == nil {
		t.Fatal("expected error for misspelled field, got nil")
	}
}

func TestLoadFromReader_MalformedYAML(t *testing.T) {
	t.Parallel()

	if _, err := config.LoadFromReader(strings.NewReader("server: [")); err == nil {
		t.Fatal("expected error for malformed YAML, got nil")
	}
}

func TestLoad_MissingFile(t *testing.T) {
	t.Parallel()

	if _, err := config.Load("/does/not/exist.yaml"); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() *config.Config {
		return &config.Config{
			Providers: config.ProvidersConfig{
				Transcription: config.ProviderEntry{Name: "whisper", BaseURL: "http://localhost:8081"},
				Chat:          config.ProviderEntry{Name: "openai", APIKey: "sk-test", Model: "gpt-4o-mini"},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*config.Config)
		wantErr string // substring of the validation error; "" means valid
	}{
		{
			name:   "minimal valid config",
			mutate: func(c *config.Config) {},
		},
		{
			name:    "invalid log level",
			mutate:  func(c *config.Config) { c.Server.LogLevel = "verbose" },
			wantErr: "server.log_level",
		},
		{
			name:    "tls without key file",
			mutate:  func(c *config.Config) { c.Server.TLS = &config.TLSConfig{CertFile: "cert.pem"} },
			wantErr: "server.tls",
		},
		{
			name:    "voice threshold above one",
			mutate:  func(c *config.Config) { c.Audio.VoiceThreshold = 1.5 },
			wantErr: "audio.voice_threshold",
		},
		{
			name:    "negative silence timeout",
			mutate:  func(c *config.Config) { c.Audio.SilenceTimeoutMs = -1 },
			wantErr: "audio.silence_timeout_ms",
		},
		{
			name:    "missing transcription provider",
			mutate:  func(c *config.Config) { c.Providers.Transcription.Name = "" },
			wantErr: "providers.transcription.name",
		},
		{
			name:    "missing chat provider",
			mutate:  func(c *config.Config) { c.Providers.Chat.Name = "" },
			wantErr: "providers.chat.name",
		},
		{
			name:    "negative max turns",
			mutate:  func(c *config.Config) { c.Agent.MaxTurns = -1 },
			wantErr: "agent.max_turns",
		},
		{
			name:    "unknown task backend",
			mutate:  func(c *config.Config) { c.Tasks.Backend = "redis" },
			wantErr: "tasks.backend",
		},
		{
			name:    "postgres backend without DSN",
			mutate:  func(c *config.Config) { c.Tasks.Backend = config.TaskBackendPostgres },
			wantErr: "tasks.postgres_dsn",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := base()
			tt.mutate(cfg)
			err := config.Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate: unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate: expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate: error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_CollectsMultipleFailures(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Server: config.ServerConfig{LogLevel: "verbose"},
		Audio:  config.AudioConfig{VoiceThreshold: 2},
	}
	err := config.Validate(cfg)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"server.log_level", "audio.voice_threshold", "providers.transcription.name", "providers.chat.name"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("joined error %q misses %q", err, want)
		}
	}
}
