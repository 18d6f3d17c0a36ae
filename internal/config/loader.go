package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"transcription": {"whisper", "openai"},
	"chat":          {"openai"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.TLS != nil {
		if cfg.Server.TLS.CertFile == "" || cfg.Server.TLS.KeyFile == "" {
			errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
		}
	}

	// Audio
	if cfg.Audio.SampleRate < 0 {
		errs = append(errs, fmt.Errorf("audio.sample_rate %d must not be negative", cfg.Audio.SampleRate))
	}
	if cfg.Audio.BlockSize < 0 {
		errs = append(errs, fmt.Errorf("audio.block_size %d must not be negative", cfg.Audio.BlockSize))
	}
	if cfg.Audio.VoiceThreshold < 0 || cfg.Audio.VoiceThreshold > 1 {
		errs = append(errs, fmt.Errorf("audio.voice_threshold %.3f is out of range [0, 1]", cfg.Audio.VoiceThreshold))
	}
	if cfg.Audio.SilenceTimeoutMs < 0 {
		errs = append(errs, fmt.Errorf("audio.silence_timeout_ms %d must not be negative", cfg.Audio.SilenceTimeoutMs))
	}
	if cfg.Audio.MinUtteranceMs < 0 {
		errs = append(errs, fmt.Errorf("audio.min_utterance_ms %d must not be negative", cfg.Audio.MinUtteranceMs))
	}

	// Provider name validation. Warn for unknown provider names.
	validateProviderName("transcription", cfg.Providers.Transcription.Name)
	validateProviderName("chat", cfg.Providers.Chat.Name)

	// Provider availability
	if cfg.Providers.Transcription.Name == "" {
		errs = append(errs, errors.New("providers.transcription.name is required"))
	}
	if cfg.Providers.Chat.Name == "" {
		errs = append(errs, errors.New("providers.chat.name is required"))
	}
	if cfg.Providers.Chat.Model == "" {
		slog.Warn("providers.chat.model is empty; the provider default model will be used")
	}

	// Agent
	if cfg.Agent.MaxTurns < 0 {
		errs = append(errs, fmt.Errorf("agent.max_turns %d must not be negative", cfg.Agent.MaxTurns))
	}

	// Tasks
	if cfg.Tasks.Backend != "" && !cfg.Tasks.Backend.IsValid() {
		errs = append(errs, fmt.Errorf("tasks.backend %q is invalid; valid values: memory, postgres", cfg.Tasks.Backend))
	}
	if cfg.Tasks.Backend == TaskBackendPostgres && cfg.Tasks.PostgresDSN == "" {
		errs = append(errs, errors.New("tasks.postgres_dsn is required when tasks.backend is postgres"))
	}
	if cfg.Tasks.Backend != TaskBackendPostgres && cfg.Tasks.PostgresDSN != "" {
		slog.Warn("tasks.postgres_dsn is set but tasks.backend is not postgres; the DSN will be ignored",
			"backend", cfg.Tasks.Backend,
		)
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
