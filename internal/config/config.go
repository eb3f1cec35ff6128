// Package config provides the configuration schema, loader, and provider
// registry for LingoMirror.
package config

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for LingoMirror.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Providers ProvidersConfig `yaml:"providers"`
	Coach     CoachConfig     `yaml:"coach"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level controls verbosity. Defaults to info.
	Level LogLevel `yaml:"level"`

	// JSON switches the handler from human-readable text to JSON lines.
	JSON bool `yaml:"json"`
}

// MetricsConfig configures the Prometheus scrape endpoint.
type MetricsConfig struct {
	// ListenAddr is the TCP address the /metrics endpoint listens on
	// (e.g., ":9090"). Empty disables the endpoint.
	ListenAddr string `yaml:"listen_addr"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	LLM ProviderEntry `yaml:"llm"`
	STT ProviderEntry `yaml:"stt"`
	TTS ProviderEntry `yaml:"tts"`
}

// ProviderEntry is the common configuration block shared by all provider
// types. The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai",
	// "gemini", "elevenlabs").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o",
	// "whisper-1").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// CoachConfig holds the coaching session settings: personas, languages, and
// tuning knobs for diagnosis and prompting.
type CoachConfig struct {
	// Personas lists the personas the learner can role-play against.
	Personas []PersonaConfig `yaml:"personas"`

	// DefaultPersona names the persona active when a session starts. Must
	// match one of the Personas entries; empty selects the first entry.
	DefaultPersona string `yaml:"default_persona"`

	// LearningLanguage is the language the learner is practising (e.g.,
	// "English").
	LearningLanguage string `yaml:"learning_language"`

	// FeedbackLanguage is the language corrective feedback is written in
	// (e.g., "Korean").
	FeedbackLanguage string `yaml:"feedback_language"`

	// Voices maps a learning language to the TTS voice used for it.
	Voices map[string]VoiceConfig `yaml:"voices"`

	// LevelThreshold overrides the adjusted-complexity boundary between
	// beginner and intermediate. Zero keeps the built-in default.
	LevelThreshold float64 `yaml:"level_threshold"`

	// HistoryWindow overrides how many trailing conversation turns are folded
	// into a generation request. Zero keeps the built-in default.
	HistoryWindow int `yaml:"history_window"`
}

// PersonaConfig describes one practisable persona.
type PersonaConfig struct {
	// Name is the short identifier used in the UI (e.g., "confident business
	// leader").
	Name string `yaml:"name"`

	// Description is an optional longer characterisation injected into the
	// system prompt alongside the name.
	Description string `yaml:"description"`
}

// VoiceConfig specifies the TTS voice for a learning language.
type VoiceConfig struct {
	// Provider is the TTS provider name (e.g., "elevenlabs").
	Provider string `yaml:"provider"`

	// VoiceID is the provider-specific voice identifier.
	VoiceID string `yaml:"voice_id"`
}
