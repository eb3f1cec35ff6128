package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm": {"openai", "anthropic", "gemini", "deepseek", "mistral", "groq"},
	"stt": {"gemini", "openai"},
	"tts": {"elevenlabs"},
}

// Load reads the YAML configuration file at path and returns a validated
// [Config]. It is a convenience wrapper around [LoadFromReader].
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
// References like ${OPENAI_API_KEY} are expanded from the environment before
// decoding, so API keys can live in a .env file instead of the config.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("config: read: %w", err)
	}

	cfg := &Config{}
	dec := yaml.NewDecoder(strings.NewReader(os.ExpandEnv(string(raw))))
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

	if cfg.Logging.Level != "" && !cfg.Logging.Level.IsValid() {
		errs = append(errs, fmt.Errorf("logging.level %q is invalid; valid values: debug, info, warn, error", cfg.Logging.Level))
	}

	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("tts", cfg.Providers.TTS.Name)

	if cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm is required; the coach cannot evaluate turns without a generation backend"))
	}
	if cfg.Providers.STT.Name == "" {
		slog.Warn("no STT provider configured; spoken input will be unavailable")
	}
	if cfg.Providers.TTS.Name == "" {
		slog.Warn("no TTS provider configured; replies will not be vocalised")
	}

	if cfg.Coach.LearningLanguage == "" {
		errs = append(errs, errors.New("coach.learning_language is required"))
	}
	if cfg.Coach.FeedbackLanguage == "" {
		errs = append(errs, errors.New("coach.feedback_language is required"))
	}
	if len(cfg.Coach.Personas) == 0 {
		errs = append(errs, errors.New("coach.personas must list at least one persona"))
	}

	personasSeen := make(map[string]int, len(cfg.Coach.Personas))
	for i, p := range cfg.Coach.Personas {
		prefix := fmt.Sprintf("coach.personas[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if prev, ok := personasSeen[p.Name]; ok {
			errs = append(errs, fmt.Errorf("%s.name %q is a duplicate of coach.personas[%d]", prefix, p.Name, prev))
		}
		personasSeen[p.Name] = i
	}

	if d := cfg.Coach.DefaultPersona; d != "" {
		if _, ok := personasSeen[d]; !ok {
			errs = append(errs, fmt.Errorf("coach.default_persona %q does not match any coach.personas entry", d))
		}
	}

	if cfg.Coach.LevelThreshold < 0 {
		errs = append(errs, fmt.Errorf("coach.level_threshold %.2f must not be negative", cfg.Coach.LevelThreshold))
	}
	if cfg.Coach.HistoryWindow < 0 {
		errs = append(errs, fmt.Errorf("coach.history_window %d must not be negative", cfg.Coach.HistoryWindow))
	}

	for lang, v := range cfg.Coach.Voices {
		if v.VoiceID == "" {
			errs = append(errs, fmt.Errorf("coach.voices[%q].voice_id is required", lang))
		}
		if v.Provider != "" && cfg.Providers.TTS.Name != "" && v.Provider != cfg.Providers.TTS.Name {
			slog.Warn("voice provider does not match configured TTS provider",
				"language", lang,
				"voice_provider", v.Provider,
				"tts_provider", cfg.Providers.TTS.Name,
			)
		}
	}

	return errors.Join(errs...)
}

// ResolveDefaultPersona returns the persona active at session start: the
// configured default, or the first listed persona.
func (c CoachConfig) ResolveDefaultPersona() PersonaConfig {
	for _, p := range c.Personas {
		if p.Name == c.DefaultPersona {
			return p
		}
	}
	if len(c.Personas) > 0 {
		return c.Personas[0]
	}
	return PersonaConfig{}
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
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
