// Command lingomirror is the interactive persona-mirroring language coach.
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

	"github.com/joho/godotenv"
	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/lingomirror/internal/coach"
	"github.com/MrWong99/lingomirror/internal/config"
	"github.com/MrWong99/lingomirror/internal/observe"
	"github.com/MrWong99/lingomirror/internal/resilience"
	"github.com/MrWong99/lingomirror/internal/speech"
	"github.com/MrWong99/lingomirror/pkg/provider/llm"
	"github.com/MrWong99/lingomirror/pkg/provider/llm/anyllm"
	oaillm "github.com/MrWong99/lingomirror/pkg/provider/llm/openai"
	"github.com/MrWong99/lingomirror/pkg/provider/stt"
	geministt "github.com/MrWong99/lingomirror/pkg/provider/stt/gemini"
	"github.com/MrWong99/lingomirror/pkg/provider/stt/openaistt"
	"github.com/MrWong99/lingomirror/pkg/provider/tts"
	"github.com/MrWong99/lingomirror/pkg/provider/tts/elevenlabs"
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// API keys are commonly kept in a .env next to the config; absence is fine.
	_ = godotenv.Load()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "lingomirror: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "lingomirror: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	slog.Info("lingomirror starting",
		"config", *configPath,
		"learning_language", cfg.Coach.LearningLanguage,
		"feedback_language", cfg.Coach.FeedbackLanguage,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Metrics ───────────────────────────────────────────────────────────────
	shutdownMetrics, err := observe.InitProvider(ctx, observe.ProviderConfig{})
	if err != nil {
		slog.Error("failed to initialise metrics", "err", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownMetrics(shutdownCtx); err != nil {
			slog.Warn("metrics shutdown error", "err", err)
		}
	}()

	// ── Provider registry ─────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)

	c, err := buildCoach(cfg, reg)
	if err != nil {
		slog.Error("failed to build coach", "err", err)
		return 1
	}

	printStartupSummary(cfg)

	// ── Serve metrics and run the REPL ────────────────────────────────────────
	g, ctx := errgroup.WithContext(ctx)

	if addr := cfg.Metrics.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}

		g.Go(func() error {
			slog.Info("metrics endpoint listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer stop() // ending the REPL ends the process
		return repl(ctx, c, cfg.Coach)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// registerBuiltinProviders wires all built-in provider factories into reg.
func registerBuiltinProviders(reg *config.Registry) {
	// ── LLM ───────────────────────────────────────────────────────────────────
	// The OpenAI API is spoken through the official client; the remaining
	// hosted backends share the any-llm pattern of optional APIKey + BaseURL.
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []oaillm.Option
		if entry.BaseURL != "" {
			opts = append(opts, oaillm.WithBaseURL(entry.BaseURL))
		}
		return oaillm.New(entry.APIKey, entry.Model, opts...)
	})

	for _, providerName := range []string{
		"anthropic", "gemini", "deepseek", "mistral", "groq",
	} {
		reg.RegisterLLM(providerName, func(entry config.ProviderEntry) (llm.Provider, error) {
			var opts []anyllmlib.Option
			if entry.APIKey != "" {
				opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
			}
			if entry.BaseURL != "" {
				opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
			}
			return anyllm.New(providerName, entry.Model, opts...)
		})
	}

	// ── STT ───────────────────────────────────────────────────────────────────

	reg.RegisterSTT("gemini", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []geministt.Option
		if entry.Model != "" {
			opts = append(opts, geministt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, geministt.WithBaseURL(entry.BaseURL))
		}
		return geministt.New(entry.APIKey, opts...)
	})

	reg.RegisterSTT("openai", func(entry config.ProviderEntry) (stt.Provider, error) {
		var opts []openaistt.Option
		if entry.Model != "" {
			opts = append(opts, openaistt.WithModel(entry.Model))
		}
		if entry.BaseURL != "" {
			opts = append(opts, openaistt.WithBaseURL(entry.BaseURL))
		}
		return openaistt.New(entry.APIKey, opts...)
	})

	// ── TTS ───────────────────────────────────────────────────────────────────

	reg.RegisterTTS("elevenlabs", func(entry config.ProviderEntry) (tts.Provider, error) {
		var opts []elevenlabs.Option
		if entry.Model != "" {
			opts = append(opts, elevenlabs.WithModel(entry.Model))
		}
		if outputFmt := optString(entry.Options, "output_format"); outputFmt != "" {
			opts = append(opts, elevenlabs.WithOutputFormat(outputFmt))
		}
		return elevenlabs.New(entry.APIKey, opts...)
	})
}

// buildCoach instantiates the configured providers, wraps each behind a
// circuit breaker, and assembles the coach.
func buildCoach(cfg *config.Config, reg *config.Registry) (*coach.Coach, error) {
	breaker := resilience.FallbackConfig{
		CircuitBreaker: resilience.CircuitBreakerConfig{
			MaxFailures: 3,
			CoolDown:    30 * time.Second,
		},
	}

	llmProv, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name)
	guardedLLM := resilience.NewLLMFallback(llmProv, cfg.Providers.LLM.Name, breaker)

	var guardedSTT stt.Provider
	if name := cfg.Providers.STT.Name; name != "" {
		p, err := reg.CreateSTT(cfg.Providers.STT)
		if err != nil {
			return nil, fmt.Errorf("create stt provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "stt", "name", name)
		guardedSTT = resilience.NewSTTFallback(p, name, breaker)
	}

	var synth *speech.Synthesizer
	if name := cfg.Providers.TTS.Name; name != "" {
		p, err := reg.CreateTTS(cfg.Providers.TTS)
		if err != nil {
			return nil, fmt.Errorf("create tts provider %q: %w", name, err)
		}
		slog.Info("provider created", "kind", "tts", "name", name)

		voice := cfg.Coach.Voices[cfg.Coach.LearningLanguage]
		if voice.VoiceID == "" {
			slog.Warn("no voice configured for learning language; replies will not be vocalised",
				"language", cfg.Coach.LearningLanguage)
		} else {
			synth = speech.NewSynthesizer(
				resilience.NewTTSFallback(p, name, breaker),
				tts.VoiceProfile{ID: voice.VoiceID, Provider: voice.Provider},
			)
		}
	}

	persona := cfg.Coach.ResolveDefaultPersona()
	return coach.New(coach.Config{
		LLM:              guardedLLM,
		STT:              guardedSTT,
		Synthesizer:      synth,
		Persona:          personaPrompt(persona),
		LearningLanguage: cfg.Coach.LearningLanguage,
		FeedbackLanguage: cfg.Coach.FeedbackLanguage,
		STTLanguage:      optString(cfg.Providers.STT.Options, "language"),
		LevelThreshold:   cfg.Coach.LevelThreshold,
		HistoryWindow:    cfg.Coach.HistoryWindow,
	})
}

// personaPrompt joins a persona's name and description into the string
// injected into the system prompt.
func personaPrompt(p config.PersonaConfig) string {
	if p.Description == "" {
		return p.Name
	}
	return p.Name + " (" + p.Description + ")"
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║       LingoMirror — speech coach      ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printProvider("LLM", cfg.Providers.LLM.Name, cfg.Providers.LLM.Model)
	printProvider("STT", cfg.Providers.STT.Name, cfg.Providers.STT.Model)
	printProvider("TTS", cfg.Providers.TTS.Name, cfg.Providers.TTS.Model)
	fmt.Printf("║  Learning lang   : %-19s║\n", cfg.Coach.LearningLanguage)
	fmt.Printf("║  Feedback lang   : %-19s║\n", cfg.Coach.FeedbackLanguage)
	fmt.Printf("║  Personas        : %-19d║\n", len(cfg.Coach.Personas))
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printProvider(kind, name, model string) {
	value := name
	if value == "" {
		value = "(not configured)"
	} else if model != "" {
		value = name + " / " + model
	}
	if len(value) > 19 {
		value = value[:16] + "…"
	}
	fmt.Printf("║  %-12s    : %-19s║\n", kind, value)
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var lvl slog.Level
	switch cfg.Level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogWarn:
		lvl = slog.LevelWarn
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if cfg.JSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
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
