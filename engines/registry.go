package engines

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"narrated-video-pipeline/config"
)

// Registry maps logical engine names to implementations per capability
// class and applies the primary/fallback invocation protocol. Engines are
// registered explicitly at startup; there is no filesystem discovery.
type Registry struct {
	log     zerolog.Logger
	limiter *rate.Limiter
	tts     map[string]TTSEngine
	image   map[string]ImageEngine
}

// NewRegistry creates an empty registry. The limiter gates every engine
// invocation; external backends are rate limited and slow, and a single
// limiter keeps parallel units from stampeding them.
func NewRegistry(log zerolog.Logger, limiter *rate.Limiter) *Registry {
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Registry{
		log:     log,
		limiter: limiter,
		tts:     make(map[string]TTSEngine),
		image:   make(map[string]ImageEngine),
	}
}

// RegisterTTS adds a text-to-speech engine under a logical name.
func (r *Registry) RegisterTTS(name string, engine TTSEngine) {
	r.tts[strings.ToLower(name)] = engine
}

// RegisterImage adds an image generation engine under a logical name.
func (r *Registry) RegisterImage(name string, engine ImageEngine) {
	r.image[strings.ToLower(name)] = engine
}

// TTSEngines lists the registered text-to-speech engine names.
func (r *Registry) TTSEngines() []string { return sortedKeysTTS(r.tts) }

// ImageEngines lists the registered image engine names.
func (r *Registry) ImageEngines() []string { return sortedKeysImage(r.image) }

// SynthesizeVoice invokes the primary engine, then the fallback when the
// primary is missing or fails. A primary failure is logged and carried, not
// propagated, so the fallback always gets its chance.
func (r *Registry) SynthesizeVoice(ctx context.Context, text, outPath, primary, fallback string, opts TTSOptions) error {
	primary, fallback = strings.ToLower(primary), strings.ToLower(fallback)

	var primaryErr error
	if engine, ok := r.tts[primary]; ok {
		if primaryErr = r.invoke(ctx, func() error { return engine.Synthesize(ctx, text, outPath, opts) }); primaryErr == nil {
			return nil
		}
		r.log.Warn().Err(primaryErr).Str("engine", primary).Msg("primary TTS engine failed")
	}

	if engine, ok := r.tts[fallback]; ok && fallback != primary {
		r.log.Info().Str("engine", fallback).Msg("using fallback TTS engine")
		if err := r.invoke(ctx, func() error { return engine.Synthesize(ctx, text, outPath, opts) }); err != nil {
			return fmt.Errorf("fallback TTS engine %s failed: %w (primary: %v)", fallback, err, primaryErr)
		}
		return nil
	}

	return &UnavailableError{
		Capability: "TTS",
		Requested:  []string{primary, fallback},
		Registered: r.TTSEngines(),
		Cause:      primaryErr,
	}
}

// GenerateImage applies the same protocol for image generation.
func (r *Registry) GenerateImage(ctx context.Context, prompt, outPath, primary, fallback string, opts ImageOptions) error {
	primary, fallback = strings.ToLower(primary), strings.ToLower(fallback)

	var primaryErr error
	if engine, ok := r.image[primary]; ok {
		if primaryErr = r.invoke(ctx, func() error { return engine.Generate(ctx, prompt, outPath, opts) }); primaryErr == nil {
			return nil
		}
		r.log.Warn().Err(primaryErr).Str("engine", primary).Msg("primary image engine failed")
	}

	if engine, ok := r.image[fallback]; ok && fallback != primary {
		r.log.Info().Str("engine", fallback).Msg("using fallback image engine")
		if err := r.invoke(ctx, func() error { return engine.Generate(ctx, prompt, outPath, opts) }); err != nil {
			return fmt.Errorf("fallback image engine %s failed: %w (primary: %v)", fallback, err, primaryErr)
		}
		return nil
	}

	return &UnavailableError{
		Capability: "image",
		Requested:  []string{primary, fallback},
		Registered: r.ImageEngines(),
		Cause:      primaryErr,
	}
}

func (r *Registry) invoke(ctx context.Context, call func() error) error {
	if err := r.limiter.Wait(ctx); err != nil {
		return err
	}
	return call()
}

// Default registers every engine whose prerequisites are present and fails
// when a capability class ends up empty. Engines with credentials register
// only when the credential exists; espeak and pollinations need none.
func Default(cfg *config.Config, log zerolog.Logger, limiter *rate.Limiter) (*Registry, error) {
	r := NewRegistry(log, limiter)

	if path, err := espeakBinary(); err == nil {
		r.RegisterTTS("espeak", &Espeak{Binary: path})
	}
	if key := config.ElevenLabsAPIKey(); key != "" {
		r.RegisterTTS("elevenlabs", NewElevenLabs(key))
	}

	r.RegisterImage("pollinations", NewPollinations())
	if key := config.OpenAIAPIKey(); key != "" {
		r.RegisterImage("dalle", NewDalle(key))
	}
	if key := config.UnsplashAccessKey(); key != "" {
		r.RegisterImage("unsplash", NewUnsplash(key))
	}

	if len(r.tts) == 0 {
		return nil, &UnavailableError{Capability: "TTS", Registered: nil,
			Requested: []string{cfg.TTS.Engine, cfg.TTS.FallbackEngine}}
	}
	if len(r.image) == 0 {
		return nil, &UnavailableError{Capability: "image", Registered: nil,
			Requested: []string{cfg.Image.Engine, cfg.Image.FallbackEngine}}
	}

	log.Info().
		Strs("tts", r.TTSEngines()).
		Strs("image", r.ImageEngines()).
		Msg("engines registered")
	return r, nil
}

func sortedKeysTTS(m map[string]TTSEngine) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysImage(m map[string]ImageEngine) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
