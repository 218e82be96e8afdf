package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"narrated-video-pipeline/types"
)

type Config struct {
	Pipeline PipelineConfig      `yaml:"pipeline"`
	Script   ScriptConfig        `yaml:"script"`
	TTS      types.TTSSettings   `yaml:"tts"`
	Image    types.ImageSettings `yaml:"image"`
	Video    VideoConfig         `yaml:"video"`
	LogLevel string              `yaml:"log_level"`
}

type PipelineConfig struct {
	Workers        int     `yaml:"workers"`
	UnitTimeoutSec int     `yaml:"unit_timeout_sec"`
	EngineCallsSec float64 `yaml:"engine_calls_per_sec"`
}

// UnitTimeout bounds one section's synthesis call. A timed-out unit is a
// unit failure and stays pending in the ledger.
func (p PipelineConfig) UnitTimeout() time.Duration {
	if p.UnitTimeoutSec <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(p.UnitTimeoutSec) * time.Second
}

type ScriptConfig struct {
	Model       string `yaml:"model"`
	MinSections int    `yaml:"min_sections"`
	Language    string `yaml:"language"`
	TargetAge   string `yaml:"target_age"`
}

type VideoConfig struct {
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	FPS         int    `yaml:"fps"`
	VideoCodec  string `yaml:"video_codec"`
	AudioCodec  string `yaml:"audio_codec"`
	PixelFormat string `yaml:"pixel_format"`
	FinalName   string `yaml:"final_name"`
}

// Resolution returns the WxH string used in manifests and scale filters.
func (v VideoConfig) Resolution() string {
	return fmt.Sprintf("%dx%d", v.Width, v.Height)
}

// Default returns the built-in configuration used when no config file is
// present. Credentials always come from the environment, never from YAML.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			Workers:        4,
			UnitTimeoutSec: 300,
			EngineCallsSec: 1,
		},
		Script: ScriptConfig{
			Model:       "models/gemini-1.5-pro-latest",
			MinSections: 2,
			Language:    "en",
			TargetAge:   "6-10",
		},
		TTS: types.TTSSettings{
			Engine:         "espeak",
			FallbackEngine: "espeak",
		},
		Image: types.ImageSettings{
			Engine:         "pollinations",
			Model:          "flux",
			Size:           "1024x1024",
			Quality:        "standard",
			FallbackEngine: "unsplash",
		},
		Video: VideoConfig{
			Width:       1280,
			Height:      720,
			FPS:         24,
			VideoCodec:  "libx264",
			AudioCodec:  "aac",
			PixelFormat: "yuv420p",
			FinalName:   "final_video.mp4",
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file over the defaults. A missing file is not an
// error; everything has a usable default.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 4
	}
	return cfg, nil
}

// GeminiAPIKey returns the script-model credential, or an empty string when
// it is not configured in the environment.
func GeminiAPIKey() string { return os.Getenv("GEMINI_API_KEY") }

// OpenAIAPIKey is the DALL-E credential.
func OpenAIAPIKey() string { return os.Getenv("OPENAI_API_KEY") }

// ElevenLabsAPIKey is the ElevenLabs TTS credential.
func ElevenLabsAPIKey() string { return os.Getenv("ELEVENLABS_API_KEY") }

// UnsplashAccessKey is the stock-photo fallback credential.
func UnsplashAccessKey() string { return os.Getenv("UNSPLASH_ACCESS_KEY") }
