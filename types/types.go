package types

// Section is one narrated beat of the video. The voice and image stages
// attach sound_file/image_file in place once their unit completes; a section
// is assemblable only when both are present and duration is positive.
type Section struct {
	Heading   string  `json:"heading"`
	Narration string  `json:"narration"`
	Duration  float64 `json:"duration"`
	Style     string  `json:"style,omitempty"`
	SoundFile string  `json:"sound_file,omitempty"`
	ImageFile string  `json:"image_file,omitempty"`
}

// Assemblable reports whether the section carries everything the assembly
// stage needs for a video segment.
func (s *Section) Assemblable() bool {
	return s.Heading != "" && s.Narration != "" && s.Duration > 0 &&
		s.SoundFile != "" && s.ImageFile != ""
}

// TTSSettings selects the text-to-speech engine pair for a run.
type TTSSettings struct {
	Engine         string `json:"engine,omitempty" yaml:"engine"`
	Model          string `json:"model,omitempty" yaml:"model"`
	Voice          string `json:"voice,omitempty" yaml:"voice"`
	FallbackEngine string `json:"fallback_engine,omitempty" yaml:"fallback_engine"`
}

// ImageSettings selects the image generation engine pair and the
// style-to-model table consulted by the image stage.
type ImageSettings struct {
	Engine         string            `json:"engine,omitempty" yaml:"engine"`
	Model          string            `json:"model,omitempty" yaml:"model"`
	Size           string            `json:"size,omitempty" yaml:"size"`
	Quality        string            `json:"quality,omitempty" yaml:"quality"`
	FallbackEngine string            `json:"fallback_engine,omitempty" yaml:"fallback_engine"`
	Models         map[string]string `json:"models,omitempty" yaml:"models"`
}

// Meta travels with the script artifact from generation onward.
type Meta struct {
	Topic       string        `json:"topic"`
	Keywords    []string      `json:"keywords,omitempty"`
	Prompt      string        `json:"prompt,omitempty"`
	Model       string        `json:"model"`
	Language    string        `json:"language,omitempty"`
	TargetAge   string        `json:"target_age,omitempty"`
	Tags        []string      `json:"tags,omitempty"`
	GeneratedAt string        `json:"generated_at"`
	TTS         TTSSettings   `json:"tts,omitempty"`
	Image       ImageSettings `json:"image,omitempty"`
}

// Script is the stage-1 artifact, immutable except for the per-section
// sound_file/image_file attachments made by later stages.
type Script struct {
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	Meta     Meta      `json:"meta"`
}

// Request is the caller-supplied input (input.json).
type Request struct {
	Topic    string   `json:"topic"`
	Keywords []string `json:"keywords,omitempty"`
	Prompt   string   `json:"prompt,omitempty"`
	Model    string   `json:"model,omitempty"`
	Meta     *Meta    `json:"meta,omitempty"`
}

// VoiceEntry is one row of the audio/voice.json manifest.
type VoiceEntry struct {
	SectionIndex  int     `json:"section_index"`
	ScriptHeading string  `json:"script_heading"`
	Filename      string  `json:"filename"`
	Duration      float64 `json:"duration"`
	Speaker       string  `json:"speaker,omitempty"`
	Text          string  `json:"text"`
	Format        string  `json:"format"`
}

// ImageEntry is one row of the images/images.json manifest. Phase 1 of the
// image stage persists the full manifest before any generation happens.
type ImageEntry struct {
	SectionIndex  int    `json:"section_index"`
	ScriptHeading string `json:"script_heading"`
	Filename      string `json:"filename"`
	Prompt        string `json:"prompt"`
	AltText       string `json:"alt_text,omitempty"`
	Resolution    string `json:"resolution,omitempty"`
	Model         string `json:"model,omitempty"`
	Style         string `json:"style,omitempty"`
}

// Progress is the resumption ledger. Section indices are 1-based, matching
// the NN_ prefix of the per-section filenames.
type Progress struct {
	Script bool  `json:"script"`
	Voice  []int `json:"voice"`
	Images []int `json:"images"`
	Video  bool  `json:"video"`
}
