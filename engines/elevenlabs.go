package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

const elevenLabsURL = "https://api.elevenlabs.io/v1/text-to-speech"

type elevenLabsRequest struct {
	Text          string             `json:"text"`
	ModelID       string             `json:"model_id,omitempty"`
	VoiceSettings elevenLabsSettings `json:"voice_settings"`
}

type elevenLabsSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
}

// ElevenLabs synthesizes narration over the ElevenLabs HTTP API.
type ElevenLabs struct {
	apiKey     string
	httpClient *http.Client
}

func NewElevenLabs(apiKey string) *ElevenLabs {
	return &ElevenLabs{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Synthesize posts the narration and streams the audio response to outPath.
// Voice selects the ElevenLabs voice ID; Model the model ID.
func (e *ElevenLabs) Synthesize(ctx context.Context, text, outPath string, opts TTSOptions) error {
	voice := opts.Voice
	if voice == "" {
		return fmt.Errorf("elevenlabs: voice ID is required")
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:    text,
		ModelID: opts.Model,
		VoiceSettings: elevenLabsSettings{
			Stability:       0.5,
			SimilarityBoost: 0.75,
		},
	})
	if err != nil {
		return fmt.Errorf("elevenlabs: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, elevenLabsURL+"/"+voice, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "audio/mpeg")
	req.Header.Set("xi-api-key", e.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("elevenlabs: HTTP %d: %s", resp.StatusCode, string(msg))
	}

	out, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return fmt.Errorf("elevenlabs: save audio: %w", err)
	}
	return nil
}
