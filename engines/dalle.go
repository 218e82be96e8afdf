package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const dalleURL = "https://api.openai.com/v1/images/generations"

type dalleRequest struct {
	Model   string `json:"model"`
	Prompt  string `json:"prompt"`
	N       int    `json:"n"`
	Size    string `json:"size"`
	Quality string `json:"quality,omitempty"`
}

type dalleResponse struct {
	Data []struct {
		URL string `json:"url"`
	} `json:"data"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Dalle generates images through the OpenAI image API, then downloads the
// returned URL.
type Dalle struct {
	apiKey     string
	httpClient *http.Client
}

func NewDalle(apiKey string) *Dalle {
	return &Dalle{apiKey: apiKey, httpClient: &http.Client{Timeout: 90 * time.Second}}
}

func (d *Dalle) Generate(ctx context.Context, prompt, outPath string, opts ImageOptions) error {
	model := opts.Model
	if model == "" {
		model = "dall-e-3"
	}
	size := opts.Size
	if size == "" {
		size = "1024x1024"
	}

	reqBody := dalleRequest{Model: model, Prompt: prompt, N: 1, Size: size}
	// Quality is a DALL-E 3 parameter only.
	if model == "dall-e-3" && opts.Quality != "" {
		reqBody.Quality = opts.Quality
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("dalle: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dalleURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+d.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("dalle request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var parsed dalleResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("dalle: parse response: %w", err)
	}
	if parsed.Error != nil {
		return fmt.Errorf("dalle: %s", parsed.Error.Message)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return fmt.Errorf("dalle: no image in response")
	}

	return DownloadImage(ctx, d.httpClient, parsed.Data[0].URL, outPath)
}
