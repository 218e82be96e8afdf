package engines

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const unsplashSearchURL = "https://api.unsplash.com/search/photos"

type unsplashResponse struct {
	Results []struct {
		AltDescription string `json:"alt_description"`
		URLs           struct {
			Regular string `json:"regular"`
		} `json:"urls"`
	} `json:"results"`
}

// Unsplash is the stock-photo fallback: it searches for the prompt and
// downloads the best match rather than generating anything.
type Unsplash struct {
	accessKey  string
	httpClient *http.Client
}

func NewUnsplash(accessKey string) *Unsplash {
	return &Unsplash{accessKey: accessKey, httpClient: &http.Client{Timeout: 60 * time.Second}}
}

func (u *Unsplash) Generate(ctx context.Context, prompt, outPath string, opts ImageOptions) error {
	query := url.Values{}
	query.Set("query", prompt)
	query.Set("per_page", "1")
	query.Set("orientation", "landscape")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, unsplashSearchURL+"?"+query.Encode(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Client-ID "+u.accessKey)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unsplash search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unsplash: HTTP %d: %s", resp.StatusCode, string(msg))
	}

	var parsed unsplashResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return fmt.Errorf("unsplash: parse response: %w", err)
	}
	if len(parsed.Results) == 0 {
		return fmt.Errorf("unsplash: no photos found for prompt")
	}

	return DownloadImage(ctx, u.httpClient, parsed.Results[0].URLs.Regular, outPath)
}
