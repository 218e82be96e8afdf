package engines

import (
	"context"
	"fmt"
	"hash/fnv"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Pollinations generates images via the free pollinations.ai diffusion
// endpoint. No credential required, which makes it the default primary.
type Pollinations struct {
	httpClient *http.Client
}

func NewPollinations() *Pollinations {
	return &Pollinations{httpClient: &http.Client{Timeout: 60 * time.Second}}
}

// Generate builds the prompt URL and downloads the rendered image. The seed
// is derived from the prompt so regeneration is reproducible.
func (p *Pollinations) Generate(ctx context.Context, prompt, outPath string, opts ImageOptions) error {
	model := opts.Model
	if model == "" {
		model = "flux"
	}
	width, height := parseSize(opts.Size)

	imageURL := fmt.Sprintf(
		"https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=%s&seed=%d",
		url.PathEscape(prompt), width, height, url.QueryEscape(model), promptSeed(prompt),
	)
	return DownloadImage(ctx, p.httpClient, imageURL, outPath)
}

func parseSize(size string) (int, int) {
	parts := strings.SplitN(size, "x", 2)
	if len(parts) == 2 {
		var w, h int
		if _, err := fmt.Sscanf(size, "%dx%d", &w, &h); err == nil && w > 0 && h > 0 {
			return w, h
		}
	}
	return 1024, 1024
}

func promptSeed(prompt string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(prompt))
	return h.Sum32()
}
