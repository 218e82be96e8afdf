package engines

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// DownloadImage fetches a URL to outPath, retrying transient failures with
// exponential backoff. Image hosts time out often enough that a single
// attempt wastes an otherwise-good unit.
func DownloadImage(ctx context.Context, client *http.Client, url, outPath string) error {
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; narrated-video-pipeline/1.0)")

		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("HTTP %d from %s", resp.StatusCode, url)
			if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
				return backoff.Permanent(err)
			}
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		// A tiny body is an error page, not an image.
		if len(data) < 100 {
			return fmt.Errorf("response too small (%d bytes), likely an error page", len(data))
		}
		return os.WriteFile(outPath, data, 0644)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(operation, policy)
}
