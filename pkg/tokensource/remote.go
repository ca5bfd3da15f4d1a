package tokensource

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/hashicorp/go-retryablehttp"
)

// maxRemoteBytes caps a remote token document. Real token sets run to
// hundreds of kilobytes; anything past this is a misconfigured URL.
const maxRemoteBytes = 16 << 20

// fetch retrieves a remote token document. Retries and backoff come
// from the retryable client; authentication is deliberately absent.
func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/css, text/plain")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxRemoteBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", maxRemoteBytes)
	}
	return data, nil
}
