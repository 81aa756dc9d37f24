package wikimedia

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// ErrEmptyFile is returned when a download finishes without any bytes.
var ErrEmptyFile = errors.New("downloaded file is empty")

// newBackOff waits RetryInterval, then doubles it, for at most Retries attempts in total.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryInterval
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.retries-1)), ctx)
}

// Download fetches rawURL into path. Network and server errors are retried;
// a non-image response or an empty body fails immediately.
func (c *Client) Download(ctx context.Context, rawURL, path string) error {
	attempt := 0
	op := func() error {
		attempt++
		return c.downloadOnce(ctx, rawURL, path)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn(fmt.Sprintf("Download attempt %d failed", attempt), "url", rawURL, "error", err, "retry_in", wait)
	}

	if err := backoff.RetryNotify(op, c.newBackOff(ctx), notify); err != nil {
		return fmt.Errorf("download %s: %w", rawURL, err)
	}
	return nil
}

func (c *Client) downloadOnce(ctx context.Context, rawURL, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("could not create request: %w", err))
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.download.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); !strings.HasPrefix(mediaType, "image/") {
		return backoff.Permanent(fmt.Errorf("%w (content-type: %s)", ErrNotImage, contentType))
	}

	n, err := writeFile(path, resp.Body)
	if err != nil {
		return err
	}
	if n == 0 {
		return backoff.Permanent(ErrEmptyFile)
	}
	return nil
}

// writeFile streams r into a temp file next to path and renames it into
// place once complete. Nothing is left behind on error or when r is empty.
func writeFile(path string, r io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".download-*")
	if err != nil {
		return 0, fmt.Errorf("could not create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return n, fmt.Errorf("could not write image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("could not close temp file: %w", err)
	}
	if n == 0 {
		return 0, nil
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return n, fmt.Errorf("could not move image into place: %w", err)
	}
	return n, nil
}
