package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/bnema/cosmetic-filters/internal/models"
	"go.uber.org/zap"
)

const userAgent = "cosmetic-filters/1.0"

// Fetcher downloads filter lists
type Fetcher struct {
	client  *http.Client
	retries int
	backoff time.Duration
	logger  *zap.Logger
}

// New creates a new fetcher from config. A nil logger discards everything.
func New(cfg models.HTTPConfig, logger *zap.Logger) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	retries := cfg.Retries
	if retries == 0 {
		retries = 3
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Fetcher{
		client: &http.Client{
			Timeout: timeout,
		},
		retries: retries,
		backoff: time.Second,
		logger:  logger,
	}
}

// Load returns the content of a configured filter list, from its URL or
// its local path
func (f *Fetcher) Load(ctx context.Context, list models.FilterList) ([]byte, error) {
	if list.URL != "" {
		return f.Fetch(ctx, list.URL)
	}
	return readFile(list.Path)
}

// Fetch downloads content from a URL with retries. file:// URLs are read
// from disk.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if path, ok := strings.CutPrefix(url, "file://"); ok {
		return readFile(path)
	}

	var lastErr error

	for i := 0; i < f.retries; i++ {
		if i > 0 {
			// Linear backoff
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(i) * f.backoff):
			}
		}

		data, err := f.doFetch(ctx, url)
		if err == nil {
			f.logger.Debug("fetched filter list",
				zap.String("url", url),
				zap.Int("bytes", len(data)),
				zap.Int("attempt", i+1))
			return data, nil
		}
		lastErr = err
		f.logger.Warn("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", i+1),
			zap.Error(err))
	}

	return nil, fmt.Errorf("failed after %d retries: %w", f.retries, lastErr)
}

func (f *Fetcher) doFetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	return io.ReadAll(resp.Body)
}

func readFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read filter list: %w", err)
	}
	return data, nil
}
