package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/desertthunder/youfeed/internal/shared"
)

// HTTPDownloader implements [Downloader] with plain GET requests.
//
// Data is streamed into "<dest>.part" which is renamed to dest once complete, so an interrupted transfer
// never leaves a file that looks finished.
type HTTPDownloader struct {
	httpClient *http.Client
}

// NewHTTPDownloader creates a downloader. A nil client gets one with the given timeout.
func NewHTTPDownloader(timeout time.Duration, client *http.Client) *HTTPDownloader {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPDownloader{httpClient: client}
}

// Download implements [Downloader].
func (d *HTTPDownloader) Download(ctx context.Context, url, dest string, progress ProgressFunc) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: status %d", shared.ErrDownloadFailed, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, fmt.Errorf("failed to create directory: %w", err)
	}

	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("failed to create %s: %w", part, err)
	}

	w := &progressWriter{w: f, total: resp.ContentLength, fn: progress}
	n, err := io.Copy(w, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(part)
		return n, fmt.Errorf("%w: %v", shared.ErrDownloadFailed, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		os.Remove(part)
		return n, fmt.Errorf("%w: short body (%d of %d bytes)", shared.ErrDownloadFailed, n, resp.ContentLength)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return n, fmt.Errorf("failed to move download into place: %w", err)
	}
	return n, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.fn != nil {
		p.fn(p.written, p.total)
	}
	return n, err
}
