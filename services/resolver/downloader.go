package resolver

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/boardlens/boardlens/logging"
)

const (
	// DefaultMaxAssetBytes bounds a single model download.
	DefaultMaxAssetBytes = 256 << 20
	downloadChunkBytes   = 32 << 10
)

// Downloader streams assets into memory with progress reporting.
type Downloader struct {
	http     *http.Client
	maxBytes int64
	logger   logging.Logger
}

// NewDownloader returns a downloader. A nil httpClient uses http.DefaultClient and a non-positive
// maxBytes uses DefaultMaxAssetBytes.
func NewDownloader(httpClient *http.Client, maxBytes int64, logger logging.Logger) *Downloader {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}
	return &Downloader{http: httpClient, maxBytes: maxBytes, logger: logger}
}

// Download fetches link. Progress is reported in [0,1], never decreases, and ends with 1 on success.
// When the server sends no length, progress is only reported on completion. No partial payload is
// ever returned: cancellation returns the context error, other failures wrap ErrDownloadFailed.
func (d *Downloader) Download(ctx context.Context, link string, onProgress ProgressFunc) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, errors.Wrap(ErrDownloadFailed, err.Error())
	}
	//nolint:bodyclose // closed in UncheckedErrorFunc
	resp, err := d.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrapf(ErrDownloadFailed, "request failed: %v", err)
	}
	defer goutils.UncheckedErrorFunc(resp.Body.Close)

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Wrapf(ErrDownloadFailed, "invalid status code %d", resp.StatusCode)
	}
	total := resp.ContentLength
	if total > d.maxBytes {
		return nil, errors.Wrapf(ErrDownloadFailed, "asset of %d bytes exceeds limit of %d", total, d.maxBytes)
	}

	var buf bytes.Buffer
	report := func(p float64) {
		if onProgress != nil && ctx.Err() == nil {
			onProgress(p)
		}
	}
	last := 0.0
	chunk := make([]byte, downloadChunkBytes)
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		n, readErr := resp.Body.Read(chunk)
		if n > 0 {
			if int64(buf.Len()+n) > d.maxBytes {
				return nil, errors.Wrapf(ErrDownloadFailed, "asset exceeds limit of %d bytes", d.maxBytes)
			}
			buf.Write(chunk[:n])
			if total > 0 {
				if p := float64(buf.Len()) / float64(total); p > last && p < 1 {
					last = p
					report(p)
				}
			}
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if readErr != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, errors.Wrapf(ErrDownloadFailed, "reading body: %v", readErr)
		}
	}
	if total > 0 && int64(buf.Len()) != total {
		return nil, errors.Wrapf(ErrDownloadFailed, "got %d of %d bytes", buf.Len(), total)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	report(1)
	d.logger.Debugw("downloaded asset", "url", link, "bytes", buf.Len())
	return buf.Bytes(), nil
}
