// Package imagehttp fetches and decodes remote images over HTTP.
package imagehttp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	stdimage "image"
	_ "image/gif"  // register decoder
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder
	_ "golang.org/x/image/webp" // register decoder

	"github.com/kailas-cloud/flagdeck/internal/domain"
	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
	"github.com/kailas-cloud/flagdeck/internal/metrics"
)

// Defaults applied when Config leaves a field zero.
const (
	DefaultTimeout  = 10 * time.Second
	DefaultMaxBytes = 20 << 20
)

// Config holds the image transport settings.
type Config struct {
	Timeout   time.Duration
	MaxBytes  int64
	UserAgent string
	Client    *http.Client // optional; Timeout is ignored when set
	Logger    *zap.Logger
}

// Fetcher downloads an image with a single GET and validates that it decodes.
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	userAgent string
	logger    *zap.Logger
}

// NewFetcher creates an HTTP image fetcher.
func NewFetcher(cfg Config) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxBytes := cfg.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{client: client, maxBytes: maxBytes, userAgent: cfg.UserAgent, logger: logger}
}

// Fetch GETs url and decodes the body header. Non-2xx status, transport failures
// and undecodable bodies all return an error wrapping domain.ErrImageUnavailable.
func (f *Fetcher) Fetch(ctx context.Context, url string) (domimage.Image, error) {
	start := time.Now()
	img, err := f.fetch(ctx, url)
	metrics.ImageFetchDuration.Observe(time.Since(start).Seconds())

	if err != nil {
		var fe *domain.FetchError
		stage := domain.FetchStageNetwork
		if errors.As(err, &fe) {
			stage = fe.Stage
		}
		metrics.ImageFetchTotal.WithLabelValues(stage).Inc()
		f.logger.Debug("image fetch failed", zap.String("url", url), zap.String("stage", stage), zap.Error(err))
		return domimage.Image{}, err
	}

	metrics.ImageFetchTotal.WithLabelValues("ok").Inc()
	return img, nil
}

func (f *Fetcher) fetch(ctx context.Context, url string) (domimage.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageNetwork, url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageNetwork, url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageStatus, url,
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageNetwork, url, fmt.Errorf("read body: %w", err))
	}
	if int64(len(data)) > f.maxBytes {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageDecode, url,
			fmt.Errorf("body exceeds %d bytes", f.maxBytes))
	}

	cfg, format, err := stdimage.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return domimage.Image{}, domain.NewFetchError(domain.FetchStageDecode, url, err)
	}

	// The upstream Content-Type is ignored: only the decoded format is trusted.
	return domimage.Image{
		URL:         url,
		ContentType: "image/" + format,
		Format:      format,
		Width:       cfg.Width,
		Height:      cfg.Height,
		Data:        data,
	}, nil
}
