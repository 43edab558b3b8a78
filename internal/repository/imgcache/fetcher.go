package imgcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/flagdeck/internal/db"
	domimage "github.com/kailas-cloud/flagdeck/internal/domain/image"
)

// KeyPrefix marks image entries in the store.
const KeyPrefix = "img:"

// store is the consumer interface for the image cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// Fetcher loads a remote image.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (domimage.Image, error)
}

// CachedFetcher memoizes successful fetches in a key-value store.
// Failed fetches are never cached, so a recovered host is retried on the next render.
type CachedFetcher struct {
	inner      Fetcher
	store      store
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"), passed explicitly.
func New(
	inner Fetcher,
	s store,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedFetcher {
	return &CachedFetcher{
		inner:      inner,
		store:      s,
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Fetch returns a cached image or calls the inner fetcher.
func (c *CachedFetcher) Fetch(ctx context.Context, url string) (domimage.Image, error) {
	key := cacheKey(url)

	if img, ok := c.getFromCache(ctx, key); ok {
		c.incCache("hit")
		img.URL = url
		return img, nil
	}

	c.incCache("miss")

	img, err := c.inner.Fetch(ctx, url)
	if err != nil {
		return domimage.Image{}, fmt.Errorf("fetch image: %w", err)
	}

	c.putToCache(ctx, key, img)
	return img, nil
}

func (c *CachedFetcher) incCache(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}

func cacheKey(url string) string {
	h := sha256.Sum256([]byte(url))
	return KeyPrefix + hex.EncodeToString(h[:])
}

// entry is the stored envelope. Data is base64 in JSON.
type entry struct {
	ContentType string `json:"content_type"`
	Format      string `json:"format"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Data        []byte `json:"data"`
}

func (c *CachedFetcher) getFromCache(ctx context.Context, key string) (domimage.Image, bool) {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached image", zap.String("key", key), zap.Error(err))
		}
		return domimage.Image{}, false
	}
	if len(data) == 0 {
		return domimage.Image{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil || len(e.Data) == 0 {
		c.logger.Warn("Evicting unreadable cached image", zap.String("key", key), zap.Error(err))
		if err := c.store.Del(ctx, key); err != nil {
			c.logger.Warn("Failed to evict cached image", zap.String("key", key), zap.Error(err))
		}
		return domimage.Image{}, false
	}

	return domimage.Image{
		ContentType: e.ContentType,
		Format:      e.Format,
		Width:       e.Width,
		Height:      e.Height,
		Data:        e.Data,
	}, true
}

func (c *CachedFetcher) putToCache(ctx context.Context, key string, img domimage.Image) {
	data, err := json.Marshal(entry{
		ContentType: img.ContentType,
		Format:      img.Format,
		Width:       img.Width,
		Height:      img.Height,
		Data:        img.Data,
	})
	if err != nil {
		c.logger.Warn("Failed to encode image for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, c.ttl); err != nil {
		c.logger.Warn("Failed to cache image", zap.String("key", key), zap.Error(err))
	}
}
