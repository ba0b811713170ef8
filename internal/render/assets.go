package render

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/image/draw"
)

// BadgeCache downloads row badge images (class icons, flags) and caches the
// decoded bytes on disk keyed by URL hash. Fetch failures degrade to a nil
// image; the board renders without the badge.
type BadgeCache struct {
	client *resty.Client
	dir    string
	logger *zap.Logger

	mu     sync.Mutex
	memory map[string]image.Image
}

// NewBadgeCache builds a cache rooted at dir.
func NewBadgeCache(dir string, logger *zap.Logger) (*BadgeCache, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create asset cache dir %s: %w", dir, err)
	}
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(2).
		SetRetryWaitTime(300 * time.Millisecond)
	return &BadgeCache{
		client: client,
		dir:    dir,
		logger: logger,
		memory: make(map[string]image.Image),
	}, nil
}

// Get returns the badge image for url, or nil when it cannot be fetched or
// decoded.
func (c *BadgeCache) Get(ctx context.Context, url string) image.Image {
	if url == "" {
		return nil
	}
	key := hashURL(url)

	c.mu.Lock()
	if img, ok := c.memory[key]; ok {
		c.mu.Unlock()
		return img
	}
	c.mu.Unlock()

	img := c.load(ctx, url, key)
	if img != nil {
		c.mu.Lock()
		c.memory[key] = img
		c.mu.Unlock()
	}
	return img
}

func (c *BadgeCache) load(ctx context.Context, url, key string) image.Image {
	path := filepath.Join(c.dir, key+".png")
	if data, err := os.ReadFile(path); err == nil {
		if img, _, decErr := image.Decode(bytes.NewReader(data)); decErr == nil {
			return img
		}
	}

	resp, err := c.client.R().SetContext(ctx).Get(url)
	if err != nil || resp.StatusCode() != 200 {
		c.logger.Warn("badge fetch failed", zap.String("url", url), zap.Error(err))
		return nil
	}
	img, _, err := image.Decode(bytes.NewReader(resp.Body()))
	if err != nil {
		c.logger.Warn("badge decode failed", zap.String("url", url), zap.Error(err))
		return nil
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err == nil {
		if writeErr := os.WriteFile(path, buf.Bytes(), 0o600); writeErr != nil {
			c.logger.Warn("badge cache write failed", zap.String("path", path), zap.Error(writeErr))
		}
	}
	return img
}

// scaleToHeight resizes img so its height equals h, preserving aspect ratio.
func scaleToHeight(img image.Image, h int) image.Image {
	bounds := img.Bounds()
	if bounds.Dy() == 0 || bounds.Dy() == h {
		return img
	}
	w := bounds.Dx() * h / bounds.Dy()
	if w <= 0 {
		w = 1
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)
	return dst
}

func hashURL(raw string) string {
	sum := sha1.Sum([]byte(raw))
	return hex.EncodeToString(sum[:])
}
