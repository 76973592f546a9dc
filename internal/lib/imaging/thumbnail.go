// Package imaging renders gallery thumbnails.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strconv"
	"time"

	"github.com/nfnt/resize"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultWidth = 300
	MaxWidth     = 1200

	quality = 85
)

var ErrUnsupportedImage = errors.New("unsupported image format")

type Thumbnailer struct {
	cache *cache.Cache
}

func NewThumbnailer(ttl time.Duration) *Thumbnailer {
	return &Thumbnailer{cache: cache.New(ttl, 2*ttl)}
}

// Thumbnail fits the image into a width x width box and encodes it as
// JPEG. key identifies the source image in the render cache; an empty
// key disables caching.
func (t *Thumbnailer) Thumbnail(key string, data []byte, width int) ([]byte, error) {
	const op = "imaging.Thumbnailer.Thumbnail"

	width = clampWidth(width)

	cacheKey := ""
	if key != "" {
		cacheKey = key + ":" + strconv.Itoa(width)
		if b, ok := t.cache.Get(cacheKey); ok {
			return b.([]byte), nil
		}
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrUnsupportedImage, err)
	}

	thumb := resize.Thumbnail(uint(width), uint(width), img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, thumb, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := buf.Bytes()
	if cacheKey != "" {
		t.cache.SetDefault(cacheKey, out)
	}

	return out, nil
}

func clampWidth(width int) int {
	switch {
	case width <= 0:
		return DefaultWidth
	case width > MaxWidth:
		return MaxWidth
	default:
		return width
	}
}
