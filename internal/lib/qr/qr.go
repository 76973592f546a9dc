// Package qr renders upload links as PNG QR codes.
package qr

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"time"

	"github.com/boombuler/barcode"
	"github.com/boombuler/barcode/qr"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultSize = 290

	cacheTTL     = time.Hour
	cacheCleanup = 10 * time.Minute
)

type Generator struct {
	size  int
	cache *cache.Cache
}

func NewGenerator(size int) *Generator {
	if size <= 0 {
		size = DefaultSize
	}

	return &Generator{
		size:  size,
		cache: cache.New(cacheTTL, cacheCleanup),
	}
}

// PNG encodes content with low error correction, the same level the
// printed upload cards were designed for.
func (g *Generator) PNG(content string) ([]byte, error) {
	const op = "qr.Generator.PNG"

	if cached, ok := g.cache.Get(content); ok {
		return cached.([]byte), nil
	}

	code, err := qr.Encode(content, qr.L, qr.Auto)
	if err != nil {
		return nil, fmt.Errorf("%s: encode: %w", op, err)
	}

	margin := g.size / 10
	inner := g.size - 2*margin

	scaled, err := barcode.Scale(code, inner, inner)
	if err != nil {
		return nil, fmt.Errorf("%s: scale: %w", op, err)
	}

	// quiet zone around the symbol, scanners need it
	canvas := image.NewGray(image.Rect(0, 0, g.size, g.size))
	draw.Draw(canvas, canvas.Bounds(), &image.Uniform{C: color.White}, image.Point{}, draw.Src)
	draw.Draw(canvas, image.Rect(margin, margin, margin+inner, margin+inner), scaled, scaled.Bounds().Min, draw.Src)

	var buf bytes.Buffer
	if err := png.Encode(&buf, canvas); err != nil {
		return nil, fmt.Errorf("%s: png: %w", op, err)
	}

	out := buf.Bytes()
	g.cache.SetDefault(content, out)

	return out, nil
}

func (g *Generator) Base64PNG(content string) (string, error) {
	b, err := g.PNG(content)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}
