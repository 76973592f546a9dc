// Package archive streams photo selections as zip files.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"
	"time"
)

type Builder struct {
	zw   *zip.Writer
	used map[string]struct{}
}

func NewBuilder(w io.Writer) *Builder {
	return &Builder{
		zw:   zip.NewWriter(w),
		used: make(map[string]struct{}),
	}
}

// Add writes data as a deflated entry and returns the name it was stored
// under. When name is already taken, disambiguator is inserted before the
// extension ("cake.jpg" -> "cake_1a2b3c4d.jpg"), then a counter if needed.
func (b *Builder) Add(name, disambiguator string, modified time.Time, data []byte) (string, error) {
	const op = "archive.Builder.Add"

	final := b.uniqueName(name, disambiguator)

	w, err := b.zw.CreateHeader(&zip.FileHeader{
		Name:     final,
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	if _, err := w.Write(data); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	b.used[final] = struct{}{}

	return final, nil
}

func (b *Builder) Len() int {
	return len(b.used)
}

func (b *Builder) Close() error {
	return b.zw.Close()
}

func (b *Builder) uniqueName(name, disambiguator string) string {
	if _, taken := b.used[name]; !taken {
		return name
	}

	candidate := withSuffix(name, disambiguator)
	for i := 2; ; i++ {
		if _, taken := b.used[candidate]; !taken {
			return candidate
		}
		candidate = withSuffix(name, disambiguator+"_"+strconv.Itoa(i))
	}
}

func withSuffix(name, suffix string) string {
	ext := path.Ext(name)
	return strings.TrimSuffix(name, ext) + "_" + suffix + ext
}

// SafeFilename turns a session name into something usable inside a
// Content-Disposition filename.
func SafeFilename(name string) string {
	name = strings.NewReplacer(" ", "_", "/", "_", "\\", "_", "\"", "").Replace(strings.TrimSpace(name))
	if name == "" {
		return "photos"
	}
	return name
}
