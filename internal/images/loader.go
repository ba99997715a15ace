package images

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"
)

var ErrNotFound = errors.New("screenshot not found")

// Screenshot is an image loaded from disk and ready to send to a model.
type Screenshot struct {
	Path     string
	Data     []byte
	MimeType string
	Width    int
	Height   int
}

// Digest identifies the image content for caching.
func (s *Screenshot) Digest() string {
	sum := sha256.Sum256(s.Data)
	return hex.EncodeToString(sum[:])
}

// Load reads the image at path and checks that it decodes.
func Load(path string) (*Screenshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", path, ErrNotFound)
		}
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image %s: %w", path, err)
	}

	return &Screenshot{
		Path:     path,
		Data:     data,
		MimeType: mimeType(format, path),
		Width:    cfg.Width,
		Height:   cfg.Height,
	}, nil
}

func mimeType(format, path string) string {
	switch format {
	case "png":
		return "image/png"
	case "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	}
	// Determine MIME type from file extension
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webp":
		return "image/webp"
	case ".png":
		return "image/png"
	default:
		return "image/jpeg"
	}
}
