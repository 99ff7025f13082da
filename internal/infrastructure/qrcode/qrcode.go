package qrcode

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/skip2/go-qrcode"
)

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type PNGRenderer struct {
	dir  string
	size int
}

func CreatePNGRenderer(dir string) *PNGRenderer {
	return &PNGRenderer{dir: dir, size: 256}
}

// Render encodes payload into a PNG named after it and returns the path.
func (r *PNGRenderer) Render(ctx context.Context, payload string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", fmt.Errorf("create qr dir: %w", err)
	}

	path := filepath.Join(r.dir, "qr-"+unsafeChars.ReplaceAllString(payload, "_")+".png")
	if err := qrcode.WriteFile(payload, qrcode.Medium, r.size, path); err != nil {
		return "", fmt.Errorf("write qr code: %w", err)
	}

	return path, nil
}
