package capture

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Store persists one composite image for a capture request and returns the
// path it was written to.
type Store interface {
	Save(req Request, img image.Image) (string, error)
}

// DirStore writes PNG files into a single output directory, creating it on
// first use.
type DirStore struct {
	Dir string
}

// Save encodes the image as PNG under the canonical capture filename.
func (s DirStore) Save(req Request, img image.Image) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(s.Dir, Filename(req))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	if err := png.Encode(f, img); err != nil {
		f.Close()
		os.Remove(path) // best-effort cleanup of the partial file
		return "", fmt.Errorf("encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}
