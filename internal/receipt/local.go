package receipt

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalUploader implements Uploader on the local filesystem. Meant for
// development and tests; the returned reference URL is the absolute path.
type LocalUploader struct {
	basePath string
}

// NewLocalUploader creates the storage directory if needed.
func NewLocalUploader(basePath string) (*LocalUploader, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating storage directory: %w", err)
	}
	return &LocalUploader{basePath: basePath}, nil
}

// Upload writes the image to disk and returns its absolute path.
func (l *LocalUploader) Upload(_ context.Context, filename string, data []byte, _ string) (string, error) {
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path, nil
	}
	return abs, nil
}
