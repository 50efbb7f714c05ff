package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// LocalConnector keeps objects in a directory served by the router.
type LocalConnector struct {
	dir     string
	baseURL string
}

func NewLocalConnector(dir, baseURL string) (*LocalConnector, error) {
	if dir == "" {
		return nil, errors.New("local storage directory is required")
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalConnector{dir: dir, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (c *LocalConnector) Dir() string {
	return c.dir
}

func (c *LocalConnector) Upload(ctx context.Context, name, _ string, data []byte, upsert bool) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path, err := c.path(name)
	if err != nil {
		return "", err
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !upsert {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	file, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return "", ErrObjectExists
		}
		return "", fmt.Errorf("failed to open %s: %w", name, err)
	}
	defer file.Close()

	if _, err := file.Write(data); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", name, err)
	}

	return c.baseURL + "/" + name, nil
}

func (c *LocalConnector) Delete(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := c.path(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}

	return nil
}

func (c *LocalConnector) path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("invalid object name %q", name)
	}
	return filepath.Join(c.dir, name), nil
}
