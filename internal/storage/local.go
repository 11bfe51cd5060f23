package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Local writes exports to a directory on disk.
type Local struct {
	basePath string
}

func NewLocal(basePath string) *Local {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		slog.Error("ensuring storage directory", "path", basePath, "error", err)
	}
	return &Local{basePath: basePath}
}

func (l *Local) StreamTo(ctx context.Context, key string) (io.WriteCloser, <-chan error) {
	outcome := make(chan error, 1)

	fullPath := filepath.Join(l.basePath, key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		outcome <- fmt.Errorf("creating directory for %s: %w", key, err)
		close(outcome)
		return nil, outcome
	}

	f, err := os.Create(fullPath)
	if err != nil {
		outcome <- fmt.Errorf("creating %s: %w", fullPath, err)
		close(outcome)
		return nil, outcome
	}

	return &localFile{f: f, path: fullPath, outcome: outcome}, outcome
}

func (l *Local) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	return os.Open(filepath.Join(l.basePath, key))
}

func (l *Local) URL(key string) string {
	abs, _ := filepath.Abs(filepath.Join(l.basePath, key))
	return "file://" + abs
}

type localFile struct {
	f       *os.File
	path    string
	outcome chan error
}

func (w *localFile) Write(p []byte) (int, error) {
	return w.f.Write(p)
}

func (w *localFile) Close() error {
	err := w.f.Close()
	if err == nil {
		slog.Info("local export written", "path", w.path)
	}
	w.outcome <- err
	close(w.outcome)
	return err
}
