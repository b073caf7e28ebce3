package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/nexconsult/nfse-api/internal/config"
)

// Storage persists downloaded artifacts and returns where they were written
type Storage interface {
	Store(ctx context.Context, data []byte, extension string) (string, error)
}

// LocalStorage writes artifacts under a directory using random file names
type LocalStorage struct {
	dir    string
	logger *logrus.Logger
}

// NewLocalStorage creates a storage rooted at dir. The directory is created
// on first write.
func NewLocalStorage(dir string, logger *logrus.Logger) *LocalStorage {
	return &LocalStorage{dir: dir, logger: logger}
}

// Store writes data to <dir>/<uuid>.<extension> and returns the absolute path
func (s *LocalStorage) Store(ctx context.Context, data []byte, extension string) (string, error) {
	const op = "storage"

	if err := ctx.Err(); err != nil {
		return "", newAppError(op, "store cancelled", err)
	}

	dir, err := filepath.Abs(s.dir)
	if err != nil {
		return "", newAppError(op, "failed to resolve storage directory", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", newAppError(op, "failed to create storage directory", err)
	}

	path := filepath.Join(dir, artifactName(extension))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", newAppError(op, "failed to write artifact", err)
	}

	s.logger.WithFields(logrus.Fields{
		"path":  path,
		"bytes": len(data),
	}).Debug("Artifact stored")

	return path, nil
}

func artifactName(extension string) string {
	name := uuid.NewString()
	if ext := strings.TrimPrefix(extension, "."); ext != "" {
		name += "." + ext
	}
	return name
}

// NewStorage builds the storage selected by cfg.Driver
func NewStorage(ctx context.Context, cfg config.StorageConfig, logger *logrus.Logger) (Storage, error) {
	switch cfg.Driver {
	case "", config.StorageDriverLocal:
		return NewLocalStorage(cfg.Dir, logger), nil
	case config.StorageDriverS3:
		return NewS3Storage(ctx, cfg.S3, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
