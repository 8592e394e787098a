// Package store persists the bot's small JSON documents (premium list, daily
// usage) behind a key/document interface with file and Postgres backends.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/linkdrop/linkdrop/internal/config"
	"github.com/linkdrop/linkdrop/internal/logger"
)

// Document keys
const (
	KeyPremium = "premium"
	KeyUsage   = "usage"
)

var ErrNotFound = errors.New("document not found")

var validKey = regexp.MustCompile(`^[a-z0-9_-]+$`)

// Store reads and writes whole documents. Writes replace the previous document.
type Store interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, data []byte) error
	Close() error
}

// StorageError is returned when a document could not be persisted.
type StorageError struct {
	Op  string
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func checkKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("invalid document key %q", key)
	}
	return nil
}

// LoadJSON decodes the document under key into a fresh T. A missing, unreadable
// or malformed document yields def instead of an error.
func LoadJSON[T any](ctx context.Context, s Store, key string, def T) T {
	data, err := s.Read(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Warn("Failed to read document, using default", map[string]interface{}{
				"key":   key,
				"error": err.Error(),
			})
		}
		return def
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		logger.Warn("Malformed document, using default", map[string]interface{}{
			"key":   key,
			"error": err.Error(),
		})
		return def
	}
	return v
}

// SaveJSON replaces the document under key with v.
func SaveJSON(ctx context.Context, s Store, key string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &StorageError{Op: "encode", Key: key, Err: err}
	}
	if err := s.Write(ctx, key, data); err != nil {
		var se *StorageError
		if errors.As(err, &se) {
			return err
		}
		return &StorageError{Op: "write", Key: key, Err: err}
	}
	return nil
}

// OpenFromConfig returns the Postgres store when a DSN is configured and the
// file store under cfg.DataDir otherwise.
func OpenFromConfig(cfg *config.Config) (Store, error) {
	if cfg.HasDatabaseConfig() {
		s, err := NewPostgresStore(cfg.PostgreDSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open postgres store: %w", err)
		}
		logger.InfoMsg("Using postgres document store")
		return s, nil
	}

	s, err := NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to open file store: %w", err)
	}
	logger.Info("Using file document store", map[string]interface{}{
		"data_dir": cfg.DataDir,
	})
	return s, nil
}
