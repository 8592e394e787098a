// Package media turns a link into a local file by delegating to yt-dlp.
package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrNoArtifact means the downloader reported success but no file could be found.
var ErrNoArtifact = errors.New("no downloaded file found")

// Fetcher downloads the media behind url into local storage.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Artifact, error)
}

// Artifact is a downloaded file owned by a single request.
type Artifact struct {
	Path string
	Name string
	Size int64

	// dir is removed together with the file; empty when the artifact does not own a directory
	dir string
}

// NewArtifact stats path and wraps it. When ownedDir is non-empty, Remove
// deletes that whole directory.
func NewArtifact(path, ownedDir string) (*Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat downloaded file: %w", err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", path)
	}
	return &Artifact{
		Path: path,
		Name: filepath.Base(path),
		Size: info.Size(),
		dir:  ownedDir,
	}, nil
}

// Remove deletes the artifact from local storage. Missing files are not an error.
func (a *Artifact) Remove() error {
	if a == nil {
		return nil
	}
	if a.dir != "" {
		return os.RemoveAll(a.dir)
	}
	if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
