package media

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/lrstanley/go-ytdlp"

	"github.com/linkdrop/linkdrop/internal/logger"
)

const (
	DefaultFormat         = "best"
	outputTemplate        = "%(id)s.%(ext)s"
	progressLogInterval   = 2 * time.Second
	scratchDirPermissions = 0755
)

// YTDLPFetcher downloads single videos with yt-dlp. Every call works in its own
// directory under scratchDir so concurrent requests never see each other's files.
type YTDLPFetcher struct {
	scratchDir string
	format     string
}

func NewYTDLPFetcher(scratchDir, format string) (*YTDLPFetcher, error) {
	if format == "" {
		format = DefaultFormat
	}
	if err := os.MkdirAll(scratchDir, scratchDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create scratch directory: %w", err)
	}
	return &YTDLPFetcher{scratchDir: scratchDir, format: format}, nil
}

// EnsureInstalled downloads a yt-dlp binary when none is available.
func EnsureInstalled(ctx context.Context) error {
	resolved, err := ytdlp.Install(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to install yt-dlp: %w", err)
	}
	logger.Info("yt-dlp available", map[string]interface{}{
		"executable": resolved.Executable,
		"version":    resolved.Version,
	})
	return nil
}

func (f *YTDLPFetcher) Fetch(ctx context.Context, url string) (*Artifact, error) {
	requestID := uuid.NewString()
	dir := filepath.Join(f.scratchDir, requestID)
	if err := os.MkdirAll(dir, scratchDirPermissions); err != nil {
		return nil, fmt.Errorf("failed to create request directory: %w", err)
	}

	logger.Debug("Starting yt-dlp download", map[string]interface{}{
		"request_id": requestID,
		"url":        url,
		"format":     f.format,
	})

	dl := ytdlp.New().
		Format(f.format).
		NoPlaylist().
		RestrictFilenames().
		ForceOverwrites().
		PrintJSON().
		Output(filepath.Join(dir, outputTemplate))

	dl.ProgressFunc(progressLogInterval, func(update ytdlp.ProgressUpdate) {
		logger.Debug("Download progress", map[string]interface{}{
			"request_id":       requestID,
			"downloaded_bytes": update.DownloadedBytes,
			"total_bytes":      update.TotalBytes,
		})
	})

	result, err := dl.Run(ctx, url)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	path, err := ResolveArtifact(dir, reportedFilenames(result))
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	artifact, err := NewArtifact(path, dir)
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}

	logger.Debug("yt-dlp download finished", map[string]interface{}{
		"request_id": requestID,
		"file":       artifact.Name,
		"size":       artifact.Size,
	})
	return artifact, nil
}

func reportedFilenames(result *ytdlp.Result) []string {
	if result == nil {
		return nil
	}
	info, err := result.GetExtractedInfo()
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			logger.Debug("No extracted info in yt-dlp output", map[string]interface{}{
				"error": err.Error(),
			})
		}
		return nil
	}

	var names []string
	for _, i := range info {
		if i != nil && i.Filename != nil {
			names = append(names, *i.Filename)
		}
	}
	return names
}
