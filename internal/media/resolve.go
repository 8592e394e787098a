package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Leftovers yt-dlp may write next to the real file
var skippedExtensions = []string{".part", ".ytdl", ".json", ".tmp", ".temp"}

func isSkipped(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range skippedExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return strings.HasPrefix(name, ".")
}

// ResolveArtifact locates the downloaded file inside dir. The filename yt-dlp
// reported wins when it exists; otherwise the largest candidate file is used.
func ResolveArtifact(dir string, reported []string) (string, error) {
	for _, name := range reported {
		if name == "" {
			continue
		}
		path := name
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, name)
		}
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to read download directory: %w", err)
	}

	var (
		best     string
		bestSize int64 = -1
	)
	for _, entry := range entries {
		if entry.IsDir() || isSkipped(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if info.Size() > bestSize {
			best = filepath.Join(dir, entry.Name())
			bestSize = info.Size()
		}
	}

	if best == "" {
		return "", ErrNoArtifact
	}
	return best, nil
}
