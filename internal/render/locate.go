package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sceneforge/internal/logging"
)

// LocateVideo finds the video the renderer produced for outputID and moves it
// to <outputDir>/<outputID>.mp4. The renderer nests videos under
// videos/<scene file base>/<quality>/, but the layout has shifted between
// renderer versions, so probing falls back to progressively wider globs.
func LocateVideo(mediaDir, outputDir, scenePath, outputID string) (string, error) {
	finalPath := filepath.Join(outputDir, outputID+".mp4")
	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	sceneBase := strings.TrimSuffix(filepath.Base(scenePath), filepath.Ext(scenePath))
	candidate := filepath.Join(mediaDir, "videos", sceneBase, "720p30", outputID+".mp4")
	if _, err := os.Stat(candidate); err == nil {
		if err := moveFile(candidate, finalPath); err != nil {
			return "", err
		}
		return finalPath, nil
	}

	patterns := []string{
		filepath.Join(mediaDir, "videos", "*", "*", outputID+".mp4"),
		filepath.Join(mediaDir, "videos", "*", outputID+".mp4"),
		filepath.Join(mediaDir, outputID+".mp4"),
	}
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		if len(matches) > 0 {
			logging.RenderDebug("video found via fallback pattern %s", pattern)
			if matches[0] == finalPath {
				return finalPath, nil
			}
			if err := moveFile(matches[0], finalPath); err != nil {
				return "", err
			}
			return finalPath, nil
		}
	}

	return "", fmt.Errorf("video file not found after rendering (id=%s, media_dir=%s)", outputID, mediaDir)
}

// moveFile renames, falling back to copy+remove across filesystems.
func moveFile(src, dst string) error {
	if src == dst {
		return nil
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open rendered video: %w", err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create output video: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy video: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to finish video copy: %w", err)
	}
	return os.Remove(src)
}
