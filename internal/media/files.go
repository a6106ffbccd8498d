package media

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

const (
	imagesDir = "images"
	audioDir  = "audio"
)

// PrepareContentRoot creates the content root and its images/ and audio/ directories.
// Called once at startup.
func PrepareContentRoot(root string) error {
	for _, dir := range []string{imagesDir, audioDir} {
		if err := os.MkdirAll(filepath.Join(root, dir), 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// Asset names are fixed whatever the backend's format: images are served as .jpg,
// narration and dialogue as .mp3.
func imagePath(namespace string, sceneIndex int) string {
	return path.Join(namespace, imagesDir, fmt.Sprintf("scene_%d.jpg", sceneIndex))
}

func narrationPath(namespace string, sceneIndex int) string {
	return path.Join(namespace, audioDir, fmt.Sprintf("scene_%d_narration.mp3", sceneIndex))
}

func dialoguePath(namespace string, sceneIndex, lineIndex int) string {
	return path.Join(namespace, audioDir, fmt.Sprintf("scene_%d_dialogue_%d.mp3", sceneIndex, lineIndex))
}

// writeAsset writes data to rel under root. The bytes go to a temporary file in the
// same directory that is renamed over rel only once complete, so a failed write
// never replaces a previous asset with a truncated one.
func writeAsset(root, rel string, data io.Reader) error {
	if data == nil {
		return fmt.Errorf("no data for %s", rel)
	}
	abs := filepath.Join(root, filepath.FromSlash(rel))
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create dir for %s: %w", rel, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(abs)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", rel, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", rel, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", rel, err)
	}
	// CreateTemp uses 0600; assets are served by the static route.
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", rel, err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("rename %s: %w", rel, err)
	}
	return nil
}
