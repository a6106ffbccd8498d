// Package archive copies the assets of finished stories from the local content
// root to object storage.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/kafka"
	"github.com/snappy-loop/moodstory/internal/models"
	"github.com/snappy-loop/moodstory/internal/storage"
)

// Uploader stores objects. Implemented by storage.Client.
type Uploader interface {
	Upload(ctx context.Context, key string, data io.Reader, contentType string, contentLength int64) error
	Exists(ctx context.Context, key string) (bool, error)
}

// Archiver handles story completed events.
type Archiver struct {
	root     string
	uploader Uploader
}

// NewArchiver creates an Archiver reading assets below root.
func NewArchiver(root string, uploader Uploader) *Archiver {
	return &Archiver{root: root, uploader: uploader}
}

// ObjectKey returns the storage key of asset rel of a story.
func ObjectKey(event *models.StoryCompletedEvent, rel string) string {
	return path.Join("stories", event.RequestID.String(), rel)
}

// HandleStoryCompleted uploads every asset of the event. Assets already stored are
// skipped so redelivered events are harmless; missing local files are logged and
// skipped. Transient upload failures fail the event so it is retried; empty assets
// and rejected credentials are returned as permanent.
func (a *Archiver) HandleStoryCompleted(ctx context.Context, event *models.StoryCompletedEvent) error {
	uploaded := 0
	for _, rel := range event.Assets {
		key := ObjectKey(event, rel)

		exists, err := a.uploader.Exists(ctx, key)
		if err != nil {
			return permanentIfDenied(err)
		}
		if exists {
			continue
		}

		if err := a.uploadFile(ctx, key, rel); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				log.Warn().
					Str("request_id", event.RequestID.String()).
					Str("asset", rel).
					Msg("Asset missing from content root, skipping")
				continue
			}
			return permanentIfDenied(err)
		}
		uploaded++
	}

	log.Info().
		Str("request_id", event.RequestID.String()).
		Int("uploaded", uploaded).
		Int("assets", len(event.Assets)).
		Msg("Story archived")
	return nil
}

func permanentIfDenied(err error) error {
	if errors.Is(err, storage.ErrAccessDenied) {
		return kafka.Permanent(err)
	}
	return err
}

func (a *Archiver) uploadFile(ctx context.Context, key, rel string) error {
	f, err := os.Open(filepath.Join(a.root, filepath.FromSlash(rel)))
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat %s: %w", rel, err)
	}
	if info.Size() == 0 {
		return kafka.Permanent(fmt.Errorf("asset %s is empty", rel))
	}

	contentType, err := sniffContentType(f, rel)
	if err != nil {
		return err
	}
	return a.uploader.Upload(ctx, key, f, contentType, info.Size())
}

// sniffContentType detects the type from the file's leading bytes, since .mp3
// assets may hold WAV audio, and rewinds f. The extension is the fallback.
func sniffContentType(f io.ReadSeeker, rel string) (string, error) {
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", rel, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", rel, err)
	}

	contentType := http.DetectContentType(head[:n])
	if strings.HasPrefix(contentType, "audio/") || strings.HasPrefix(contentType, "image/") {
		return contentType, nil
	}
	if byExt := mime.TypeByExtension(path.Ext(rel)); byExt != "" {
		return byExt, nil
	}
	return "application/octet-stream", nil
}
