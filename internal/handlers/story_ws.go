package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/snappy-loop/moodstory/internal/models"
)

const (
	storyWSReadLimit    = 64 << 10
	storyWSReadTimeout  = 60 * time.Second
	storyWSWriteTimeout = 30 * time.Second
)

var storyWSUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// storyWSOutMessage is the JSON shape sent to the client.
type storyWSOutMessage struct {
	Type     string                `json:"type"` // "progress", "result" or "error"
	Progress *models.ProgressEvent `json:"progress,omitempty"`
	Result   *models.StoryResult   `json:"result,omitempty"`
	Message  string                `json:"message,omitempty"`
}

// wsWriter serializes writes; progress arrives from concurrent scene workers.
type wsWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsWriter) write(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return writeWSJSON(w.conn, v)
}

// GenerateStoryWS handles GET /api/generate-story/ws. The client sends one
// {"query": "..."} message, receives progress messages while the story is built,
// then a single result or error message.
func (h *Handler) GenerateStoryWS(w http.ResponseWriter, r *http.Request) {
	conn, err := storyWSUpgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("story ws upgrade failed")
		return
	}
	defer conn.Close()
	out := &wsWriter{conn: conn}

	conn.SetReadLimit(storyWSReadLimit)
	conn.SetReadDeadline(time.Now().Add(storyWSReadTimeout))

	_, raw, err := conn.ReadMessage()
	if err != nil {
		log.Debug().Err(err).Msg("story ws read")
		return
	}
	var req models.GenerateStoryRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		_ = out.write(storyWSOutMessage{Type: "error", Message: "invalid JSON: " + err.Error()})
		return
	}
	query := strings.TrimSpace(req.Query)
	if query == "" {
		_ = out.write(storyWSOutMessage{Type: "error", Message: missingQueryMessage})
		return
	}

	// The run is cancelled when the client closes the socket.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conn.SetReadDeadline(time.Time{})
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	result, err := h.stories.Run(ctx, query, func(ev models.ProgressEvent) {
		if err := out.write(storyWSOutMessage{Type: "progress", Progress: &ev}); err != nil {
			log.Debug().Err(err).Msg("story ws progress write")
		}
	})
	if err != nil {
		log.Warn().Err(err).Msg("Story generation aborted")
		_ = out.write(storyWSOutMessage{Type: "error", Message: "story generation aborted"})
		return
	}

	if err := out.write(storyWSOutMessage{Type: "result", Result: result}); err != nil {
		log.Debug().Err(err).Msg("story ws result write")
		return
	}
	out.close()
}

// close sends a normal close frame.
func (w *wsWriter) close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(storyWSWriteTimeout))
	_ = w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
}

func writeWSJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(storyWSWriteTimeout))
	return conn.WriteJSON(v)
}
