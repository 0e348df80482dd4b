package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vibecoder.app/console/internal/http/dto"
	"vibecoder.app/console/internal/model"
)

const defaultKeepAlive = 25 * time.Second

// Stream pushes the board over Server-Sent Events: a ready event, the
// current document, then one board event per change with pings in between.
func (h *BoardHandler) Stream(c *gin.Context) {
	h.StreamWithKeepAlive(defaultKeepAlive)(c)
}

func (h *BoardHandler) StreamWithKeepAlive(keepAlive time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		thread, ok := threadParam(c)
		if !ok {
			return
		}

		flusher, ok := c.Writer.(http.Flusher)
		if !ok {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "streaming not supported"})
			return
		}

		ctx, cancel := context.WithCancel(c.Request.Context())
		updates := make(chan model.BoardDocument, 16)
		sub, err := h.boards.Watch(ctx, thread, func(doc model.BoardDocument) {
			select {
			case updates <- doc:
			case <-ctx.Done():
			}
		})
		if err != nil {
			cancel()
			slog.ErrorContext(ctx, "failed to watch board", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "board stream unavailable"})
			return
		}
		// cancel first so a blocked delivery returns before Close waits on it.
		defer func() {
			cancel()
			_ = sub.Close()
		}()

		setSSEHeaders(c.Writer)
		c.Status(http.StatusOK)
		sseWrite(c.Writer, "ready", thread.String())
		flusher.Flush()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case doc := <-updates:
				sseWrite(c.Writer, "board", dto.ToBoardResponse(thread, doc))
				flusher.Flush()
			case <-ticker.C:
				sseWrite(c.Writer, "ping", time.Now().UTC().Format(time.RFC3339Nano))
				flusher.Flush()
			}
		}
	}
}

func setSSEHeaders(w http.ResponseWriter) {
	headers := w.Header()
	headers.Set("Content-Type", "text/event-stream")
	headers.Set("Cache-Control", "no-cache")
	headers.Set("Connection", "keep-alive")
	headers.Set("X-Accel-Buffering", "no")
}

func sseWrite(w io.Writer, event string, data any) {
	payload := marshalPayload(data)
	if event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event)
	}
	for _, line := range strings.Split(payload, "\n") {
		_, _ = fmt.Fprintf(w, "data: %s\n", line)
	}
	_, _ = fmt.Fprint(w, "\n")
}

func marshalPayload(data any) string {
	switch payload := data.(type) {
	case string:
		return payload
	case []byte:
		return string(payload)
	default:
		bytes, err := json.Marshal(payload)
		if err != nil {
			return fmt.Sprintf("%v", data)
		}
		return string(bytes)
	}
}
