package handlers

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-contrib/sse"
	"github.com/gin-gonic/gin"

	"github.com/dhgwag/korail-reservation/models"
)

// EndOfStream is the last event of a log stream
const EndOfStream = "[END]"

// StreamLog replays buffered output from the requested offset and follows
// new lines as Server-Sent Events until the run has exited and everything
// has been sent. Each event id is the offset to resume from.
func (h *Handler) StreamLog(c *gin.Context) {
	offset := requestOffset(c)

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		// snapshot the state before reading so an exited run is fully drained
		running := h.Process.Running()
		changed := h.Logs.Changed()
		lines, next := h.Logs.ReadFrom(offset)

		first := next - uint64(len(lines))
		for i, line := range lines {
			c.Render(-1, sse.Event{
				Id:   strconv.FormatUint(first+uint64(i)+1, 10),
				Data: line,
			})
		}
		offset = next

		if len(lines) > 0 {
			return true
		}
		if !running {
			c.Render(-1, sse.Event{Id: strconv.FormatUint(offset, 10), Data: EndOfStream})
			return false
		}

		timer := time.NewTimer(h.heartbeat())
		defer timer.Stop()
		select {
		case <-changed:
		case <-timer.C:
		case <-c.Request.Context().Done():
			return false
		}
		return true
	})
}

// LogSince returns buffered output after offset as one JSON page
func (h *Handler) LogSince(c *gin.Context) {
	offset := requestOffset(c)
	running := h.Process.Running()
	lines, next := h.Logs.ReadFrom(offset)
	if lines == nil {
		lines = []string{}
	}
	c.JSON(http.StatusOK, models.LogChunk{
		Lines:    lines,
		Next:     next,
		Finished: !running,
	})
}

// requestOffset reads the resume offset from ?offset= or Last-Event-ID
func requestOffset(c *gin.Context) uint64 {
	raw := c.Query("offset")
	if raw == "" {
		raw = c.GetHeader("Last-Event-ID")
	}
	if raw == "" {
		return 0
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0
	}
	return n
}
