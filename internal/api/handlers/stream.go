package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Sepheus7/dataforge-studio/internal/core/event"
	"github.com/Sepheus7/dataforge-studio/internal/core/job"
)

// StreamHandler serves SSE progress streams. SSE is a raw echo route: huma
// does not model long-lived streaming responses.
type StreamHandler struct {
	bus   *event.Bus
	store *job.Store
}

func NewStreamHandler(bus *event.Bus, store *job.Store) *StreamHandler {
	return &StreamHandler{bus: bus, store: store}
}

// Stream subscribes to a job's event stream and writes SSE frames until the
// stream closes or the client disconnects. The connect event always arrives
// first; a stream already closed delivers connect, then ends.
func (h *StreamHandler) Stream(c echo.Context) error {
	jobID := c.Param("id")
	if _, ok := h.store.Get(jobID); !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"detail": "job not found"})
	}

	res := c.Response()
	res.Header().Set("Content-Type", "text/event-stream")
	res.Header().Set("Cache-Control", "no-cache")
	res.Header().Set("Connection", "keep-alive")
	res.WriteHeader(http.StatusOK)

	sub := h.bus.Subscribe(jobID)
	defer h.bus.Unsubscribe(jobID, sub)

	ctx := c.Request().Context()
	for {
		ev, ok := sub.Next(ctx)
		if !ok {
			return nil
		}
		if _, err := res.Write([]byte(ev.Encode())); err != nil {
			return nil
		}
		res.Flush()
	}
}
