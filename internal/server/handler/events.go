package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/zentrolabs/zentro-core/internal/domain"
)

// StreamReader replays durable event records from the signal bus stream.
type StreamReader interface {
	StreamRead(ctx context.Context, stream, lastID string, count int) ([]domain.StreamMessage, error)
}

// EventsHandler serves the event history endpoint backed by the durable
// event stream.
type EventsHandler struct {
	bus    StreamReader
	stream string
	logger *slog.Logger
}

// NewEventsHandler creates an EventsHandler reading from the named stream.
func NewEventsHandler(bus StreamReader, stream string, logger *slog.Logger) *EventsHandler {
	return &EventsHandler{
		bus:    bus,
		stream: stream,
		logger: logger,
	}
}

// eventRecord pairs a stream cursor with the decoded event payload so
// clients can resume from the last ID they saw.
type eventRecord struct {
	ID    string          `json:"id"`
	Event json.RawMessage `json:"event"`
}

// ListEvents returns event records appended after the given cursor.
// GET /api/events?after=0&limit=100
func (h *EventsHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	after := r.URL.Query().Get("after")
	if after == "" {
		after = "0"
	}
	opts := parseListOpts(r)

	msgs, err := h.bus.StreamRead(r.Context(), h.stream, after, opts.Limit)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: read event stream failed",
			slog.String("stream", h.stream),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}

	records := make([]eventRecord, 0, len(msgs))
	for _, m := range msgs {
		records = append(records, eventRecord{ID: m.ID, Event: json.RawMessage(m.Payload)})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": records,
		"after":  after,
	})
}
