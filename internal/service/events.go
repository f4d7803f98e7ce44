package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/zentrolabs/zentro-core/internal/domain"
	"github.com/zentrolabs/zentro-core/internal/notify"
)

// EventChannel is the pub/sub channel live observers subscribe to.
const EventChannel = "markets"

// EventStream is the durable stream every event is appended to.
const EventStream = "market_events"

// EventPublisher forwards the event records returned by the core services
// to the signal bus and, when configured, to the notifier. Publication is
// best effort: the operation that produced the event has already committed.
type EventPublisher struct {
	bus      domain.SignalBus
	notifier *notify.Notifier
	logger   *slog.Logger
}

// NewEventPublisher creates an EventPublisher. notifier may be nil.
func NewEventPublisher(bus domain.SignalBus, notifier *notify.Notifier, logger *slog.Logger) *EventPublisher {
	return &EventPublisher{
		bus:      bus,
		notifier: notifier,
		logger:   logger.With(slog.String("component", "events")),
	}
}

// Publish fans the event out to the pub/sub channel, the durable stream,
// and the notifier.
func (p *EventPublisher) Publish(ctx context.Context, evt domain.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal event failed",
			slog.String("type", evt.Type),
			slog.String("error", err.Error()),
		)
		return
	}

	if p.bus != nil {
		if err := p.bus.Publish(ctx, EventChannel, payload); err != nil {
			p.logger.WarnContext(ctx, "publish event failed",
				slog.String("type", evt.Type),
				slog.String("market_id", evt.MarketID),
				slog.String("error", err.Error()),
			)
		}
		if err := p.bus.StreamAppend(ctx, EventStream, payload); err != nil {
			p.logger.WarnContext(ctx, "stream append failed",
				slog.String("type", evt.Type),
				slog.String("market_id", evt.MarketID),
				slog.String("error", err.Error()),
			)
		}
	}

	if p.notifier != nil {
		title := fmt.Sprintf("Market %s: %s", evt.MarketID, evt.Type)
		if err := p.notifier.Notify(ctx, evt.Type, title, string(payload)); err != nil {
			p.logger.WarnContext(ctx, "notify failed",
				slog.String("type", evt.Type),
				slog.String("error", err.Error()),
			)
		}
	}
}
