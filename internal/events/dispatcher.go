package events

import (
	"context"
	"log/slog"

	"auction/internal/metrics"
)

// Dispatcher fans committed events out to every registered sink
type Dispatcher struct {
	sinks []Sink
}

// NewDispatcher creates a new Dispatcher with the given sinks
func NewDispatcher(sinks ...Sink) *Dispatcher {
	return &Dispatcher{
		sinks: sinks,
	}
}

// Publish runs an event through all sinks in order
func (d *Dispatcher) Publish(ctx context.Context, event *Event) {
	slog.Debug("Dispatcher: publishing event",
		"event_id", event.ID,
		"type", event.Type,
		"auction_id", event.AuctionID,
		"sinks_count", len(d.sinks),
	)

	for _, sink := range d.sinks {
		if err := sink.Handle(ctx, event); err != nil {
			metrics.ErrorsTotal.WithLabelValues("sink_" + sink.Name()).Inc()
			slog.Error("Event sink failed",
				"sink", sink.Name(),
				"event_id", event.ID,
				"error", err,
			)
			// Keep delivering to the remaining sinks
		}
	}
}

// Sinks returns the registered sinks (for inspection/testing)
func (d *Dispatcher) Sinks() []Sink {
	return d.sinks
}

// Nop discards events
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, *Event) {}
