package events

import (
	"context"
	"encoding/json"
	"log/slog"
)

// LogSink dumps events as JSON at debug level
type LogSink struct{}

// NewLogSink creates a new LogSink
func NewLogSink() *LogSink {
	return &LogSink{}
}

func (s *LogSink) Handle(ctx context.Context, event *Event) error {
	jsonData, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}

	slog.Debug("Auction event", "type", event.Type, "json", string(jsonData))
	return nil
}

func (s *LogSink) Name() string {
	return "log"
}
