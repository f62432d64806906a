package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"
)

// NATSSink publishes events as JSON on <prefix>.<type>.<auction_id>
type NATSSink struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSSink connects to the NATS server at url
func NewNATSSink(url, prefix string) (*NATSSink, error) {
	conn, err := nats.Connect(url, nats.Name("auctiond"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &NATSSink{
		conn:   conn,
		prefix: prefix,
	}, nil
}

// Subject returns the subject an event is published on
func (s *NATSSink) Subject(event *Event) string {
	return fmt.Sprintf("%s.%s.%s", s.prefix, event.Type, event.AuctionID)
}

func (s *NATSSink) Handle(ctx context.Context, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := s.Subject(event)
	if err := s.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}

	slog.Debug("Published event to NATS", "subject", subject)
	return nil
}

func (s *NATSSink) Name() string {
	return "nats"
}

// Close flushes pending messages and closes the connection
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
