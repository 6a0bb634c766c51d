package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/userdeck/userdeck/pkg/config"
	"github.com/userdeck/userdeck/pkg/interfaces"
	"github.com/userdeck/userdeck/pkg/types"
)

// NATSPublisher publishes settlement events to a NATS subject so external
// audit consumers can follow bulk deletions.
type NATSPublisher struct {
	conn    *nats.Conn
	subject string
	logger  interfaces.Logger
}

// NewNATSPublisher creates a NATS-backed event publisher
func NewNATSPublisher(cfg *config.EventsConfig, log interfaces.Logger) (*NATSPublisher, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("nats urls are required")
	}
	if cfg.Subject == "" {
		return nil, fmt.Errorf("nats subject is required")
	}

	opts := []nats.Option{
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.Timeout(5 * time.Second),
	}

	conn, err := nats.Connect(strings.Join(cfg.URLs, ","), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Info("Connected to NATS", map[string]interface{}{"subject": cfg.Subject})

	return &NATSPublisher{
		conn:    conn,
		subject: cfg.Subject,
		logger:  log,
	}, nil
}

// Publish emits the event to the configured subject
func (n *NATSPublisher) Publish(_ context.Context, event types.SettlementEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode settlement event: %w", err)
	}
	if err := n.conn.Publish(n.subject, data); err != nil {
		return fmt.Errorf("failed to publish settlement event: %w", err)
	}
	return nil
}

// Close drains and closes the NATS connection
func (n *NATSPublisher) Close() error {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
		return err
	}
	return nil
}
