// internal/adapter/events/nats.go

package events

import (
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"connectr/internal/config"
	"connectr/internal/domain/events"
)

// NATSPublisher publishes JSON encoded events to NATS
type NATSPublisher struct {
	conn *nats.Conn
	log  zerolog.Logger
}

// NewNATSPublisher creates a publisher on an open connection
func NewNATSPublisher(conn *nats.Conn, log zerolog.Logger) *NATSPublisher {
	return &NATSPublisher{
		conn: conn,
		log:  log.With().Str("component", "nats_publisher").Logger(),
	}
}

// Publish implements events.Publisher
func (p *NATSPublisher) Publish(subject string, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}

	p.log.Debug().Str("subject", subject).Str("type", event.Type).Msg("Event published")
	return nil
}

// NoopPublisher drops events; used when no event bus is configured
type NoopPublisher struct{}

// Publish implements events.Publisher
func (NoopPublisher) Publish(string, events.Event) error {
	return nil
}

// Connect opens a NATS connection with reconnect handling
func Connect(cfg config.NATSConfig, log zerolog.Logger) (*nats.Conn, error) {
	options := []nats.Option{
		nats.Name("connectr"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.ConnectTimeout),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	}

	nc, err := nats.Connect(cfg.URL, options...)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to NATS: %w", err)
	}

	return nc, nil
}

var (
	_ events.Publisher = (*NATSPublisher)(nil)
	_ events.Publisher = NoopPublisher{}
)
