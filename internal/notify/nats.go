package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/labte-ums/lorawan-dashboard/internal/config"
	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// natsConn is the subset of *nats.Conn used for publishing
type natsConn interface {
	Publish(subj string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATSPublisher publishes fleet events on one subject
type NATSPublisher struct {
	nc      natsConn
	subject string
}

// NewNATSPublisher creates a publisher on an open connection
func NewNATSPublisher(nc *nats.Conn, subject string) *NATSPublisher {
	return &NATSPublisher{nc: nc, subject: subject}
}

// ConnectNATS dials the server named in cfg
func ConnectNATS(cfg config.NATSConfig, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(cfg.URL,
		nats.Name(name),
		nats.UserInfo(cfg.Username, cfg.Password),
		nats.ReconnectWait(cfg.ReconnectInterval),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Warn().Err(err).Msg("Disconnected from NATS")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Msg("Reconnected to NATS")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return nc, nil
}

// PublishFleetReport implements Publisher
func (p *NATSPublisher) PublishFleetReport(ctx context.Context, report *models.FleetReport) error {
	data, err := encodeEvent(report)
	if err != nil {
		return fmt.Errorf("marshal fleet event: %w", err)
	}

	if err := p.nc.Publish(p.subject, data); err != nil {
		return fmt.Errorf("publish to %s: %w", p.subject, err)
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush NATS: %w", err)
	}

	log.Debug().
		Str("subject", p.subject).
		Int("devices", len(report.Devices)).
		Msg("Fleet report published to NATS")
	return nil
}

// Close implements Publisher
func (p *NATSPublisher) Close() {
	p.nc.Close()
}
