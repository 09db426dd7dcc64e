// Package notify publishes fleet report events to NATS and MQTT once the
// admin dashboard refreshed the device list.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// EventDevicesRefreshed is the type of every event published here
const EventDevicesRefreshed = "devices.refreshed"

// FleetEvent is the message body sent to every broker
type FleetEvent struct {
	Type        string              `json:"type"`
	GeneratedAt time.Time           `json:"generatedAt"`
	Requested   int                 `json:"requested"`
	Devices     int                 `json:"devices"`
	Skipped     int                 `json:"skipped"`
	Report      *models.FleetReport `json:"report"`
}

// NewFleetEvent wraps report in an event
func NewFleetEvent(report *models.FleetReport) FleetEvent {
	return FleetEvent{
		Type:        EventDevicesRefreshed,
		GeneratedAt: report.GeneratedAt,
		Requested:   report.Requested,
		Devices:     len(report.Devices),
		Skipped:     len(report.Skipped),
		Report:      report,
	}
}

func encodeEvent(report *models.FleetReport) ([]byte, error) {
	return json.Marshal(NewFleetEvent(report))
}

// Publisher sends fleet reports somewhere
type Publisher interface {
	PublishFleetReport(ctx context.Context, report *models.FleetReport) error
	Close()
}

// Nop discards every report
type Nop struct{}

// PublishFleetReport implements Publisher
func (Nop) PublishFleetReport(context.Context, *models.FleetReport) error { return nil }

// Close implements Publisher
func (Nop) Close() {}

// Multi publishes to every publisher and joins their errors
type Multi []Publisher

// PublishFleetReport implements Publisher
func (m Multi) PublishFleetReport(ctx context.Context, report *models.FleetReport) error {
	var errs []error
	for _, p := range m {
		if err := p.PublishFleetReport(ctx, report); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Publisher
func (m Multi) Close() {
	for _, p := range m {
		p.Close()
	}
}

// Background runs Publish off the request path. Failures are logged only.
func Background(p Publisher, report *models.FleetReport, timeout time.Duration) {
	if p == nil || report == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := p.PublishFleetReport(ctx, report); err != nil {
			log.Error().Err(err).Msg("Failed to publish fleet report")
		}
	}()
}
