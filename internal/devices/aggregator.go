// Package devices builds the admin fleet view from the device list and the
// latest detail of every listed device.
package devices

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/araddon/dateparse"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

const defaultConcurrency = 8

var (
	// ErrNoDevices is returned when the API lists no devices at all.
	ErrNoDevices = errors.New("no devices found")
	// ErrNoValidDetail is returned with the report when every detail fetch
	// was skipped.
	ErrNoValidDetail = errors.New("no valid device detail")
)

// Source is the part of the telemetry client the aggregator needs
type Source interface {
	FetchDeviceList(ctx context.Context) ([]string, error)
	FetchDeviceDetail(ctx context.Context, devEUI string) (*models.DeviceDetail, error)
}

// Aggregator fans out detail fetches and merges them into a FleetReport
type Aggregator struct {
	source      Source
	concurrency int
	now         func() time.Time
}

// Option configures an Aggregator
type Option func(*Aggregator)

// WithConcurrency bounds the number of detail fetches in flight
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// WithClock overrides the clock used for GeneratedAt
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

// NewAggregator creates an aggregator reading from source
func NewAggregator(source Source, opts ...Option) *Aggregator {
	a := &Aggregator{
		source:      source,
		concurrency: defaultConcurrency,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// outcome is the result of one detail fetch. Exactly one field is set.
type outcome struct {
	summary *models.DeviceSummary
	skipped *models.SkippedDevice
}

// ListDevicesWithDetail fetches the device list, then the latest detail of
// every device, and returns the summaries sorted by last-seen time, newest
// first. Devices without a reliable timestamp come last in list order.
func (a *Aggregator) ListDevicesWithDetail(ctx context.Context) (*models.FleetReport, error) {
	ids, err := a.source.FetchDeviceList(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list devices: %w", err)
	}
	if len(ids) == 0 {
		return nil, ErrNoDevices
	}

	outcomes := make([]outcome, len(ids))

	var g errgroup.Group
	g.SetLimit(a.concurrency)

	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			outcomes[i] = a.fetchOne(ctx, i, id)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &models.FleetReport{
		GeneratedAt: a.now(),
		Requested:   len(ids),
		Devices:     make([]models.DeviceSummary, 0, len(ids)),
	}
	for _, o := range outcomes {
		switch {
		case o.summary != nil:
			report.Devices = append(report.Devices, *o.summary)
		case o.skipped != nil:
			report.Skipped = append(report.Skipped, *o.skipped)
		}
	}

	SortByLastSeen(report.Devices)

	log.Info().
		Int("requested", report.Requested).
		Int("devices", len(report.Devices)).
		Int("skipped", len(report.Skipped)).
		Msg("Fleet report built")

	if len(report.Devices) == 0 {
		return report, ErrNoValidDetail
	}
	return report, nil
}

func (a *Aggregator) fetchOne(ctx context.Context, index int, id string) outcome {
	detail, err := a.source.FetchDeviceDetail(ctx, id)
	if err != nil {
		log.Warn().Err(err).Str("devEUI", id).Msg("Skipping device, detail fetch failed")
		return outcome{skipped: &models.SkippedDevice{ID: id, Reason: err.Error()}}
	}
	if detail == nil || detail.Fields() == nil {
		log.Warn().Str("devEUI", id).Msg("Skipping device, empty detail")
		return outcome{skipped: &models.SkippedDevice{ID: id, Reason: "empty detail"}}
	}

	s := Summarize(detail, index, id)
	return outcome{summary: &s}
}

// Summarize derives the summary of one device from its latest detail. index
// and listedID are the device's position and identifier in the device list.
func Summarize(detail *models.DeviceDetail, index int, listedID string) models.DeviceSummary {
	f := detail.Fields()

	s := models.DeviceSummary{
		ID:            f.FirstString("id", "uplink_id", "dev_eui"),
		EUI:           f.FirstString("dev_eui"),
		Name:          f.FirstString("device_name"),
		AppName:       f.FirstString("app_name"),
		Frequency:     frequencyOf(f),
		LastSeenLabel: f.FirstString(lastSeenKeys...),
	}
	if s.ID == "" {
		s.ID = strconv.Itoa(index)
	}
	if s.EUI == "" {
		s.EUI = listedID
	}
	if models.Truthy(f["data_json"]) {
		s.DataJSON = detail.RawField("data_json")
	}
	if v, ok := f.First(lastSeenKeys...); ok {
		s.LastSeenSort = ParseLastSeen(v)
	}
	return s
}

var lastSeenKeys = []string{"last_seen", "ts", "inserted_at", "updated_at"}

func frequencyOf(f models.Record) interface{} {
	if v, ok := f.First("frequency"); ok {
		return v
	}
	for _, key := range []string{"tx_info", "txInfo"} {
		if tx, ok := f.Object(key); ok {
			if v, ok := tx.First("frequency"); ok {
				return v
			}
		}
	}
	return nil
}

// ParseLastSeen converts a timestamp value to epoch milliseconds. Numbers are
// taken as milliseconds already. Anything unparseable or not positive is 0.
func ParseLastSeen(v interface{}) int64 {
	var ms int64
	switch x := v.(type) {
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0
		}
		ms = int64(f)
	case float64:
		ms = int64(x)
	case string:
		t, err := dateparse.ParseIn(x, time.UTC)
		if err != nil {
			return 0
		}
		ms = t.UnixMilli()
	default:
		return 0
	}
	if ms <= 0 {
		return 0
	}
	return ms
}

// SortByLastSeen orders summaries newest first. Summaries without a reliable
// timestamp keep their relative order after all others.
func SortByLastSeen(list []models.DeviceSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].LastSeenSort, list[j].LastSeenSort
		if a <= 0 {
			return false
		}
		if b <= 0 {
			return true
		}
		return a > b
	})
}
