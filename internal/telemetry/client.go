// Package telemetry reads uplinks and device details from the external
// LoRaWAN uplink API.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/labte-ums/lorawan-dashboard/internal/config"
	"github.com/labte-ums/lorawan-dashboard/internal/models"
	"github.com/labte-ums/lorawan-dashboard/pkg/lorawan"
)

const maxBodySize = 8 << 20

// Client issues read-only requests against the uplink API. It never retries
// and never caches.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for cfg. A zero cfg.Timeout leaves the
// net/http default in place.
func NewClient(cfg config.TelemetryConfig, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchUplinks returns the most recent count uplinks of a device
func (c *Client) FetchUplinks(ctx context.Context, devEUIRaw string, count int) ([]models.Uplink, error) {
	const op = "fetch uplinks"

	devEUI := lorawan.NormalizeDevEUI(devEUIRaw)
	if devEUI == "" {
		return nil, &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf("DevEUI must not be empty")}
	}
	if err := c.checkConfig(op); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("n", strconv.Itoa(count))

	body, err := c.get(ctx, op, "/uplinks/"+url.PathEscape(devEUI)+"/last10", query, false)
	if err != nil {
		return nil, err
	}

	rows, shape := NormalizeRows(body)

	log.Debug().
		Str("devEUI", devEUI).
		Str("shape", string(shape)).
		Int("rows", len(rows)).
		Msg("Uplinks loaded")

	return rows, nil
}

// FetchDeviceList returns the identifiers of every known device, in API
// order and without duplicates.
func (c *Client) FetchDeviceList(ctx context.Context) ([]string, error) {
	const op = "fetch device list"

	if err := c.checkConfig(op); err != nil {
		return nil, err
	}

	body, err := c.get(ctx, op, "/uplinks/devices", nil, true)
	if err != nil {
		return nil, err
	}

	return decodeDeviceIDs(body), nil
}

// FetchDeviceDetail returns the latest full uplink of one device. A nil
// detail with a nil error means the API answered without a usable record.
func (c *Client) FetchDeviceDetail(ctx context.Context, devEUI string) (*models.DeviceDetail, error) {
	const op = "fetch device detail"

	if strings.TrimSpace(devEUI) == "" {
		return nil, &Error{Kind: ErrValidation, Op: op, Err: fmt.Errorf("DevEUI must not be empty")}
	}
	if err := c.checkConfig(op); err != nil {
		return nil, err
	}

	body, err := c.get(ctx, op, "/uplinks/"+url.PathEscape(devEUI)+"/latest/full", nil, false)
	if err != nil {
		return nil, err
	}

	return decodeDetail(body), nil
}

// checkConfig fails before any network call when the API is not configured
func (c *Client) checkConfig(op string) error {
	switch {
	case c.baseURL == "" && c.apiKey == "":
		return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf("base URL and API key are not set")}
	case c.baseURL == "":
		return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf("base URL is not set")}
	case c.apiKey == "":
		return &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf("API key is not set")}
	}
	return nil
}

// get performs one GET and returns the body of a 2xx JSON response. The key
// is sent both as api_key and as X-API-KEY; the API accepts either.
func (c *Client) get(ctx context.Context, op, path string, query url.Values, reportUnauthorized bool) (json.RawMessage, error) {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf("invalid base URL: %w", err)}
	}

	if query == nil {
		query = url.Values{}
	}
	query.Set("api_key", c.apiKey)
	u.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &Error{Kind: ErrConfiguration, Op: op, Err: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-API-KEY", c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().
			Err(err).
			Str("op", op).
			Str("path", u.Path).
			Msg("Telemetry request failed")
		return nil, &Error{Kind: ErrTransport, Op: op, Err: err}
	}
	defer resp.Body.Close()

	log.Debug().
		Str("op", op).
		Str("path", u.Path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Msg("Telemetry response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, statusError(op, resp.StatusCode, reportUnauthorized)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}

	body = bytes.TrimSpace(body)
	if len(body) > 0 && !json.Valid(body) {
		return nil, &Error{Kind: ErrTransport, Op: op, Status: resp.StatusCode, Err: fmt.Errorf("response is not valid JSON")}
	}

	return body, nil
}

func statusError(op string, status int, reportUnauthorized bool) error {
	switch {
	case status == http.StatusNotFound && !reportUnauthorized:
		return &Error{Kind: ErrNotFound, Op: op, Status: status}
	case status == http.StatusUnauthorized && reportUnauthorized:
		return &Error{Kind: ErrUnauthorized, Op: op, Status: status}
	}
	return &Error{Kind: ErrHTTP, Op: op, Status: status}
}

// decodeDeviceIDs accepts a bare list or a list wrapped under devices, data
// or uplinks. Elements may be strings or objects naming the device.
func decodeDeviceIDs(raw json.RawMessage) []string {
	elems, ok := decodeArray(raw)
	if !ok {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(raw, &obj); err == nil {
			for _, key := range []string{"devices", "data", "uplinks"} {
				if elems, ok = decodeArray(obj[key]); ok {
					break
				}
			}
		}
	}
	if !ok {
		log.Warn().Str("body", truncate(string(raw), 200)).Msg("Device list matched no known shape")
		return []string{}
	}

	seen := make(map[string]bool, len(elems))
	ids := make([]string, 0, len(elems))
	for _, e := range elems {
		var id string
		if rec, isObj := models.DecodeRecord(e); isObj {
			id = rec.FirstString("dev_eui", "devEUI", "deveui", "id")
		} else {
			var v interface{}
			dec := json.NewDecoder(bytes.NewReader(e))
			dec.UseNumber()
			if err := dec.Decode(&v); err == nil && models.Truthy(v) {
				id = models.Stringify(v)
			}
		}

		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// decodeDetail unwraps a detail body. Arrays yield their first object; an
// object wrapping "uplink" or "device" yields the wrapped object.
func decodeDetail(raw json.RawMessage) *models.DeviceDetail {
	if isFalsy(raw) {
		return nil
	}

	if elems, ok := decodeArray(raw); ok {
		for _, e := range elems {
			if _, isObj := models.DecodeRecord(e); isObj {
				return &models.DeviceDetail{Uplink: models.NewUplink(e)}
			}
		}
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}
	for _, key := range []string{"uplink", "device"} {
		if inner, ok := obj[key]; ok {
			if _, isObj := models.DecodeRecord(inner); isObj {
				return &models.DeviceDetail{Uplink: models.NewUplink(inner)}
			}
		}
	}
	return &models.DeviceDetail{Uplink: models.NewUplink(raw)}
}
