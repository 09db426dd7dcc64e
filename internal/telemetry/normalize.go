package telemetry

import (
	"bytes"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
)

// Shape names the response layout a body was recognised as
type Shape string

const (
	ShapeEmpty   Shape = "empty"
	ShapeArray   Shape = "array"
	ShapeUplinks Shape = "uplinks"
	ShapeData    Shape = "data"
	ShapeSingle  Shape = "single"
	ShapeUnknown Shape = "unknown"
)

type matcher struct {
	shape Shape
	match func(raw json.RawMessage, obj map[string]json.RawMessage) ([]json.RawMessage, bool)
}

// matchers are tried in order; the order is part of the API contract
// ("uplinks" wins over "data", the single-object form is the last resort).
var matchers = []matcher{
	{ShapeArray, func(raw json.RawMessage, _ map[string]json.RawMessage) ([]json.RawMessage, bool) {
		return decodeArray(raw)
	}},
	{ShapeUplinks, func(_ json.RawMessage, obj map[string]json.RawMessage) ([]json.RawMessage, bool) {
		return decodeArray(obj["uplinks"])
	}},
	{ShapeData, func(_ json.RawMessage, obj map[string]json.RawMessage) ([]json.RawMessage, bool) {
		return decodeArray(obj["data"])
	}},
	{ShapeSingle, func(raw json.RawMessage, _ map[string]json.RawMessage) ([]json.RawMessage, bool) {
		rec, ok := models.DecodeRecord(raw)
		if !ok {
			return nil, false
		}
		if _, ok := rec.First("dev_eui", "device_name", "data_text"); !ok {
			return nil, false
		}
		return []json.RawMessage{raw}, true
	}},
}

// NormalizeRows turns any uplink response body into an ordered list of rows.
// Bodies that match no known layout yield no rows and are logged.
func NormalizeRows(raw json.RawMessage) ([]models.Uplink, Shape) {
	raw = bytes.TrimSpace(raw)
	if isFalsy(raw) {
		return []models.Uplink{}, ShapeEmpty
	}

	var obj map[string]json.RawMessage
	if raw[0] == '{' {
		_ = json.Unmarshal(raw, &obj)
	}

	for _, m := range matchers {
		elems, ok := m.match(raw, obj)
		if !ok {
			continue
		}
		rows := make([]models.Uplink, 0, len(elems))
		for _, e := range elems {
			rows = append(rows, models.NewUplink(e))
		}
		return rows, m.shape
	}

	log.Warn().
		Int("size", len(raw)).
		Str("body", truncate(string(raw), 200)).
		Msg("Uplink response matched no known shape")

	return []models.Uplink{}, ShapeUnknown
}

// isFalsy reports an absent body or a JSON value JavaScript treats as false
func isFalsy(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

func decodeArray(raw json.RawMessage) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '[' {
		return nil, false
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil, false
	}
	return elems, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
