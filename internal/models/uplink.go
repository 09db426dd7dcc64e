package models

import (
    "bytes"
    "encoding/json"
    "strconv"
)

// Uplink is one telemetry message as returned by the API. The element is kept
// verbatim; Fields is nil when the element is not a JSON object.
type Uplink struct {
    raw    json.RawMessage
    fields Record
}

// NewUplink wraps a raw JSON element.
func NewUplink(raw json.RawMessage) Uplink {
    raw = append(json.RawMessage(nil), bytes.TrimSpace(raw)...)
    fields, _ := DecodeRecord(raw)
    return Uplink{raw: raw, fields: fields}
}

// Raw returns the element exactly as received.
func (u Uplink) Raw() json.RawMessage {
    return u.raw
}

// Fields returns the decoded object, or nil.
func (u Uplink) Fields() Record {
    return u.fields
}

// MarshalJSON implements json.Marshaler
func (u Uplink) MarshalJSON() ([]byte, error) {
    if len(u.raw) == 0 {
        return []byte("null"), nil
    }
    return u.raw, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (u *Uplink) UnmarshalJSON(data []byte) error {
    *u = NewUplink(data)
    return nil
}

// Timestamp is ts, then inserted_at, then "-".
func (u Uplink) Timestamp() string {
    if ts := u.fields.FirstString("ts", "inserted_at"); ts != "" {
        return ts
    }
    return "-"
}

// DeviceLabel is "name (eui)" when both are known, otherwise the first of
// device_name, dev_eui and app_name.
func (u Uplink) DeviceLabel() string {
    name := u.fields.FirstString("device_name")
    eui := u.fields.FirstString("dev_eui")
    if name != "" && eui != "" {
        return name + " (" + eui + ")"
    }
    if label := u.fields.FirstString("device_name", "dev_eui", "app_name"); label != "" {
        return label
    }
    return "-"
}

// PayloadSummary is the one-line payload: data_text, else data_json as
// compact JSON, else the whole element as compact JSON.
func (u Uplink) PayloadSummary() string {
    if text, ok := u.fields.First("data_text"); ok {
        return Stringify(text)
    }
    if Truthy(u.fields["data_json"]) {
        if raw := u.RawField("data_json"); raw != nil {
            return compactJSON(raw)
        }
    }
    return compactJSON(u.raw)
}

// PayloadPretty is the whole element indented by two spaces.
func (u Uplink) PayloadPretty() string {
    var buf bytes.Buffer
    if err := json.Indent(&buf, u.raw, "", "  "); err != nil {
        return string(u.raw)
    }
    return buf.String()
}

// Key identifies the row in a rendered list: uplink_id when present,
// otherwise the positional index.
func (u Uplink) Key(index int) string {
    if u.fields.Has("uplink_id") {
        return Stringify(u.fields["uplink_id"])
    }
    return strconv.Itoa(index)
}

// RawField returns the undecoded bytes of a top-level field so nested JSON
// keeps its original key order.
func (u Uplink) RawField(key string) json.RawMessage {
    var m map[string]json.RawMessage
    if err := json.Unmarshal(u.raw, &m); err != nil {
        return nil
    }
    return m[key]
}

func compactJSON(raw json.RawMessage) string {
    var buf bytes.Buffer
    if err := json.Compact(&buf, raw); err != nil {
        return string(raw)
    }
    return buf.String()
}
