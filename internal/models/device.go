package models

import (
    "encoding/json"
    "time"
)

// DeviceDetail is the latest full uplink the API holds for one device.
type DeviceDetail struct {
    Uplink
}

// DeviceSummary is the admin dashboard's latest-snapshot view of one device.
type DeviceSummary struct {
    ID            string          `json:"id"`
    EUI           string          `json:"eui"`
    Name          string          `json:"name"`
    AppName       string          `json:"appName"`
    Frequency     interface{}     `json:"frequency,omitempty"`
    DataJSON      json.RawMessage `json:"dataJson,omitempty"`
    LastSeenLabel string          `json:"lastSeenLabel"`

    // LastSeenSort is epoch milliseconds, 0 when no reliable timestamp exists.
    LastSeenSort int64 `json:"lastSeenSort"`
}

// SkippedDevice records why a listed device has no summary.
type SkippedDevice struct {
    ID     string `json:"id"`
    Reason string `json:"reason"`
}

// FleetReport is the outcome of one admin fetch across every listed device.
type FleetReport struct {
    GeneratedAt time.Time       `json:"generatedAt"`
    Requested   int             `json:"requested"`
    Devices     []DeviceSummary `json:"devices"`
    Skipped     []SkippedDevice `json:"skipped,omitempty"`
}
