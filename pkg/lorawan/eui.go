package lorawan

import "strings"

// NormalizeDevEUI trims and lower-cases a DevEUI as typed by a user. The
// telemetry API keys devices by the lower-case form.
func NormalizeDevEUI(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
