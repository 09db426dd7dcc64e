package devices

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/labte-ums/lorawan-dashboard/internal/models"
	"github.com/labte-ums/lorawan-dashboard/pkg/lorawan"
)

// ElapsedCutoff is the oldest last-seen time ElapsedLabel renders.
const ElapsedCutoff = 90 * time.Minute

// ElapsedLabel renders the time since lastSeenSort as "Xm YYs ago", or "-"
// when the timestamp is unknown or older than ElapsedCutoff.
func ElapsedLabel(lastSeenSort int64, now time.Time) string {
	if lastSeenSort <= 0 {
		return "-"
	}
	elapsed := now.Sub(time.UnixMilli(lastSeenSort))
	if elapsed > ElapsedCutoff {
		return "-"
	}
	if elapsed < 0 {
		elapsed = 0
	}
	minutes := int(elapsed / time.Minute)
	seconds := int(elapsed % time.Minute / time.Second)
	return fmt.Sprintf("%dm %02ds ago", minutes, seconds)
}

// FormatFrequency renders a frequency in Hz as MHz with two decimals.
// Missing values render as "-", non-numeric strings as themselves.
func FormatFrequency(v interface{}) string {
	hz, ok := frequencyHz(v)
	if !ok {
		switch x := v.(type) {
		case string:
			if strings.TrimSpace(x) != "" {
				return x
			}
		case json.Number:
			return x.String()
		}
		return "-"
	}
	return fmt.Sprintf("%.2f MHz", hz/1e6)
}

// BandLabel names the regional band holding the frequency, with the default
// channel index when it is one, e.g. "AS923-2 ch1".
func BandLabel(v interface{}) string {
	hz, ok := frequencyHz(v)
	if !ok || hz <= 0 || hz > math.MaxUint32 {
		return "-"
	}

	r, ok := lorawan.RegionForFrequency(uint32(hz))
	if !ok {
		return "-"
	}
	if ch := r.ChannelIndex(uint32(hz)); ch >= 0 {
		return fmt.Sprintf("%s ch%d", r.Name, ch)
	}
	return r.Name
}

func frequencyHz(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	}
	return 0, false
}

// TruncatePayload shortens s to at most n runes, marking the cut with "...".
func TruncatePayload(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

const dayMillis = int64(24 * time.Hour / time.Millisecond)

// IsOlderThan reports whether lastSeenSort lies more than days in the past.
// An unknown timestamp counts as old.
func IsOlderThan(lastSeenSort int64, days int, now time.Time) bool {
	if lastSeenSort <= 0 {
		return true
	}
	if int64(days) > math.MaxInt64/dayMillis {
		return false
	}
	return now.UnixMilli()-lastSeenSort > int64(days)*dayMillis
}

// FilterRecent keeps the devices seen within the last days. days <= 0
// disables the filter.
func FilterRecent(list []models.DeviceSummary, days int, now time.Time) []models.DeviceSummary {
	if days <= 0 {
		return list
	}
	out := make([]models.DeviceSummary, 0, len(list))
	for _, d := range list {
		if !IsOlderThan(d.LastSeenSort, days, now) {
			out = append(out, d)
		}
	}
	return out
}
