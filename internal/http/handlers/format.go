package handlers

import "fmt"

// FormatDurationMS renders a millisecond duration for the dashboard
// (e.g. session tables): "12.3 s" under a minute, "4 min 05 s" above.
// Nil means the session had no usable time range.
func FormatDurationMS(ms *int64) string {
	if ms == nil {
		return "—"
	}
	s := float64(*ms) / 1000.0
	if s < 60 {
		return fmt.Sprintf("%.1f s", s)
	}
	m := int(s) / 60
	rs := int(s) % 60
	return fmt.Sprintf("%d min %02d s", m, rs)
}
