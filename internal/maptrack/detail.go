package maptrack

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Viewport is the map viewport size at the time of an event. The zero
// value means the source field was missing or unparseable.
type Viewport struct {
	Width  int `json:"width,omitempty"`
	Height int `json:"height,omitempty"`
}

// Valid reports whether the viewport carries real dimensions.
func (v Viewport) Valid() bool { return v.Width > 0 && v.Height > 0 }

var (
	viewportRe  = regexp.MustCompile(`^\s*(\d+)\s*[x×]\s*(\d+)\s*$`)
	latLonRe    = regexp.MustCompile(`^\s*(-?\d+(\.\d+)?)\s*,\s*(-?\d+(\.\d+)?)\s*$`)
	sessionIDRe = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
)

// movement events carry "lat, lon" details.
var movementEvents = map[string]bool{
	"movestart":  true,
	"moveend":    true,
	"popupopen":  true,
	"popupclose": true,
}

// ParseViewport parses "1280x585" style viewport sizes. Accepts the
// ASCII "x" and the multiplication sign, with arbitrary surrounding
// whitespace. Anything else yields the zero Viewport rather than an
// error; a broken viewport never blocks a row.
func ParseViewport(raw string) (Viewport, bool) {
	m := viewportRe.FindStringSubmatch(raw)
	if m == nil {
		return Viewport{}, false
	}
	w, err1 := strconv.Atoi(m[1])
	h, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return Viewport{}, false
	}
	return Viewport{Width: w, Height: h}, true
}

// ParseTimestampMS coerces a raw timestamp cell to milliseconds.
// MapTrack timestamps are ms since session start but show up as ints,
// floats, or garbage depending on the export. The bool is false when
// the value could not be coerced; the caller substitutes 0.
// ParseFloat happily accepts "NaN", "Inf" and values beyond int64, so
// those are rejected here before the int conversion can wrap.
func ParseTimestampMS(raw string) (int64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}

func parseLatLon(s string) (lat, lon float64, ok bool) {
	m := latLonRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, false
	}
	lat, err1 := strconv.ParseFloat(m[1], 64)
	lon, err2 := strconv.ParseFloat(m[3], 64)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lat, lon, true
}

// ParseEventDetail turns a free-text event detail into a structured
// payload. Coverage follows what the analysis layer needs:
//
//   - movestart/moveend/popupopen/popupclose: {lat, lon}
//   - "zoom in"/"zoom out":                   {zoom}
//   - "setting task":                         {task_id}
//   - everything else:                        {value}
//
// Case order matters: task switches and movement events must win over
// the generic fallback. Unparseable zoom levels are swallowed to an
// empty payload; most such rows are incidental.
func ParseEventDetail(eventName, rawDetail string) map[string]any {
	if rawDetail == "" {
		return map[string]any{}
	}
	s := strings.TrimSpace(rawDetail)

	if movementEvents[eventName] {
		if lat, lon, ok := parseLatLon(s); ok {
			return map[string]any{"lat": lat, "lon": lon}
		}
	}

	if eventName == "zoom in" || eventName == "zoom out" {
		z, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return map[string]any{}
		}
		return map[string]any{"zoom": z}
	}

	if eventName == "setting task" {
		// The detail carries the task id, e.g. "01A-v1". Shape is not
		// validated further.
		return map[string]any{"task_id": s}
	}

	// popupopen:name / polygon selected / show layer / answer selected / ...
	return map[string]any{"value": s}
}

// InferSessionID derives a session id from the uploaded file name:
// extension stripped, every run of characters outside [A-Za-z0-9_-]
// replaced with one underscore, leading/trailing underscores trimmed.
func InferSessionID(filename string) string {
	stem := filename
	if i := strings.LastIndex(filename, "."); i >= 0 {
		stem = filename[:i]
	}
	cleaned := strings.Trim(sessionIDRe.ReplaceAllString(stem, "_"), "_")
	if cleaned == "" {
		return "session"
	}
	return cleaned
}
