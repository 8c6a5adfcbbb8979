package maptrack

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseViewport(t *testing.T) {
	v, ok := ParseViewport("1280x585")
	require.True(t, ok)
	assert.Equal(t, Viewport{Width: 1280, Height: 585}, v)

	v, ok = ParseViewport("1920×1080")
	require.True(t, ok)
	assert.Equal(t, Viewport{Width: 1920, Height: 1080}, v)

	v, ok = ParseViewport("  800 x 600  ")
	require.True(t, ok)
	assert.Equal(t, Viewport{Width: 800, Height: 600}, v)

	_, ok = ParseViewport("bogus")
	assert.False(t, ok)

	_, ok = ParseViewport("")
	assert.False(t, ok)

	assert.False(t, Viewport{}.Valid())
	assert.True(t, Viewport{Width: 1, Height: 1}.Valid())
}

func TestParseTimestampMS(t *testing.T) {
	ts, ok := ParseTimestampMS("12345")
	require.True(t, ok)
	assert.Equal(t, int64(12345), ts)

	ts, ok = ParseTimestampMS("12345.9")
	require.True(t, ok)
	assert.Equal(t, int64(12345), ts)

	_, ok = ParseTimestampMS("not-a-number")
	assert.False(t, ok)

	_, ok = ParseTimestampMS("")
	assert.False(t, ok)
}

func TestParseTimestampMS_NonFinite(t *testing.T) {
	// ParseFloat accepts these; the coercion must not.
	for _, raw := range []string{"NaN", "nan", "Inf", "+Inf", "-Inf", "1e300", "-1e300"} {
		ts, ok := ParseTimestampMS(raw)
		assert.False(t, ok, "raw=%q", raw)
		assert.Equal(t, int64(0), ts, "raw=%q", raw)
	}
}

func TestParseEventDetail_Movement(t *testing.T) {
	parsed := ParseEventDetail("movestart", "50.1, 14.4")
	assert.Equal(t, map[string]any{"lat": 50.1, "lon": 14.4}, parsed)

	parsed = ParseEventDetail("moveend", " -10.5 , 20 ")
	assert.Equal(t, map[string]any{"lat": -10.5, "lon": 20.0}, parsed)

	// Non-coordinate details fall through to the generic case.
	parsed = ParseEventDetail("popupopen", "Prague")
	assert.Equal(t, map[string]any{"value": "Prague"}, parsed)
}

func TestParseEventDetail_Zoom(t *testing.T) {
	assert.Equal(t, map[string]any{"zoom": 7.0}, ParseEventDetail("zoom in", "7"))
	assert.Equal(t, map[string]any{"zoom": 3.5}, ParseEventDetail("zoom out", "3.5"))
	assert.Equal(t, map[string]any{}, ParseEventDetail("zoom in", "abc"))
}

func TestParseEventDetail_SettingTask(t *testing.T) {
	assert.Equal(t, map[string]any{"task_id": "01A-v1"}, ParseEventDetail("setting task", "01A-v1"))
	assert.Equal(t, map[string]any{"task_id": "01A-v1"}, ParseEventDetail("setting task", "  01A-v1  "))
}

func TestParseEventDetail_Generic(t *testing.T) {
	assert.Equal(t, map[string]any{"value": "Prague"}, ParseEventDetail("popupopen:city", "Prague"))
	assert.Equal(t, map[string]any{"value": "layer-1"}, ParseEventDetail("show layer", " layer-1 "))
	assert.Equal(t, map[string]any{}, ParseEventDetail("anything", ""))
}

func TestInferSessionID(t *testing.T) {
	assert.Equal(t, "MAP-2024_run_3", InferSessionID("MAP-2024_run#3.csv"))
	assert.Equal(t, "session_01", InferSessionID("session 01.csv"))
	assert.Equal(t, "data", InferSessionID("data"))
	assert.Equal(t, "session", InferSessionID("###.csv"))
	assert.Equal(t, "session", InferSessionID(".csv"))
}
