package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maptrack/internal/maptrack"
)

func parseFixture(t *testing.T, csv, filename string) *maptrack.ParsedSession {
	t.Helper()
	ds, err := maptrack.ReadCSV(strings.NewReader(csv))
	require.NoError(t, err)
	session, err := maptrack.Assemble(ds, filename, maptrack.AssembleOptions{})
	require.NoError(t, err)
	return session
}

func TestComputeSessionMetrics(t *testing.T) {
	session := parseFixture(t, `timestamp,event_name,event_detail,task
500,a,,T1
100,b,,T1
900,c,,T2
`, "study.csv")

	m := ComputeSessionMetrics(session, map[string]string{"age": "29", "gender": " f ", "vek": "ignored"})

	assert.Equal(t, "study", m.SessionID)
	assert.Equal(t, 2, m.TasksCount)
	assert.Equal(t, 3, m.EventsTotal)
	require.NotNil(t, m.TimeMinMS)
	require.NotNil(t, m.TimeMaxMS)
	require.NotNil(t, m.DurationMS)
	assert.Equal(t, int64(100), *m.TimeMinMS)
	assert.Equal(t, int64(900), *m.TimeMaxMS)
	assert.Equal(t, *m.TimeMaxMS-*m.TimeMinMS, *m.DurationMS)

	require.NotNil(t, m.SocDemo.Age)
	assert.Equal(t, "29", *m.SocDemo.Age)
	require.NotNil(t, m.SocDemo.Gender)
	assert.Equal(t, "f", *m.SocDemo.Gender)
	assert.Nil(t, m.SocDemo.Nationality)
}

func TestComputeSessionMetrics_EmptySession(t *testing.T) {
	session := parseFixture(t, "timestamp,event_name,event_detail\n", "empty.csv")
	m := ComputeSessionMetrics(session, nil)

	assert.Equal(t, 0, m.EventsTotal)
	assert.Nil(t, m.TimeMinMS)
	assert.Nil(t, m.TimeMaxMS)
	assert.Nil(t, m.DurationMS)
}

func TestComputeSessionMetrics_DefaultedTimestampsCount(t *testing.T) {
	// An uncoercible timestamp was substituted with 0 by the assembler
	// and still participates in the range.
	session := parseFixture(t, "timestamp,event_name,event_detail\nbroken,a,\n500,b,\n", "s.csv")
	m := ComputeSessionMetrics(session, nil)
	require.NotNil(t, m.TimeMinMS)
	assert.Equal(t, int64(0), *m.TimeMinMS)
	assert.Equal(t, int64(500), *m.DurationMS)
}

func TestComputeTaskMetrics(t *testing.T) {
	session := parseFixture(t, `timestamp,event_name,event_detail,task
100,a,,T1
400,b,,T1
900,c,,T2
`, "s.csv")

	tm := ComputeTaskMetrics(session.Tasks["T1"])
	assert.Equal(t, "T1", tm.TaskID)
	assert.Equal(t, 2, tm.EventsTotal)
	require.NotNil(t, tm.DurationMS)
	assert.Equal(t, int64(300), *tm.DurationMS)
	assert.Equal(t, *tm.TimeMaxMS-*tm.TimeMinMS, *tm.DurationMS)

	all := ComputeAllTaskMetrics(session)
	require.Len(t, all, 2)
	assert.Equal(t, 1, all["T2"].EventsTotal)
}

func TestExtractSocDemo_LocaleAliases(t *testing.T) {
	sd := ExtractSocDemo(map[string]string{
		"Věk":      "31",
		"pohlaví":  "m",
		"vzdelani": "VŠ",
		"   ":      "noise",
	})
	require.NotNil(t, sd.Age)
	assert.Equal(t, "31", *sd.Age)
	require.NotNil(t, sd.Gender)
	assert.Equal(t, "m", *sd.Gender)
	require.NotNil(t, sd.Education)
	assert.Equal(t, "VŠ", *sd.Education)
	assert.Nil(t, sd.Occupation)
	assert.Nil(t, sd.Nationality)

	// Present but blank normalizes to absent.
	sd = ExtractSocDemo(map[string]string{"age": "   "})
	assert.Nil(t, sd.Age)
}

func TestAggregateSessions_Empty(t *testing.T) {
	agg := AggregateSessions(nil)
	assert.Equal(t, 0, agg.SessionsCount)
	assert.Nil(t, agg.AvgDurationMS)
	assert.Nil(t, agg.AvgEventsTotal)
}

func TestAggregateSessions(t *testing.T) {
	d1, d2 := int64(1000), int64(3000)
	agg := AggregateSessions([]SessionMetrics{
		{DurationMS: &d1, EventsTotal: 10},
		{DurationMS: &d2, EventsTotal: 20},
		{EventsTotal: 30}, // no duration: drops out of the duration mean
	})
	assert.Equal(t, 3, agg.SessionsCount)
	require.NotNil(t, agg.AvgDurationMS)
	assert.Equal(t, int64(2000), *agg.AvgDurationMS)
	require.NotNil(t, agg.AvgEventsTotal)
	assert.Equal(t, int64(20), *agg.AvgEventsTotal)
}
