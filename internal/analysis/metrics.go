// Package analysis derives descriptive metrics from parsed MapTrack
// sessions. Everything here is recomputable from a ParsedSession; the
// results are cached alongside session metadata purely for serving.
package analysis

import (
	"strings"

	"maptrack/internal/maptrack"
)

// SocDemoKeys lists the socio-demographic fields attached to a session,
// in reporting order.
var SocDemoKeys = []string{"age", "gender", "occupation", "education", "nationality"}

// SocDemo holds the respondent attributes sourced from the first data
// row. Nil fields were missing or blank in the source.
type SocDemo struct {
	Age         *string `json:"age"`
	Gender      *string `json:"gender"`
	Occupation  *string `json:"occupation"`
	Education   *string `json:"education"`
	Nationality *string `json:"nationality"`
}

// SessionMetrics is the per-session stats block served to the dashboard.
type SessionMetrics struct {
	SessionID   string  `json:"session_id"`
	UserID      string  `json:"user_id,omitempty"`
	TasksCount  int     `json:"tasks_count"`
	EventsTotal int     `json:"events_total"`
	TimeMinMS   *int64  `json:"time_min_ms"`
	TimeMaxMS   *int64  `json:"time_max_ms"`
	DurationMS  *int64  `json:"duration_ms"`
	SocDemo     SocDemo `json:"soc_demo"`
}

// TaskMetrics is the same time-range computation scoped to one task.
type TaskMetrics struct {
	TaskID      string `json:"task_id"`
	EventsTotal int    `json:"events_total"`
	TimeMinMS   *int64 `json:"time_min_ms"`
	TimeMaxMS   *int64 `json:"time_max_ms"`
	DurationMS  *int64 `json:"duration_ms"`
}

// TestAggregate summarizes all sessions of one test. Averages are nil
// when no session contributed a value; "no data" is absent, never zero.
type TestAggregate struct {
	SessionsCount  int    `json:"sessions_count"`
	AvgDurationMS  *int64 `json:"avg_duration_ms"`
	AvgEventsTotal *int64 `json:"avg_events_total"`
}

func timeRange(events []*maptrack.Event) (tmin, tmax, duration *int64) {
	if len(events) == 0 {
		return nil, nil, nil
	}
	lo, hi := events[0].TimestampMS, events[0].TimestampMS
	for _, ev := range events[1:] {
		if ev.TimestampMS < lo {
			lo = ev.TimestampMS
		}
		if ev.TimestampMS > hi {
			hi = ev.TimestampMS
		}
	}
	d := hi - lo
	return &lo, &hi, &d
}

func firstNonEmpty(row map[string]string, column string) *string {
	if row == nil || column == "" {
		return nil
	}
	s := strings.TrimSpace(row[column])
	if s == "" {
		return nil
	}
	return &s
}

// ExtractSocDemo pulls the five socio-demographic fields out of a raw
// first-row mapping, resolving locale-variant column names through the
// alias table. Blank values normalize to nil.
func ExtractSocDemo(rawRow map[string]string) SocDemo {
	if rawRow == nil {
		return SocDemo{}
	}
	columns := make([]string, 0, len(rawRow))
	for c := range rawRow {
		columns = append(columns, c)
	}
	resolved := maptrack.ResolveColumnAliases(columns, maptrack.SocDemoAliases)
	return SocDemo{
		Age:         firstNonEmpty(rawRow, resolved["age"]),
		Gender:      firstNonEmpty(rawRow, resolved["gender"]),
		Occupation:  firstNonEmpty(rawRow, resolved["occupation"]),
		Education:   firstNonEmpty(rawRow, resolved["education"]),
		Nationality: firstNonEmpty(rawRow, resolved["nationality"]),
	}
}

// ComputeSessionMetrics derives the session-level stats. Timestamps
// defaulted to 0 by the assembler still participate in the time range;
// the range is absent only when the session has no events at all.
func ComputeSessionMetrics(session *maptrack.ParsedSession, rawRow map[string]string) SessionMetrics {
	tmin, tmax, duration := timeRange(session.Events)
	return SessionMetrics{
		SessionID:   session.SessionID,
		UserID:      session.UserID,
		TasksCount:  len(session.Tasks),
		EventsTotal: len(session.Events),
		TimeMinMS:   tmin,
		TimeMaxMS:   tmax,
		DurationMS:  duration,
		SocDemo:     ExtractSocDemo(rawRow),
	}
}

// ComputeTaskMetrics derives the stats for one task stream.
func ComputeTaskMetrics(task *maptrack.TaskStream) TaskMetrics {
	tmin, tmax, duration := timeRange(task.Events)
	return TaskMetrics{
		TaskID:      task.TaskID,
		EventsTotal: len(task.Events),
		TimeMinMS:   tmin,
		TimeMaxMS:   tmax,
		DurationMS:  duration,
	}
}

// ComputeAllTaskMetrics returns task metrics keyed by task id.
func ComputeAllTaskMetrics(session *maptrack.ParsedSession) map[string]TaskMetrics {
	out := make(map[string]TaskMetrics, len(session.Tasks))
	for id, stream := range session.Tasks {
		out[id] = ComputeTaskMetrics(stream)
	}
	return out
}

// AggregateSessions computes the cross-session summary for one test.
// Sessions without a duration (or, separately, without an event count)
// simply drop out of the respective mean.
func AggregateSessions(sessions []SessionMetrics) TestAggregate {
	agg := TestAggregate{SessionsCount: len(sessions)}
	if len(sessions) == 0 {
		return agg
	}

	var durSum, durN, evSum, evN int64
	for _, s := range sessions {
		if s.DurationMS != nil {
			durSum += *s.DurationMS
			durN++
		}
		evSum += int64(s.EventsTotal)
		evN++
	}
	if durN > 0 {
		avg := durSum / durN
		agg.AvgDurationMS = &avg
	}
	if evN > 0 {
		avg := evSum / evN
		agg.AvgEventsTotal = &avg
	}
	return agg
}
