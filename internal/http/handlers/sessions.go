package handlers

import (
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "maptrack/internal/db"
	"maptrack/internal/maptrack"
)

type sessionSummary struct {
	SessionID       string         `json:"session_id"`
	TestID          string         `json:"test_id"`
	UserID          string         `json:"user_id,omitempty"`
	Task            string         `json:"task,omitempty"`
	Stats           map[string]any `json:"stats"`
	CreatedAt       string         `json:"created_at"`
	DurationDisplay string         `json:"duration_display"`
}

func summarize(s *dbpkg.Session) sessionSummary {
	var durationDisplay string
	if d, ok := statDuration(s.Stats); ok {
		durationDisplay = FormatDurationMS(&d)
	} else {
		durationDisplay = FormatDurationMS(nil)
	}
	return sessionSummary{
		SessionID:       s.SessionID,
		TestID:          s.TestID,
		UserID:          s.UserID,
		Task:            s.PrimaryTask,
		Stats:           s.Stats,
		CreatedAt:       s.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		DurationDisplay: durationDisplay,
	}
}

func statDuration(stats map[string]any) (int64, bool) {
	sess, ok := stats["session"].(map[string]any)
	if !ok {
		return 0, false
	}
	f, ok := sess["duration_ms"].(float64)
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// ListSessionsHandler returns all registered sessions, optionally
// filtered to one test.
func ListSessionsHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		testID := string(ctx.QueryArgs().Peek("test"))
		sessions, err := dbpkg.ListSessions(db, testID)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to list sessions")
			return
		}
		out := make([]sessionSummary, 0, len(sessions))
		for i := range sessions {
			out = append(out, summarize(&sessions[i]))
		}
		jsonResponse(ctx, map[string]any{"sessions": out})
	}
}

// GetSessionHandler returns one registry entry by session id.
func GetSessionHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sessionID, ok := pathString(ctx, "id")
		if !ok {
			return
		}
		s, err := dbpkg.GetSession(db, sessionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				errResponse(ctx, fasthttp.StatusNotFound, "session not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load session")
			return
		}
		summary := summarize(s)
		jsonResponse(ctx, map[string]any{
			"session_id":       summary.SessionID,
			"test_id":          summary.TestID,
			"user_id":          summary.UserID,
			"task":             summary.Task,
			"stats":            summary.Stats,
			"created_at":       summary.CreatedAt,
			"duration_display": summary.DurationDisplay,
			"file_path":        s.FilePath,
		})
	}
}

type eventRow struct {
	Timestamp   int64  `json:"timestamp"`
	EventName   string `json:"event_name"`
	EventDetail string `json:"event_detail"`
	Task        string `json:"task,omitempty"`
}

// SessionEventsHandler re-parses the stored upload and returns the raw
// event listing. Rows whose source timestamp or event name cell is
// blank are dropped; everything else mirrors the parse result.
func SessionEventsHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sessionID, ok := pathString(ctx, "id")
		if !ok {
			return
		}
		s, err := dbpkg.GetSession(db, sessionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				errResponse(ctx, fasthttp.StatusNotFound, "session not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load session")
			return
		}

		ds, err := readSavedCSV(s.FilePath)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to read stored file")
			return
		}

		opts := maptrack.AssembleOptions{SessionIDOverride: s.SessionID, UserIDOverride: s.UserID}
		session, err := maptrack.Assemble(ds, s.SessionID, opts)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to parse stored file")
			return
		}

		rows := make([]eventRow, 0, len(session.Events))
		for _, ev := range session.Events {
			if strings.TrimSpace(ds.Cell(ev.RowIndex, "timestamp")) == "" || ev.EventName == "" {
				continue
			}
			rows = append(rows, eventRow{
				Timestamp:   ev.TimestampMS,
				EventName:   ev.EventName,
				EventDetail: ev.Detail,
				Task:        ev.TaskID,
			})
		}
		jsonResponse(ctx, map[string]any{"session_id": s.SessionID, "events": rows})
	}
}

// TaskMetricsHandler returns one task's cached metrics from the stats
// blob, or 404 when the session has no such task.
func TaskMetricsHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		sessionID, ok := pathString(ctx, "id")
		if !ok {
			return
		}
		taskID, ok := pathString(ctx, "task_id")
		if !ok {
			return
		}

		s, err := dbpkg.GetSession(db, sessionID)
		if err != nil {
			if err == gorm.ErrRecordNotFound {
				errResponse(ctx, fasthttp.StatusNotFound, "session not found")
				return
			}
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load session")
			return
		}

		tasks, ok := s.Stats["tasks"].(map[string]any)
		if !ok {
			errResponse(ctx, fasthttp.StatusNotFound, "task not found")
			return
		}
		metrics, ok := tasks[taskID]
		if !ok {
			errResponse(ctx, fasthttp.StatusNotFound, "task not found")
			return
		}
		jsonResponse(ctx, metrics)
	}
}

// TestAggregateHandler returns the cross-session summary for one test.
// Missing rows are recomputed once before answering; a test with no
// sessions yields a zero-count aggregate with absent averages.
func TestAggregateHandler(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		testID, ok := pathString(ctx, "test_id")
		if !ok {
			return
		}

		row, err := dbpkg.GetTestAggregate(db, testID)
		if err == gorm.ErrRecordNotFound {
			if err := dbpkg.RunAggregationOnce(db); err != nil {
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to aggregate sessions")
				return
			}
			row, err = dbpkg.GetTestAggregate(db, testID)
			if err == gorm.ErrRecordNotFound {
				jsonResponse(ctx, map[string]any{
					"test_id":          testID,
					"sessions_count":   0,
					"avg_duration_ms":  nil,
					"avg_events_total": nil,
				})
				return
			}
		}
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to load aggregate")
			return
		}

		jsonResponse(ctx, map[string]any{
			"test_id":          row.TestID,
			"sessions_count":   row.SessionsCount,
			"avg_duration_ms":  row.AvgDurationMs,
			"avg_events_total": row.AvgEventsTotal,
		})
	}
}
