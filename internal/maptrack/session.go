package maptrack

import (
	"strings"
)

// Event is one normalized row of a MapTrack log. Immutable once the
// assembler returns; owned by its ParsedSession and referenced by at
// most one TaskStream.
type Event struct {
	RowIndex    int            `json:"row_index"`
	TimestampMS int64          `json:"timestamp_ms"`
	EventName   string         `json:"event_name"`
	TaskID      string         `json:"task_id,omitempty"`
	Viewport    *Viewport      `json:"viewport,omitempty"`
	Detail      string         `json:"detail,omitempty"`
	Parsed      map[string]any `json:"parsed,omitempty"`
}

// TaskStream is one task inside a session: the task id plus every
// event resolved to it, in master-list order. Events are shared with
// the parent session, not copied.
type TaskStream struct {
	TaskID string   `json:"task_id"`
	Events []*Event `json:"events"`
}

// ParsedSession is the full parse result for one uploaded file (or one
// user's slice of a bulk file). Events holds every row in file order,
// including rows with no resolved task; Tasks maps task id to its
// stream. A ParsedSession is a value: never mutated after Assemble.
type ParsedSession struct {
	SessionID string                 `json:"session_id"`
	UserID    string                 `json:"user_id,omitempty"`
	Events    []*Event               `json:"events"`
	Tasks     map[string]*TaskStream `json:"tasks"`
}

// AssembleOptions carries per-call overrides. Zero values mean "derive".
type AssembleOptions struct {
	SessionIDOverride string
	UserIDOverride    string
}

// taskResolver is the segmentation state machine. In explicit mode the
// task column decides and no state is carried; in fallback mode a
// single current-task variable advances on "setting task" events. The
// triggering row itself is already labeled with the new task.
type taskResolver struct {
	explicit    bool
	currentTask string
}

func (r *taskResolver) resolve(ds *Dataset, row int, eventName string, parsed map[string]any) string {
	var taskID string
	if r.explicit {
		taskID = strings.TrimSpace(ds.Cell(row, "task"))
	} else {
		if eventName == "setting task" {
			if inferred := inferredTaskID(parsed); inferred != "" {
				r.currentTask = inferred
			}
		}
		taskID = r.currentTask
	}

	// Residual rule, both modes: a "setting task" row whose resolved
	// task is still empty labels itself with its own inferred id. This
	// covers explicit-mode files where the task column is blank on the
	// switching row.
	if taskID == "" && eventName == "setting task" {
		if inferred := inferredTaskID(parsed); inferred != "" {
			taskID = inferred
		}
	}
	return taskID
}

func inferredTaskID(parsed map[string]any) string {
	if s, ok := parsed["task_id"].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

// Assemble runs the full per-row pass over a validated dataset and
// returns the immutable parse result. The pass is strictly sequential:
// fallback task segmentation carries state across rows. Row-level
// anomalies (bad timestamp, bad viewport, bad detail) are substituted,
// never fatal; only missing required columns abort.
func Assemble(ds *Dataset, filename string, opts AssembleOptions) (*ParsedSession, error) {
	if err := ds.ValidateRequired(); err != nil {
		return nil, err
	}

	sessionID := opts.SessionIDOverride
	if sessionID == "" {
		sessionID = InferSessionID(filename)
	}

	userID := strings.TrimSpace(opts.UserIDOverride)
	if userID == "" {
		if col := ds.UserIDColumn(); col != "" && ds.Len() > 0 {
			userID = strings.TrimSpace(ds.Cell(0, col))
		}
	}

	hasViewport := ds.HasColumn("viewportSize")
	resolver := &taskResolver{explicit: ds.HasColumn("task")}

	events := make([]*Event, 0, ds.Len())
	tasks := make(map[string]*TaskStream)

	for i := 0; i < ds.Len(); i++ {
		ts, _ := ParseTimestampMS(ds.Cell(i, "timestamp"))
		eventName := strings.TrimSpace(ds.Cell(i, "event_name"))
		rawDetail := ds.Cell(i, "event_detail")

		var viewport *Viewport
		if hasViewport {
			if vp, ok := ParseViewport(ds.Cell(i, "viewportSize")); ok {
				viewport = &vp
			}
		}

		parsed := ParseEventDetail(eventName, rawDetail)
		taskID := resolver.resolve(ds, i, eventName, parsed)

		ev := &Event{
			RowIndex:    i,
			TimestampMS: ts,
			EventName:   eventName,
			TaskID:      taskID,
			Viewport:    viewport,
			Detail:      rawDetail,
			Parsed:      parsed,
		}
		events = append(events, ev)

		if taskID != "" {
			stream, ok := tasks[taskID]
			if !ok {
				stream = &TaskStream{TaskID: taskID}
				tasks[taskID] = stream
			}
			stream.Events = append(stream.Events, ev)
		}
	}

	return &ParsedSession{
		SessionID: sessionID,
		UserID:    userID,
		Events:    events,
		Tasks:     tasks,
	}, nil
}

// ListTaskIDs returns the session's task ids in order of first
// appearance in the master event list, without duplicates.
func (s *ParsedSession) ListTaskIDs() []string {
	seen := make(map[string]bool, len(s.Tasks))
	ordered := make([]string, 0, len(s.Tasks))
	for _, ev := range s.Events {
		if ev.TaskID != "" && !seen[ev.TaskID] {
			seen[ev.TaskID] = true
			ordered = append(ordered, ev.TaskID)
		}
	}
	return ordered
}
