package handlers

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/valyala/fasthttp"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"maptrack/internal/analysis"
	"maptrack/internal/config"
	dbpkg "maptrack/internal/db"
	httpctx "maptrack/internal/http/ctx"
	"maptrack/internal/maptrack"
	"maptrack/internal/normalization"
)

var (
	uploadsTotal      *prometheus.CounterVec
	eventsParsedTotal *prometheus.CounterVec
	parseDuration     *prometheus.HistogramVec
)

func InitPrometheusMetrics() {
	uploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maptrack",
			Name:      "uploads_total",
			Help:      "Total number of CSV uploads, by test, mode and outcome.",
		},
		[]string{"test", "mode", "status"},
	)
	eventsParsedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "maptrack",
			Name:      "events_parsed_total",
			Help:      "Total number of normalized events produced by the parser.",
		},
		[]string{"test"},
	)
	parseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "maptrack",
			Name:      "parse_duration_seconds",
			Help:      "Histogram of CSV parse durations in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"mode"},
	)
	prometheus.MustRegister(uploadsTotal, eventsParsedTotal, parseDuration)
}

// sessionResult is the single-session payload returned by both upload
// endpoints and stored (stats part) in the registry.
type sessionResult struct {
	SessionID       string       `json:"session_id"`
	UserID          string       `json:"user_id,omitempty"`
	Tasks           []string     `json:"tasks"`
	Stats           sessionStats `json:"stats"`
	DurationDisplay string       `json:"duration_display"`
}

type sessionStats struct {
	Session analysis.SessionMetrics         `json:"session"`
	Tasks   map[string]analysis.TaskMetrics `json:"tasks"`
}

// toJSONMap converts a stats struct to the JSONMap cached on the
// registry row.
func toJSONMap(v any) datatypes.JSONMap {
	raw, err := json.Marshal(v)
	if err != nil {
		return datatypes.JSONMap{}
	}
	out := datatypes.JSONMap{}
	_ = json.Unmarshal(raw, &out)
	return out
}

// requestTestID picks the test id for an upload: explicit form value,
// else the API key's scope, else the default test.
func requestTestID(ctx *fasthttp.RequestCtx) string {
	if t := strings.TrimSpace(string(ctx.FormValue("test_id"))); t != "" {
		return t
	}
	if ak, ok := httpctx.APIKeyFromCtx(ctx); ok && ak != nil && ak.TestID != "" {
		return ak.TestID
	}
	return "TEST"
}

// saveUpload persists the raw CSV under the upload dir with a
// UUID-prefixed name so repeated filenames never clobber each other.
func saveUpload(cfg *config.Config, fh *multipart.FileHeader) (string, error) {
	if err := os.MkdirAll(cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	name := uuid.NewString() + "_" + maptrack.InferSessionID(fh.Filename) + ".csv"
	dst := filepath.Join(cfg.UploadDir, name)
	if err := fasthttp.SaveMultipartFile(fh, dst); err != nil {
		return "", fmt.Errorf("save upload: %w", err)
	}
	return dst, nil
}

// buildResult computes metrics for one parsed session and canonicalizes
// the nationality answer.
func buildResult(session *maptrack.ParsedSession, rawRow map[string]string) sessionResult {
	sm := analysis.ComputeSessionMetrics(session, rawRow)
	if sm.SocDemo.Nationality != nil {
		if canonical := normalization.Nationality(*sm.SocDemo.Nationality); canonical != "" {
			sm.SocDemo.Nationality = &canonical
		}
	}
	stats := sessionStats{
		Session: sm,
		Tasks:   analysis.ComputeAllTaskMetrics(session),
	}
	return sessionResult{
		SessionID:       session.SessionID,
		UserID:          session.UserID,
		Tasks:           session.ListTaskIDs(),
		Stats:           stats,
		DurationDisplay: FormatDurationMS(sm.DurationMS),
	}
}

// registerSession writes the registry row for one parse result.
func registerSession(db *gorm.DB, cfg *config.Config, res sessionResult, testID, filePath string) error {
	var expiresAt *time.Time
	if cfg.RetentionDays > 0 {
		t := time.Now().Add(time.Duration(cfg.RetentionDays) * 24 * time.Hour)
		expiresAt = &t
	}
	primaryTask := ""
	if len(res.Tasks) > 0 {
		primaryTask = res.Tasks[0]
	}
	return dbpkg.UpsertSession(db, &dbpkg.Session{
		SessionID:   res.SessionID,
		TestID:      testID,
		FilePath:    filePath,
		UserID:      res.UserID,
		PrimaryTask: primaryTask,
		Stats:       toJSONMap(res.Stats),
		ExpiresAt:   expiresAt,
	})
}

func openCSVUpload(ctx *fasthttp.RequestCtx) (*multipart.FileHeader, bool) {
	fh, err := ctx.FormFile("file")
	if err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "multipart field 'file' is required")
		return nil, false
	}
	if !strings.HasSuffix(strings.ToLower(fh.Filename), ".csv") {
		errResponse(ctx, fasthttp.StatusBadRequest, "please upload a CSV file")
		return nil, false
	}
	return fh, true
}

func readSavedCSV(path string) (*maptrack.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return maptrack.ReadCSV(f)
}

// UploadHandler ingests one MapTrack CSV export as a single session.
func UploadHandler(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		fh, ok := openCSVUpload(ctx)
		if !ok {
			return
		}
		testID := requestTestID(ctx)

		filePath, err := saveUpload(cfg, fh)
		if err != nil {
			uploadsTotal.WithLabelValues(testID, "single", "error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to store uploaded file")
			return
		}

		start := time.Now()
		ds, err := readSavedCSV(filePath)
		if err != nil {
			uploadsTotal.WithLabelValues(testID, "single", "rejected").Inc()
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		session, err := maptrack.Assemble(ds, fh.Filename, maptrack.AssembleOptions{})
		if err != nil {
			uploadsTotal.WithLabelValues(testID, "single", "rejected").Inc()
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}
		parseDuration.WithLabelValues("single").Observe(time.Since(start).Seconds())

		res := buildResult(session, ds.FirstRow())
		if err := registerSession(db, cfg, res, testID, filePath); err != nil {
			uploadsTotal.WithLabelValues(testID, "single", "error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to register session")
			return
		}

		uploadsTotal.WithLabelValues(testID, "single", "ok").Inc()
		eventsParsedTotal.WithLabelValues(testID).Add(float64(len(session.Events)))
		go func() {
			_ = dbpkg.RunAggregationOnce(db)
		}()

		jsonResponse(ctx, res)
	}
}

// BulkUploadHandler ingests one CSV holding many users' events and
// registers an independent session per user id.
func BulkUploadHandler(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		fh, ok := openCSVUpload(ctx)
		if !ok {
			return
		}
		testID := requestTestID(ctx)

		filePath, err := saveUpload(cfg, fh)
		if err != nil {
			uploadsTotal.WithLabelValues(testID, "bulk", "error").Inc()
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to store uploaded file")
			return
		}

		start := time.Now()
		ds, err := readSavedCSV(filePath)
		if err != nil {
			uploadsTotal.WithLabelValues(testID, "bulk", "rejected").Inc()
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		groups, err := maptrack.SplitByUser(ds)
		if err != nil {
			uploadsTotal.WithLabelValues(testID, "bulk", "rejected").Inc()
			errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
			return
		}

		baseSessionID := maptrack.InferSessionID(fh.Filename)
		results := make([]sessionResult, 0, len(groups))
		for _, g := range groups {
			session, err := maptrack.Assemble(g.Dataset, fh.Filename, maptrack.AssembleOptions{
				SessionIDOverride: maptrack.SubSessionID(baseSessionID, g.UserID),
				UserIDOverride:    g.UserID,
			})
			if err != nil {
				uploadsTotal.WithLabelValues(testID, "bulk", "rejected").Inc()
				errResponse(ctx, fasthttp.StatusBadRequest, err.Error())
				return
			}
			// Soc-demo comes from this user's first row, not the file's.
			results = append(results, buildResult(session, g.Dataset.FirstRow()))
		}
		parseDuration.WithLabelValues("bulk").Observe(time.Since(start).Seconds())

		for _, res := range results {
			if err := registerSession(db, cfg, res, testID, filePath); err != nil {
				uploadsTotal.WithLabelValues(testID, "bulk", "error").Inc()
				errResponse(ctx, fasthttp.StatusInternalServerError, "failed to register session")
				return
			}
			eventsParsedTotal.WithLabelValues(testID).Add(float64(res.Stats.Session.EventsTotal))
		}

		uploadsTotal.WithLabelValues(testID, "bulk", "ok").Inc()
		go func() {
			_ = dbpkg.RunAggregationOnce(db)
		}()

		jsonResponse(ctx, map[string]any{
			"count":    len(results),
			"test_id":  testID,
			"sessions": results,
		})
	}
}
