package main

import (
	"log"

	"github.com/fasthttp/router"
	"github.com/joho/godotenv"
	"github.com/valyala/fasthttp"

	"maptrack/internal/config"
	"maptrack/internal/db"
	"maptrack/internal/http/handlers"
	appmw "maptrack/internal/http/middleware"
	ui "maptrack/web"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	sqlDB, err := db.Connect(cfg)
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	db.StartRetentionWorker(sqlDB)
	db.StartAggregationWorker(sqlDB)

	if err := db.EnsureBootstrapAdmin(sqlDB, cfg); err != nil {
		log.Fatalf("failed to ensure bootstrap admin: %v", err)
	}

	if cfg.IngestAPIKey != "" {
		if err := db.EnsureBootstrapAPIKey(sqlDB, cfg); err != nil {
			log.Printf("warning: failed to ensure bootstrap ingest key: %v", err)
		} else {
			log.Printf("ingest API key configured and associated with admin user")
		}
	}

	handlers.InitPrometheusMetrics()

	r := router.New()

	// Global middleware chain: request logger, then Prometheus instrumentation, then router.
	handler := handlers.RequestLogger(appmw.Instrumentation(r.Handler))

	r.GET("/healthz", func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(fasthttp.StatusOK)
		ctx.SetBodyString("ok")
	})

	r.ServeFS("/static/{filepath:*}", ui.StaticFS())

	r.GET("/login", handlers.LoginForm(cfg))
	r.POST("/login", handlers.LoginSubmit(sqlDB))
	r.POST("/logout", handlers.Logout())

	r.GET("/", appmw.AdminAuth(sqlDB, cfg)(handlers.Dashboard(cfg)))

	r.POST("/admin/users/create", appmw.AdminAuth(sqlDB, cfg)(handlers.CreateUser(sqlDB)))
	r.POST("/admin/users/{id}/reset-password", appmw.AdminAuth(sqlDB, cfg)(handlers.ResetPassword(sqlDB, cfg)))
	r.POST("/admin/users/{id}/delete", appmw.AdminAuth(sqlDB, cfg)(handlers.DeleteUser(sqlDB, cfg)))
	r.POST("/admin/password", appmw.AdminAuth(sqlDB, cfg)(handlers.ChangePasswordSelf(sqlDB, cfg)))

	r.POST("/admin/apikeys/create", appmw.AdminAuth(sqlDB, cfg)(handlers.CreateAPIKey(sqlDB, cfg)))
	r.POST("/admin/apikeys/delete", appmw.AdminAuth(sqlDB, cfg)(handlers.DeleteAPIKey(sqlDB, cfg)))

	// JSON API: dashboard cookie or Bearer API key.
	api := appmw.APIAuth(sqlDB)
	r.POST("/api/upload", api(handlers.UploadHandler(sqlDB, cfg)))
	r.POST("/api/upload/bulk", api(handlers.BulkUploadHandler(sqlDB, cfg)))
	r.GET("/api/sessions", api(handlers.ListSessionsHandler(sqlDB)))
	r.GET("/api/sessions/{id}", api(handlers.GetSessionHandler(sqlDB)))
	r.GET("/api/sessions/{id}/events", api(handlers.SessionEventsHandler(sqlDB)))
	r.GET("/api/sessions/{id}/tasks/{task_id}", api(handlers.TaskMetricsHandler(sqlDB)))
	r.GET("/api/tests/{test_id}/aggregate", api(handlers.TestAggregateHandler(sqlDB)))
	r.GET("/api/tests/{test_id}/answers", api(handlers.GetAnswerKeysHandler(sqlDB)))
	r.PUT("/api/tests/{test_id}/answers", api(handlers.PutAnswerKeysHandler(sqlDB)))

	r.GET("/v1/metrics", handlers.TestMetricsHandler(sqlDB))

	log.Printf("maptrack listening on %s", cfg.ListenAddr)
	if err := fasthttp.ListenAndServe(cfg.ListenAddr, handler); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
