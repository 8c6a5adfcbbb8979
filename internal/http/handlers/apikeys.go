package handlers

import (
	"crypto/rand"
	"encoding/base64"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	"maptrack/internal/config"
	dbpkg "maptrack/internal/db"
)

func generateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "mt_" + base64.URLEncoding.EncodeToString(b), nil
}

// CreateAPIKey mints a bearer token for programmatic uploads, scoped
// to one test.
func CreateAPIKey(db *gorm.DB, _ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		name := string(ctx.PostArgs().Peek("name"))
		testID := string(ctx.PostArgs().Peek("test_id"))

		if name == "" || testID == "" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("name and test_id required")
			return
		}

		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		key, err := generateAPIKey()
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to generate API key")
			return
		}

		apiKey := &dbpkg.APIKey{
			UserID: user.ID,
			Name:   name,
			TestID: testID,
			Key:    key,
			Active: true,
		}

		if err := db.Create(apiKey).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("failed to create API key (name may already exist for this user)")
			return
		}

		jsonResponse(ctx, map[string]any{
			"id":      apiKey.ID,
			"name":    apiKey.Name,
			"test_id": apiKey.TestID,
			"key":     apiKey.Key,
		})
	}
}

func DeleteAPIKey(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		id := string(ctx.QueryArgs().Peek("id"))
		if id == "" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("id required")
			return
		}

		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		var apiKey dbpkg.APIKey
		if err := db.First(&apiKey, id).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusNotFound)
			ctx.SetBodyString("API key not found")
			return
		}

		if apiKey.UserID != user.ID && !user.IsAdmin {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			ctx.SetBodyString("forbidden")
			return
		}

		if cfg.IngestAPIKey != "" && apiKey.Key == cfg.IngestAPIKey {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			ctx.SetBodyString("cannot delete bootstrap ingest key")
			return
		}

		if err := db.Delete(&apiKey).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to delete API key")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
