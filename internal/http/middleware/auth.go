package middleware

import (
	"bytes"
	"strings"

	"github.com/valyala/fasthttp"
	"gorm.io/gorm"

	dbpkg "maptrack/internal/db"
	httpctx "maptrack/internal/http/ctx"
)

// APIAuth guards the JSON API. It accepts either a Bearer API key or
// the dashboard session cookie, so both the researcher UI and
// programmatic clients hit the same endpoints. Failures answer 401
// rather than redirecting.
func APIAuth(db *gorm.DB) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			if auth := ctx.Request.Header.Peek("Authorization"); len(auth) > 0 {
				bearerAuth(db, ctx, next, auth)
				return
			}

			cookie := ctx.Request.Header.Cookie(httpctx.SessionCookie)
			if len(cookie) == 0 {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("missing Authorization header or session cookie")
				return
			}

			var user dbpkg.User
			if err := db.Where("username = ?", string(cookie)).First(&user).Error; err != nil {
				ctx.SetStatusCode(fasthttp.StatusUnauthorized)
				ctx.SetBodyString("invalid session")
				return
			}

			httpctx.SetUser(ctx, &user)
			next(ctx)
		}
	}
}

// bearerAuth validates Bearer tokens against API keys in the database.
func bearerAuth(db *gorm.DB, ctx *fasthttp.RequestCtx, next fasthttp.RequestHandler, auth []byte) {
	const prefix = "Bearer "
	if !bytes.HasPrefix(auth, []byte(prefix)) {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("invalid Authorization header")
		return
	}

	token := strings.TrimSpace(string(auth[len(prefix):]))
	if token == "" {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("empty bearer token")
		return
	}

	var apiKey dbpkg.APIKey
	if err := db.Where("key = ? AND active = ?", token, true).Preload("User").First(&apiKey).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetBodyString("invalid API key")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("database error")
		return
	}

	httpctx.SetUserToken(ctx, token)
	httpctx.SetAPIKey(ctx, &apiKey)
	httpctx.SetUser(ctx, &apiKey.User)
	next(ctx)
}
