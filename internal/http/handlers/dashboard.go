package handlers

import (
	"bytes"

	"github.com/valyala/fasthttp"

	"maptrack/internal/config"
	dbpkg "maptrack/internal/db"
	httpctx "maptrack/internal/http/ctx"
	ui "maptrack/web"
)

type dashboardData struct {
	Username string
	IsAdmin  bool
}

// Dashboard renders the researcher UI shell; the page itself loads
// sessions and metrics over the JSON API.
func Dashboard(_ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		data := dashboardData{}
		if u, ok := httpctx.UserFromCtx(ctx); ok {
			if user, ok := u.(*dbpkg.User); ok && user != nil {
				data.Username = user.Username
				data.IsAdmin = user.IsAdmin
			}
		}

		t := ui.Templates().Lookup("index.html")
		if t == nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("dashboard template not found")
			return
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("render error")
			return
		}
		ctx.SetContentType("text/html; charset=utf-8")
		ctx.SetBody(buf.Bytes())
	}
}
