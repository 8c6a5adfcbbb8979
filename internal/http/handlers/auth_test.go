package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	httpctx "maptrack/internal/http/ctx"
)

func TestSessionCookieRoundTrip(t *testing.T) {
	var ctx fasthttp.RequestCtx
	setSessionCookie(&ctx, "researcher")

	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(httpctx.SessionCookie)
	require.True(t, ctx.Response.Header.Cookie(c))
	assert.Equal(t, "researcher", string(c.Value()))
	assert.True(t, c.HTTPOnly())
}

func TestLogoutClearsSessionCookie(t *testing.T) {
	var ctx fasthttp.RequestCtx
	Logout()(&ctx)

	assert.Equal(t, fasthttp.StatusSeeOther, ctx.Response.StatusCode())
	assert.Equal(t, "/login", string(ctx.Response.Header.Peek("Location")))

	c := fasthttp.AcquireCookie()
	defer fasthttp.ReleaseCookie(c)
	c.SetKey(httpctx.SessionCookie)
	require.True(t, ctx.Response.Header.Cookie(c))
	assert.Empty(t, string(c.Value()))
}
