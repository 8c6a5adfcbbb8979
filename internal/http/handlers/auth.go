package handlers

import (
	"bytes"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"maptrack/internal/config"
	dbpkg "maptrack/internal/db"
	httpctx "maptrack/internal/http/ctx"
	ui "maptrack/web"
)

func setSessionCookie(ctx *fasthttp.RequestCtx, username string) {
	var c fasthttp.Cookie
	c.SetKey(httpctx.SessionCookie)
	c.SetValue(username)
	c.SetPath("/")
	c.SetHTTPOnly(true)
	ctx.Response.Header.SetCookie(&c)
}

func clearSessionCookie(ctx *fasthttp.RequestCtx) {
	var c fasthttp.Cookie
	c.SetKey(httpctx.SessionCookie)
	c.SetValue("")
	c.SetPath("/")
	c.SetMaxAge(-1)
	ctx.Response.Header.SetCookie(&c)
}

func renderLogin(ctx *fasthttp.RequestCtx, status int, data any) {
	t := ui.Templates().Lookup("login.html")
	if t == nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("login template not found")
		return
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		ctx.SetStatusCode(fasthttp.StatusInternalServerError)
		ctx.SetBodyString("render error")
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/html; charset=utf-8")
	ctx.SetBody(buf.Bytes())
}

// LoginForm serves the researcher sign-in page.
func LoginForm(_ *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		renderLogin(ctx, fasthttp.StatusOK, nil)
	}
}

// LoginSubmit checks credentials against the user table and, on
// success, starts a dashboard session. Unknown usernames and wrong
// passwords get the same message.
func LoginSubmit(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := string(ctx.PostArgs().Peek("username"))
		password := string(ctx.PostArgs().Peek("password"))

		var user dbpkg.User
		err := db.Where("username = ?", username).First(&user).Error
		if err != nil && err != gorm.ErrRecordNotFound {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("database error")
			return
		}
		if err != nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			renderLogin(ctx, fasthttp.StatusUnauthorized, map[string]any{"Error": "Invalid username or password."})
			return
		}

		setSessionCookie(ctx, username)
		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}

// Logout clears the dashboard session.
func Logout() fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		clearSessionCookie(ctx)
		ctx.Redirect("/login", fasthttp.StatusSeeOther)
	}
}

// ChangePasswordSelf lets a signed-in researcher rotate their own
// password. The bootstrap admin is excluded: its password comes from
// the environment and a DB-side change would silently diverge.
func ChangePasswordSelf(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := MustUser(ctx)
		if !ok {
			return
		}
		if user.Username == cfg.AdminUser {
			ctx.SetStatusCode(fasthttp.StatusForbidden)
			ctx.SetBodyString("cannot change password for bootstrap admin user")
			return
		}

		current := string(ctx.PostArgs().Peek("current_password"))
		newPassword := string(ctx.PostArgs().Peek("new_password"))
		confirm := string(ctx.PostArgs().Peek("confirm_password"))

		if current == "" || newPassword == "" || confirm == "" {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("all password fields are required")
			return
		}
		if newPassword != confirm {
			ctx.SetStatusCode(fasthttp.StatusBadRequest)
			ctx.SetBodyString("new passwords do not match")
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
			ctx.SetStatusCode(fasthttp.StatusUnauthorized)
			ctx.SetBodyString("current password is incorrect")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
		if err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to hash password")
			return
		}

		if err := db.Model(&dbpkg.User{}).Where("id = ?", user.ID).Update("password_hash", string(hash)).Error; err != nil {
			ctx.SetStatusCode(fasthttp.StatusInternalServerError)
			ctx.SetBodyString("failed to update password")
			return
		}

		ctx.Redirect("/", fasthttp.StatusSeeOther)
	}
}
