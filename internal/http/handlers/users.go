package handlers

import (
	"strconv"

	"github.com/valyala/fasthttp"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"maptrack/internal/config"
	dbpkg "maptrack/internal/db"
)

// loadUserParam resolves the {id} route parameter to a user row,
// refusing to touch the bootstrap admin.
func loadUserParam(ctx *fasthttp.RequestCtx, db *gorm.DB, cfg *config.Config) (*dbpkg.User, bool) {
	idStr, ok := pathString(ctx, "id")
	if !ok {
		return nil, false
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		errResponse(ctx, fasthttp.StatusBadRequest, "invalid user ID")
		return nil, false
	}

	var user dbpkg.User
	if err := db.First(&user, id).Error; err != nil {
		errResponse(ctx, fasthttp.StatusNotFound, "user not found")
		return nil, false
	}
	if user.Username == cfg.AdminUser {
		errResponse(ctx, fasthttp.StatusForbidden, "cannot modify bootstrap admin user")
		return nil, false
	}
	return &user, true
}

// CreateUser adds a researcher account.
func CreateUser(db *gorm.DB) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		username := string(ctx.PostArgs().Peek("username"))
		password := string(ctx.PostArgs().Peek("password"))

		if username == "" || password == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "username and password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}

		user := &dbpkg.User{
			Username:     username,
			PasswordHash: string(hash),
			IsAdmin:      string(ctx.PostArgs().Peek("is_admin")) == "true",
		}
		if err := db.Create(user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusBadRequest, "failed to create user (username may already exist)")
			return
		}

		jsonResponse(ctx, map[string]any{"id": user.ID, "username": user.Username, "is_admin": user.IsAdmin})
	}
}

// ResetPassword sets a new password for another account.
func ResetPassword(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := loadUserParam(ctx, db, cfg)
		if !ok {
			return
		}

		password := string(ctx.PostArgs().Peek("password"))
		if password == "" {
			errResponse(ctx, fasthttp.StatusBadRequest, "password required")
			return
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to hash password")
			return
		}
		if err := db.Model(user).Update("password_hash", string(hash)).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to update password")
			return
		}

		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}

// DeleteUser removes a researcher account.
func DeleteUser(db *gorm.DB, cfg *config.Config) fasthttp.RequestHandler {
	return func(ctx *fasthttp.RequestCtx) {
		user, ok := loadUserParam(ctx, db, cfg)
		if !ok {
			return
		}
		if err := db.Delete(user).Error; err != nil {
			errResponse(ctx, fasthttp.StatusInternalServerError, "failed to delete user")
			return
		}
		ctx.SetStatusCode(fasthttp.StatusNoContent)
	}
}
